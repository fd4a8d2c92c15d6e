package main

// ControlGains selects the controller type and carries its gains. Build one
// with PGains or PIGains.
type ControlGains struct {
	kp float64
	ki float64
}

// PGains configures a proportional-only controller.
func PGains(kp float64) ControlGains {
	return ControlGains{kp: kp}
}

// PIGains configures a proportional-integral controller.
func PIGains(kp, ki float64) ControlGains {
	return ControlGains{kp: kp, ki: ki}
}

// CylinderPositionController is a PI servo controller for a pneumatic
// muscle cylinder. The integration is a running accumulator of the
// tracking error since the last setpoint change.
//
// Gains should be selected with some degree of intelligence to get
// reasonable results; Ziegler-Nichols is a workable starting procedure.
type CylinderPositionController struct {
	kp             float64
	ki             float64
	setpoint       float64
	errAccumulator float64
}

// NewCylinderPositionController builds a controller that regulates toward
// setpoint. The initial setpoint is stored as given; only NewSetpoint
// clamps.
func NewCylinderPositionController(gains ControlGains, setpoint float64) *CylinderPositionController {
	return &CylinderPositionController{
		kp:       gains.kp,
		ki:       gains.ki,
		setpoint: setpoint,
	}
}

// NewSetpoint aims the controller at a new target, clamped into [0, 1].
// As a side effect it resets the integration accumulator: error integrated
// toward the old target means nothing for the new one.
func (c *CylinderPositionController) NewSetpoint(setpoint float64) {
	c.setpoint = clamp01(setpoint)
	c.errAccumulator = 0
}

// Setpoint returns the current target.
func (c *CylinderPositionController) Setpoint() float64 {
	return c.setpoint
}

// Accumulator returns the integrated error since the last setpoint change,
// for diagnostics.
func (c *CylinderPositionController) Accumulator() float64 {
	return c.errAccumulator
}

// ControlSignal computes the PI output for one measurement. The measurement
// is assumed, but not enforced, to lie in [0, 1]. The error is accumulated
// unconditionally; a proportional-only controller simply has ki == 0.
// Positive output drives toward a larger measurement, negative toward a
// smaller one. No saturation or anti-windup is applied here; that is the
// caller's policy.
func (c *CylinderPositionController) ControlSignal(measurement float64) float64 {
	err := c.setpoint - measurement
	c.errAccumulator += err
	return c.kp*err + c.ki*c.errAccumulator
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
