package main

// ValveCommand is the 2-bit pattern written into the valve device's first
// output byte.
type ValveCommand byte

const (
	ValveNeutral ValveCommand = 0b00
	ValveRetract ValveCommand = 0b01
	ValveExtend  ValveCommand = 0b10
)

func (v ValveCommand) String() string {
	switch v {
	case ValveNeutral:
		return "neutral"
	case ValveRetract:
		return "retract"
	case ValveExtend:
		return "extend"
	default:
		return "invalid"
	}
}

// Actuate maps a continuous control signal onto a discrete valve command.
// The deadband is symmetric around zero and the activation boundary is
// strictly greater: a signal exactly at the half-width stays neutral. The
// mapping is stateless, so a signal hovering at the boundary may chatter
// between neutral and active on consecutive cycles.
func Actuate(controlSignal, deadbandHalfWidth float64) ValveCommand {
	switch {
	case controlSignal > deadbandHalfWidth:
		return ValveExtend
	case controlSignal < -deadbandHalfWidth:
		return ValveRetract
	default:
		return ValveNeutral
	}
}
