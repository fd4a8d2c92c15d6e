package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff"

	"pneuma-servo-core/utils"
)

// sensorFullScale is the raw value of a fully extended position transducer;
// the 16-bit sensor word is normalized against it into [0,1].
const sensorFullScale = 65535.0

// Runner owns one servo lifetime: bring the link operational, cycle the
// control loop at a fixed period, and walk the link back down on shutdown.
type Runner struct {
	cfg    ServoConfig
	log    *utils.Logger
	master utils.BusMaster
	ctrl   *CylinderPositionController

	box      *SetpointMailbox
	shutdown *ShutdownFlag

	// Console is the operator input stream, os.Stdin in production. Nil
	// disables the console reader (tests drive the mailbox directly).
	Console io.Reader

	metrics *loopMetrics

	cycles        uint64
	missedSamples uint64
}

func NewRunner(cfg ServoConfig, master utils.BusMaster, log *utils.Logger) (*Runner, error) {
	sensor, ok := master.Device(cfg.Devices.Sensor)
	if !ok {
		return nil, fmt.Errorf("sensor device %q not on bus", cfg.Devices.Sensor)
	}
	if len(sensor.Inputs) < 2 {
		return nil, fmt.Errorf("sensor device %q input buffer too small for a 16-bit word (%d bytes)",
			cfg.Devices.Sensor, len(sensor.Inputs))
	}
	valve, ok := master.Device(cfg.Devices.Valve)
	if !ok {
		return nil, fmt.Errorf("valve device %q not on bus", cfg.Devices.Valve)
	}
	if len(valve.Outputs) < 1 {
		return nil, fmt.Errorf("valve device %q has no output buffer", cfg.Devices.Valve)
	}
	if cfg.Loop.DiagEveryCycles == 0 {
		cfg.Loop.DiagEveryCycles = 100
	}

	return &Runner{
		cfg:      cfg,
		log:      log,
		master:   master,
		ctrl:     NewCylinderPositionController(cfg.Gains.ControlGains(), cfg.Loop.InitialSetpoint),
		box:      &SetpointMailbox{},
		shutdown: &ShutdownFlag{},
	}, nil
}

// Run drives the full lifecycle. A cycle-fatal error aborts without the
// backward handshake: after a lost exchange the device state is unknown and
// pretending to sequence it down cleanly would be a lie.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	if err := r.cycleLoop(ctx); err != nil {
		return err
	}
	r.drain(ctx)
	return nil
}

// startup arms the shutdown latch, starts the console reader, and walks the
// link forward to operational. Each transition is retried briefly with
// exponential backoff before the startup is declared failed.
func (r *Runner) startup(ctx context.Context) error {
	r.shutdown.Arm()

	if r.Console != nil {
		go readSetpoints(r.Console, r.box, r.log)
	}

	for _, next := range r.master.State().ForwardLadder() {
		if err := r.requestStateWithRetry(ctx, next); err != nil {
			return fmt.Errorf("link handshake to %s: %w", next, err)
		}
	}

	r.log.Info("Link operational: sensor=%s valve=%s cycle_ms=%d deadband=%.4f kp=%.3f ki=%.3f setpoint=%.4f",
		r.cfg.Devices.Sensor, r.cfg.Devices.Valve, r.cfg.Loop.CycleMS, r.cfg.Loop.DeadbandHalfWidth,
		r.cfg.Gains.Kp, r.cfg.Gains.Ki, r.ctrl.Setpoint())
	return nil
}

func (r *Runner) requestStateWithRetry(ctx context.Context, target utils.LinkState) error {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock,
	}
	bo.Reset()
	return backoff.Retry(func() error {
		return r.master.RequestState(ctx, target)
	}, bo)
}

// cycleLoop is the steady state: one exchange, one control computation, one
// actuation write per fixed period. The ticker drops ticks when a cycle
// overruns, so an overloaded host skips periods instead of bursting stale
// actuations back to back.
func (r *Runner) cycleLoop(ctx context.Context) error {
	period := time.Duration(r.cfg.Loop.CycleMS) * time.Millisecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		if r.shutdown.IsSet() {
			r.log.Info("Shutdown requested; leaving control loop after %d cycles (%d without sensor)",
				r.cycles, r.missedSamples)
			return nil
		}

		if err := r.master.Exchange(ctx); err != nil {
			// A missed output cycle cannot be retried after the fact.
			return fmt.Errorf("cyclic exchange: %w", err)
		}

		if v, ok := r.box.TakeIfReady(); ok {
			r.ctrl.NewSetpoint(v)
			r.log.Info("New setpoint %.4f (clamped from %.4f)", r.ctrl.Setpoint(), v)
		}

		sample, haveSample := r.readSensor()

		// Fail safe: without a sample this cycle commands neutral and the
		// controller is left untouched.
		signal := 0.0
		if haveSample {
			signal = r.ctrl.ControlSignal(sample)
		} else {
			r.missedSamples++
			r.log.Trace("No sensor sample this cycle; commanding neutral")
		}

		cmd := Actuate(signal, r.cfg.Loop.DeadbandHalfWidth)
		r.writeValve(cmd)

		r.cycles++
		if r.metrics != nil {
			r.metrics.observe(sample, haveSample, r.ctrl.Setpoint(), signal)
		}
		if r.cycles%r.cfg.Loop.DiagEveryCycles == 0 {
			r.logDiagnostics(sample, haveSample, signal, cmd)
		}

		<-ticker.C
	}
}

// readSensor extracts the normalized position from the sensor device's
// input buffer: a little-endian 16-bit word at offset 0, scaled to [0,1].
func (r *Runner) readSensor() (float64, bool) {
	dev, ok := r.master.Device(r.cfg.Devices.Sensor)
	if !ok || !dev.InputValid || len(dev.Inputs) < 2 {
		return 0, false
	}
	raw := binary.LittleEndian.Uint16(dev.Inputs[:2])
	return float64(raw) / sensorFullScale, true
}

// writeValve puts the 2-bit command in the first output byte of the valve
// device; the next exchange carries it to the hardware.
func (r *Runner) writeValve(cmd ValveCommand) {
	dev, _ := r.master.Device(r.cfg.Devices.Valve)
	dev.Outputs[0] = byte(cmd)
}

func (r *Runner) logDiagnostics(sample float64, haveSample bool, signal float64, cmd ValveCommand) {
	r.log.Debug("cycle=%d pos=%.4f sample_ok=%v setpoint=%.4f acc=%.4f signal=%.4f valve=%s",
		r.cycles, sample, haveSample, r.ctrl.Setpoint(), r.ctrl.Accumulator(), signal, cmd)
}

// drain walks the link back to idle. Transitions here are best effort: a
// failed step is logged and the next one attempted anyway, so the process
// always reaches exit.
func (r *Runner) drain(ctx context.Context) {
	for _, next := range r.master.State().BackwardLadder() {
		if err := r.master.RequestState(ctx, next); err != nil {
			r.log.Warn("Shutdown handshake to %s failed: %v", next, err)
		}
	}
	r.log.Info("Link drained to %s", r.master.State())
}
