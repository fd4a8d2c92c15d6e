package utils

import (
	"context"
	"fmt"
)

// LinkState is the operating mode of the communication link. States are
// ordered; a link may only move between adjacent states, forward
// (idle -> operational) during startup and backward during shutdown.
type LinkState int

const (
	StateIdle LinkState = iota
	StatePreOperational
	StateSafeOperational
	StateOperational
)

func (s LinkState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePreOperational:
		return "PRE-OP"
	case StateSafeOperational:
		return "SAFE-OP"
	case StateOperational:
		return "OP"
	default:
		return "UNKNOWN"
	}
}

// Adjacent reports whether a single transition from s to target is legal.
func (s LinkState) Adjacent(target LinkState) bool {
	d := target - s
	return d == 1 || d == -1
}

// ForwardLadder lists the transitions from s up to operational.
func (s LinkState) ForwardLadder() []LinkState {
	var out []LinkState
	for next := s + 1; next <= StateOperational; next++ {
		out = append(out, next)
	}
	return out
}

// BackwardLadder lists the transitions from s down to idle.
func (s LinkState) BackwardLadder() []LinkState {
	var out []LinkState
	for next := s - 1; next >= StateIdle; next-- {
		out = append(out, next)
	}
	return out
}

// Device is the raw process image of one bus device: a fixed-size input
// buffer refreshed by Exchange and a fixed-size output buffer transmitted
// by Exchange. InputValid is false until the first input refresh, and stays
// false for output-only devices.
type Device struct {
	Name       string
	Inputs     []byte
	Outputs    []byte
	InputValid bool
}

// BusMaster is the boundary to the fieldbus link. The control loop requests
// lifecycle transitions one adjacent step at a time, runs one Exchange per
// control period, and reads/writes device buffers between exchanges.
type BusMaster interface {
	// RequestState performs a single lifecycle transition. The target must
	// be adjacent to the current state.
	RequestState(ctx context.Context, target LinkState) error

	// Exchange runs one cyclic round: transmit every device's output buffer,
	// refresh every device's input buffer with the latest received data.
	Exchange(ctx context.Context) error

	// Device returns the process image for a configured device name.
	Device(name string) (*Device, bool)

	State() LinkState
	Close() error
}

// CheckTransition validates the adjacency rule shared by master
// implementations.
func CheckTransition(current, target LinkState) error {
	if target < StateIdle || target > StateOperational {
		return fmt.Errorf("invalid link state %d", target)
	}
	if !current.Adjacent(target) {
		return fmt.Errorf("illegal transition %s -> %s (states must be adjacent)", current, target)
	}
	return nil
}
