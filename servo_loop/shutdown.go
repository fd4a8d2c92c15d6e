package main

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// ShutdownFlag is a process-wide latch set once by the interrupt handler
// and polled at the top of every control cycle. There is no reset path;
// the process exits after observing it set.
type ShutdownFlag struct {
	set atomic.Bool
}

// Arm registers the interrupt handler. Call once, before entering the
// control loop.
func (f *ShutdownFlag) Arm() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		f.set.Store(true)
	}()
}

// Set latches the flag directly. Tests and the runner's fatal paths use
// this in place of a real signal.
func (f *ShutdownFlag) Set() {
	f.set.Store(true)
}

func (f *ShutdownFlag) IsSet() bool {
	return f.set.Load()
}
