package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"

	"pneuma-servo-core/utils"
)

// SetpointMailbox is a single-slot channel between the console reader and
// the control loop. A write before the loop drains the previous value
// overwrites it: the loop only ever cares about the newest target, never a
// backlog of intermediate ones.
type SetpointMailbox struct {
	mu      sync.Mutex
	value   float64
	pending bool
}

// Write stores a new setpoint and marks it ready. Always succeeds.
func (m *SetpointMailbox) Write(value float64) {
	m.mu.Lock()
	m.value = value
	m.pending = true
	m.mu.Unlock()
}

// TakeIfReady returns the stored setpoint and clears the slot, or reports
// not-ready. Never blocks beyond the mutex.
func (m *SetpointMailbox) TakeIfReady() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		return 0, false
	}
	m.pending = false
	return m.value, true
}

// readSetpoints consumes operator input line by line, parsing each as a
// decimal setpoint and posting valid values to the mailbox. Malformed lines
// are reported and dropped before they reach the mailbox. Runs detached:
// there is no cancellation for a blocking stdin read, the goroutine dies
// with the process.
func readSetpoints(in io.Reader, box *SetpointMailbox, log *utils.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			log.Warn("Ignoring setpoint %q: not a number", line)
			continue
		}
		box.Write(v)
		log.Info("Operator setpoint: %.4f", v)
	}
	if err := scanner.Err(); err != nil {
		log.Error("Console input error: %v", err)
	}
}
