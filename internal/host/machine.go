// Package host provides a self-contained guest machine and synthetic
// graphical consoles for running a bridge without an emulator behind it.
package host

import (
	"slices"
	"sync"

	"github.com/bnema/vmshm/internal/bridge"
	"github.com/bnema/vmshm/internal/logger"
)

// State is the guest run state
type State uint8

const (
	StateRunning State = iota
	StatePaused
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

var (
	_ bridge.RunState = (*Machine)(nil)
	_ bridge.Notifier = (*Machine)(nil)
)

// Machine tracks the guest lifecycle and lock indicators. Change handlers
// run on the caller goroutine after the state lock is released.
type Machine struct {
	mu          sync.Mutex
	state       State
	leds        bridge.LEDState
	resets      int
	cause       bridge.Cause
	ledHandlers []func(bridge.LEDState)
	runHandlers []func(bool)
	done        chan struct{}
}

// NewMachine creates a running machine
func NewMachine() *Machine {
	return &Machine{done: make(chan struct{})}
}

// State returns the current run state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) IsRunning() bool {
	return m.State() == StateRunning
}

// Done is closed once a shutdown was requested
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// ShutdownCause reports why the machine stopped
func (m *Machine) ShutdownCause() (bridge.Cause, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cause, m.state == StateShutdown
}

// Resets returns how many resets were requested
func (m *Machine) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// RequestShutdown stops the machine. Later requests are ignored.
func (m *Machine) RequestShutdown(cause bridge.Cause) {
	m.mu.Lock()
	if m.state == StateShutdown {
		m.mu.Unlock()
		return
	}
	m.state = StateShutdown
	m.cause = cause
	close(m.done)
	handlers := slices.Clone(m.runHandlers)
	m.mu.Unlock()

	logger.Info("Machine shutdown requested", "cause", cause)
	for _, fn := range handlers {
		fn(false)
	}
}

// RequestReset restarts the guest. A paused machine stays paused.
func (m *Machine) RequestReset(cause bridge.Cause) {
	m.mu.Lock()
	if m.state == StateShutdown {
		m.mu.Unlock()
		return
	}
	m.resets++
	m.mu.Unlock()

	logger.Info("Machine reset requested", "cause", cause)
}

// Pause suspends a running machine
func (m *Machine) Pause() {
	m.setRunning(StateRunning, StatePaused)
}

// Resume continues a paused machine
func (m *Machine) Resume() {
	m.setRunning(StatePaused, StateRunning)
}

// TogglePause flips between running and paused
func (m *Machine) TogglePause() {
	if m.IsRunning() {
		m.Pause()
		return
	}
	m.Resume()
}

func (m *Machine) setRunning(from, to State) {
	m.mu.Lock()
	if m.state != from {
		m.mu.Unlock()
		return
	}
	m.state = to
	handlers := slices.Clone(m.runHandlers)
	m.mu.Unlock()

	logger.Debug("Machine run state changed", "state", to)
	for _, fn := range handlers {
		fn(to == StateRunning)
	}
}

// LEDState returns the guest lock indicators
func (m *Machine) LEDState() bridge.LEDState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leds
}

// SetLEDState updates the lock indicators, notifying only on change
func (m *Machine) SetLEDState(s bridge.LEDState) {
	m.mu.Lock()
	if m.leds == s {
		m.mu.Unlock()
		return
	}
	m.leds = s
	handlers := slices.Clone(m.ledHandlers)
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(s)
	}
}

func (m *Machine) OnLEDChange(fn func(bridge.LEDState)) {
	m.mu.Lock()
	m.ledHandlers = append(m.ledHandlers, fn)
	m.mu.Unlock()
}

func (m *Machine) OnRunStateChange(fn func(running bool)) {
	m.mu.Lock()
	m.runHandlers = append(m.runHandlers, fn)
	m.mu.Unlock()
}
