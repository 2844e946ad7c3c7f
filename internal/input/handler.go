// Package input injects guest keyboard and pointer input into the host.
package input

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/vmshm/internal/bridge"
	"github.com/bnema/vmshm/internal/logger"
)

var (
	// ErrHandlerClosed is returned when operating on a closed injector
	ErrHandlerClosed = errors.New("injector is closed")
	// ErrUnknownBackend is returned for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown input backend")
)

// Backend names accepted by NewInjector
const (
	BackendUinput = "uinput"
	BackendLog    = "log"
)

// Injector receives the guest input stream of every bridge
type Injector interface {
	bridge.Injector
	io.Closer
}

// NewInjector creates the injector for backend. The uinput backend falls
// back to the log backend when the device cannot be opened.
func NewInjector(backend, devicePath, name string) (Injector, error) {
	switch backend {
	case BackendUinput, "":
		inj, err := newUInputInjector(devicePath, name)
		if err == nil {
			return inj, nil
		}
		logger.Warn("uinput unavailable, falling back to log injector", "path", devicePath, "error", err)
		return newLogInjector(), nil
	case BackendLog:
		return newLogInjector(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

type opKind uint8

const (
	opButton opKind = iota
	opRel
	opAbs
)

// op is one queued pointer change, applied on Sync
type op struct {
	kind    opKind
	console int
	btn     bridge.Button
	down    bool
	axis    bridge.Axis
	value   int32
	min     int32
	max     int32
}

// queue collects pointer ops between syncs
type queue struct {
	ops []op
}

func (q *queue) button(console int, btn bridge.Button, down bool) {
	q.ops = append(q.ops, op{kind: opButton, console: console, btn: btn, down: down})
}

func (q *queue) rel(console int, axis bridge.Axis, delta int32) {
	q.ops = append(q.ops, op{kind: opRel, console: console, axis: axis, value: delta})
}

func (q *queue) abs(console int, axis bridge.Axis, value, min, max int32) {
	q.ops = append(q.ops, op{kind: opAbs, console: console, axis: axis, value: value, min: min, max: max})
}

// take returns the queued ops and empties the queue
func (q *queue) take() []op {
	ops := q.ops
	q.ops = nil
	return ops
}
