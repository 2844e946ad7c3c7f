package input

import (
	"sync"

	"github.com/bnema/vmshm/internal/bridge"
	"github.com/bnema/vmshm/internal/keymap"
	"github.com/bnema/vmshm/internal/logger"
)

// logInjector records guest input in the debug log instead of injecting it
type logInjector struct {
	mu     sync.Mutex
	closed bool
	queue  queue
	synced int
}

func newLogInjector() *logInjector {
	return &logInjector{}
}

func (h *logInjector) SendKey(code keymap.Code, down bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandlerClosed
	}
	logger.Debug("Key", "code", code, "down", down)
	return nil
}

func (h *logInjector) QueueButton(console int, btn bridge.Button, down bool) error {
	return h.enqueue(func(q *queue) { q.button(console, btn, down) })
}

func (h *logInjector) QueueRel(console int, axis bridge.Axis, delta int32) error {
	return h.enqueue(func(q *queue) { q.rel(console, axis, delta) })
}

func (h *logInjector) QueueAbs(console int, axis bridge.Axis, value, min, max int32) error {
	return h.enqueue(func(q *queue) { q.abs(console, axis, value, min, max) })
}

func (h *logInjector) enqueue(fn func(q *queue)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandlerClosed
	}
	fn(&h.queue)
	return nil
}

func (h *logInjector) Sync() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandlerClosed
	}
	for _, o := range h.queue.take() {
		switch o.kind {
		case opButton:
			logger.Debug("Button", "console", o.console, "button", o.btn, "down", o.down)
		case opRel:
			logger.Debug("Motion", "console", o.console, "axis", o.axis, "delta", o.value)
		case opAbs:
			logger.Debug("Position", "console", o.console, "axis", o.axis, "value", o.value, "min", o.min, "max", o.max)
		}
	}
	h.synced++
	return nil
}

func (h *logInjector) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}
