package input

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/vmshm/internal/bridge"
	"github.com/bnema/vmshm/internal/keymap"
	"github.com/bnema/vmshm/internal/logger"
)

// pointer is the subset of uinput.Mouse the injector drives
type pointer interface {
	Move(x, y int32) error
	LeftPress() error
	LeftRelease() error
	RightPress() error
	RightRelease() error
	MiddlePress() error
	MiddleRelease() error
	Wheel(horizontal bool, delta int32) error
	Close() error
}

// keyboard is the subset of uinput.Keyboard the injector drives
type keyboard interface {
	KeyDown(key int) error
	KeyUp(key int) error
	Close() error
}

// uInputInjector implements Injector using direct uinput bindings
type uInputInjector struct {
	mouse    pointer
	keyboard keyboard
	mu       sync.Mutex
	closed   bool
	queue    queue
	// Track current position to turn absolute samples into relative moves
	currentX int32
	currentY int32
}

// newUInputInjector creates a virtual mouse and keyboard on devicePath
func newUInputInjector(devicePath, name string) (*uInputInjector, error) {
	if devicePath == "" {
		devicePath = "/dev/uinput"
	}
	if name == "" {
		name = "vmshm"
	}

	mouse, err := uinput.CreateMouse(devicePath, []byte(name+" Virtual Mouse"))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual mouse: %w", err)
	}
	kb, err := uinput.CreateKeyboard(devicePath, []byte(name+" Virtual Keyboard"))
	if err != nil {
		mouse.Close()
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}

	logger.Info("Created uinput devices", "path", devicePath, "name", name)
	return newDeviceInjector(mouse, kb), nil
}

func newDeviceInjector(mouse pointer, kb keyboard) *uInputInjector {
	return &uInputInjector{mouse: mouse, keyboard: kb}
}

// SendKey emits a key transition immediately
func (h *uInputInjector) SendKey(code keymap.Code, down bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandlerClosed
	}
	if down {
		return h.keyboard.KeyDown(int(code))
	}
	return h.keyboard.KeyUp(int(code))
}

func (h *uInputInjector) QueueButton(console int, btn bridge.Button, down bool) error {
	return h.enqueue(func(q *queue) { q.button(console, btn, down) })
}

func (h *uInputInjector) QueueRel(console int, axis bridge.Axis, delta int32) error {
	return h.enqueue(func(q *queue) { q.rel(console, axis, delta) })
}

func (h *uInputInjector) QueueAbs(console int, axis bridge.Axis, value, min, max int32) error {
	return h.enqueue(func(q *queue) { q.abs(console, axis, value, min, max) })
}

func (h *uInputInjector) enqueue(fn func(q *queue)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandlerClosed
	}
	fn(&h.queue)
	return nil
}

// Sync applies the queued pointer changes. Motion is coalesced into one
// move between button transitions.
func (h *uInputInjector) Sync() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandlerClosed
	}

	var (
		errs   []error
		dx, dy int32
	)
	flushMove := func() {
		if dx == 0 && dy == 0 {
			return
		}
		if err := h.mouse.Move(dx, dy); err != nil {
			errs = append(errs, err)
		}
		h.currentX += dx
		h.currentY += dy
		dx, dy = 0, 0
	}

	for _, o := range h.queue.take() {
		switch o.kind {
		case opRel:
			if o.axis == bridge.AxisX {
				dx += o.value
			} else {
				dy += o.value
			}
		case opAbs:
			pos := max(o.min, min(o.value, o.max)) - o.min
			if o.axis == bridge.AxisX {
				dx = pos - h.currentX
			} else {
				dy = pos - h.currentY
			}
		case opButton:
			flushMove()
			if err := h.handleButton(o.btn, o.down); err != nil {
				errs = append(errs, err)
			}
		}
	}
	flushMove()
	return errors.Join(errs...)
}

func (h *uInputInjector) handleButton(btn bridge.Button, down bool) error {
	switch btn {
	case bridge.ButtonLeft:
		if down {
			return h.mouse.LeftPress()
		}
		return h.mouse.LeftRelease()
	case bridge.ButtonRight:
		if down {
			return h.mouse.RightPress()
		}
		return h.mouse.RightRelease()
	case bridge.ButtonMiddle:
		if down {
			return h.mouse.MiddlePress()
		}
		return h.mouse.MiddleRelease()
	case bridge.ButtonWheelUp:
		// one notch per press, releases carry nothing
		if down {
			return h.mouse.Wheel(false, 1)
		}
		return nil
	case bridge.ButtonWheelDown:
		if down {
			return h.mouse.Wheel(false, -1)
		}
		return nil
	default:
		return fmt.Errorf("unknown button %v", btn)
	}
}

// Close closes the virtual devices
func (h *uInputInjector) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	h.closed = true

	var err error
	if h.mouse != nil {
		err = h.mouse.Close()
	}
	if h.keyboard != nil {
		if e := h.keyboard.Close(); e != nil && err == nil {
			err = e
		}
	}

	return err
}
