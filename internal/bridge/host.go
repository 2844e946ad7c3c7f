package bridge

import (
	"time"

	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/keymap"
)

// Listener receives display changes from a host console. *Bridge
// implements it.
type Listener interface {
	Update(r display.Rect)
	SwitchSurface(s *display.Surface)
	CheckFormat(f display.Format) bool
	Refresh()
}

// Console is one guest display as seen by the host video layer
type Console interface {
	Index() int
	IsGraphic() bool
	Surface() *display.Surface
	// Register attaches a change listener. The host may call
	// SwitchSurface on the listener before Register returns.
	Register(l Listener) error
	Unregister(l Listener)
	SetRefreshInterval(d time.Duration)
	// RequestUpdate asks the emulated display hardware to push any
	// pending changes through Update
	RequestUpdate()
}

// ConsoleSource enumerates host consoles by index
type ConsoleSource interface {
	Console(index int) (Console, bool)
}

// Button is a guest pointer button
type Button uint8

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
	ButtonWheelUp
	ButtonWheelDown
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	case ButtonWheelUp:
		return "wheel-up"
	case ButtonWheelDown:
		return "wheel-down"
	default:
		return "unknown"
	}
}

// Axis is a guest pointer axis
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	if a == AxisX {
		return "x"
	}
	return "y"
}

// Injector queues input into the guest. Pointer calls name the console
// they belong to; Sync flushes everything queued since the last call.
type Injector interface {
	SendKey(code keymap.Code, down bool) error
	QueueButton(console int, btn Button, down bool) error
	QueueRel(console int, axis Axis, delta int32) error
	QueueAbs(console int, axis Axis, value, min, max int32) error
	Sync() error
}

// Cause tags a run-state request
type Cause uint8

const (
	CauseHostUI Cause = iota
	CauseGuestReset
)

func (c Cause) String() string {
	if c == CauseGuestReset {
		return "guest-reset"
	}
	return "host-ui"
}

// RunState is the guest lifecycle as controlled by the host
type RunState interface {
	RequestShutdown(cause Cause)
	RequestReset(cause Cause)
	IsRunning() bool
}

// LEDState is a bitmask of keyboard lock indicators
type LEDState uint8

const (
	LEDScrollLock LEDState = 1 << 0
	LEDNumLock    LEDState = 1 << 1
	LEDCapsLock   LEDState = 1 << 2
)

// Notifier delivers host change notifications
type Notifier interface {
	OnLEDChange(fn func(LEDState))
	OnRunStateChange(fn func(running bool))
}

// Host bundles the collaborators the bridge calls into. Notifier is
// optional.
type Host struct {
	Consoles ConsoleSource
	Input    Injector
	Machine  RunState
	Notifier Notifier
}
