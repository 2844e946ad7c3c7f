package bridge

import (
	"github.com/bnema/vmshm/internal/keymap"
	"github.com/bnema/vmshm/internal/shmif"
)

var buttons = map[uint16]Button{
	shmif.MouseButtonLeft:      ButtonLeft,
	shmif.MouseButtonMiddle:    ButtonMiddle,
	shmif.MouseButtonRight:     ButtonRight,
	shmif.MouseButtonWheelUp:   ButtonWheelUp,
	shmif.MouseButtonWheelDown: ButtonWheelDown,
}

func (b *Bridge) input() Injector {
	if b.registry == nil {
		return nil
	}
	return b.registry.host.Input
}

// handleInput forwards one compositor input sample into the guest. The
// result tells whether queued pointer input needs a flush.
func (b *Bridge) handleInput(ev *shmif.IOEvent) bool {
	in := b.input()
	if in == nil {
		return false
	}
	if ev.DevKind != shmif.DevKeyboard && ev.DevKind != shmif.DevMouse {
		return false
	}

	switch ev.DataType {
	case shmif.DataTranslated:
		b.translatedKey(in, ev.Translated)
		return false

	case shmif.DataDigital:
		btn, ok := buttons[ev.SubID]
		if !ok {
			return false
		}
		if err := in.QueueButton(b.index, btn, ev.Digital.Active); err != nil {
			b.log.Debug("Button injection failed", "button", btn, "error", err)
		}
		return true

	case shmif.DataAnalog:
		return b.pointerMotion(in, ev.SubID, ev.Analog)
	}
	return false
}

func (b *Bridge) translatedKey(in Injector, t shmif.Translated) {
	sym := keymap.Sym(t.Keysym)
	code, ok := keymap.Translate(sym)
	if !ok {
		b.log.Debug("Dropping untranslatable key", "keysym", t.Keysym)
		return
	}
	b.keys.Set(sym, t.Active)
	if err := in.SendKey(code, t.Active); err != nil {
		b.log.Debug("Key injection failed", "code", code, "error", err)
	}
}

type axisSample struct {
	axis  Axis
	value int32
}

func (b *Bridge) pointerMotion(in Injector, subid uint16, a shmif.Analog) bool {
	var axes []axisSample
	switch subid {
	case shmif.AxisX:
		axes = []axisSample{{AxisX, a.Axes[0]}}
	case shmif.AxisY:
		axes = []axisSample{{AxisY, a.Axes[0]}}
	case shmif.AxisXY:
		axes = []axisSample{{AxisX, a.Axes[0]}, {AxisY, a.Axes[2]}}
	default:
		return false
	}

	for _, s := range axes {
		var err error
		if a.Relative {
			err = in.QueueRel(b.index, s.axis, s.value)
		} else {
			err = in.QueueAbs(b.index, s.axis, s.value, 0, b.axisExtent(s.axis))
		}
		if err != nil {
			b.log.Debug("Pointer injection failed", "axis", s.axis, "error", err)
		}
	}
	return true
}

func (b *Bridge) axisExtent(a Axis) int32 {
	if b.segment == nil {
		return 0
	}
	if a == AxisX {
		return int32(b.segment.Width())
	}
	return int32(b.segment.Height())
}

// ResetKeys releases every held key in the guest, e.g. when the display
// loses focus. Symbols sharing a guest code release it once. It returns the
// number of release events sent.
func (b *Bridge) ResetKeys() int {
	in := b.input()
	released := make(map[keymap.Code]struct{})
	b.keys.Each(func(sym keymap.Sym) {
		code, ok := keymap.Translate(sym)
		if !ok || in == nil {
			return
		}
		if _, done := released[code]; done {
			return
		}
		released[code] = struct{}{}
		if err := in.SendKey(code, false); err != nil {
			b.log.Debug("Key release failed", "code", code, "error", err)
		}
	})
	n := len(released)
	b.keys.Clear()
	return n
}
