package bridge

import (
	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/shmif"
)

func (b *Bridge) machine() RunState {
	if b.registry == nil {
		return nil
	}
	return b.registry.host.Machine
}

// handleTarget applies a compositor lifecycle request
func (b *Bridge) handleTarget(ev *shmif.TargetEvent) {
	m := b.machine()

	switch ev.Kind {
	case shmif.TargetExit:
		b.log.Info("Compositor requested exit")
		if m != nil {
			m.RequestShutdown(CauseHostUI)
		}

	case shmif.TargetDisplayHint:
		b.displayHint(ev.Values[2].IV)

	case shmif.TargetReset:
		switch ev.Values[0].IV {
		case shmif.ResetSoft, shmif.ResetHard:
			b.log.Info("Compositor requested guest reset", "kind", ev.Values[0].IV)
			if m != nil {
				m.RequestReset(CauseGuestReset)
			}
		case shmif.ResetRecover, shmif.ResetMigrate:
			b.log.Debug("Connection recovered", "kind", ev.Values[0].IV)
		}
		b.redraw()

	case shmif.TargetPause, shmif.TargetUnpause:
		running := m != nil && m.IsRunning()
		b.log.Debug("Ignoring run-state request", "kind", ev.Kind, "running", running)

	case shmif.TargetNewSegment:
		b.log.Debug("Ignoring pushed segment")

	default:
		b.log.Debug("Ignoring target event", "kind", ev.Kind)
	}
}

func (b *Bridge) displayHint(flags int32) {
	if flags&shmif.HintUnchanged != 0 {
		return
	}

	var opts Options
	if b.registry != nil {
		opts = b.registry.opts
	}
	if flags&shmif.HintInvisible != 0 {
		if b.console != nil {
			b.console.SetRefreshInterval(opts.HiddenRefreshInterval)
		}
		b.hidden = true
	} else if b.hidden {
		if b.console != nil {
			b.console.SetRefreshInterval(opts.RefreshInterval)
		}
		b.hidden = false
	}

	if flags&shmif.HintUnfocused != 0 {
		if n := b.ResetKeys(); n > 0 {
			b.log.Debug("Released held keys on focus loss", "count", n)
		}
	}
}

// redraw republishes the whole segment after the guest or the connection
// was reset
func (b *Bridge) redraw() {
	if !b.usable() {
		return
	}
	b.segment.SetDirty(display.FullRect(b.segment.Width(), b.segment.Height()))
	if err := b.segment.Signal(shmif.SignalVideo); err != nil {
		b.log.Debug("Video signal failed", "error", err)
	}
}
