package bridge

import "github.com/bnema/vmshm/internal/shmif"

// PumpOnce drains every queued compositor event without blocking and
// dispatches it. Input is flushed to the guest once at the end when any
// handled event asked for it. It returns the number of events consumed.
func (b *Bridge) PumpOnce() int {
	n := 0
	flush := false
	for b.segment != nil {
		ev, ok := b.segment.Poll()
		if !ok {
			break
		}
		n++
		switch ev.Category {
		case shmif.CategoryIO:
			if b.handleInput(&ev.IO) {
				flush = true
			}
		case shmif.CategoryTarget, shmif.CategorySystem:
			b.handleTarget(&ev.Target)
		default:
			b.log.Debug("Ignoring event", "category", ev.Category)
		}
	}
	if flush {
		if in := b.input(); in != nil {
			if err := in.Sync(); err != nil {
				b.log.Warn("Input sync failed", "error", err)
			}
		}
	}
	return n
}
