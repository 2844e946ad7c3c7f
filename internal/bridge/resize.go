package bridge

import (
	"fmt"

	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/shmif"
)

// SwitchSurface adopts a new host surface. The segment is resized to match
// and the blit mode is derived from the surface layout. A nil surface only
// re-applies the buffering parameters at the current geometry.
//
// When the segment is not usable yet the surface is remembered and applied
// on Attach or on the next refresh.
func (b *Bridge) SwitchSurface(s *display.Surface) {
	if s != nil && !b.CheckFormat(s.Format) {
		b.log.Warn("Refusing surface switch", "format", s.Format, "error", ErrUnsupportedFormat)
		return
	}
	if !b.usable() {
		b.pending, b.hasPending = s, true
		return
	}
	if err := b.resize(s); err != nil {
		b.log.Warn("Segment resize failed", "error", err)
		return
	}
	if s != nil {
		b.surface = s
		b.mode = selectMode(s.Format, b.segment.NativeFormat())
		b.log.Debug("Surface switched", "width", s.Width, "height", s.Height, "format", s.Format, "mode", b.mode)
	}
}

// Resize re-applies the current surface geometry, e.g. after the host
// changed its dimensions in place
func (b *Bridge) Resize() {
	b.SwitchSurface(b.surface)
}

func (b *Bridge) resize(s *display.Surface) error {
	seg := b.segment
	w, h := seg.Width(), seg.Height()
	if s != nil {
		w, h = s.Width, s.Height
	}

	hints := shmif.HintSubregion | shmif.HintIgnoreAlpha
	if b.accelerated() {
		hints |= shmif.HintOrigoUL
	}

	p := b.params()
	seg.Lock()
	defer seg.Unlock()
	seg.SetHints(hints)
	if err := seg.Resize(w, h, shmif.ResizeExt{
		VideoBuffers: p.VideoBuffers,
		AudioBuffers: p.AudioBuffers,
		AudioBufSize: p.AudioBufSize,
	}); err != nil {
		return fmt.Errorf("resize to %dx%d: %w", w, h, err)
	}
	return nil
}
