package bridge

import (
	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/shmif"
)

// BlitMode selects how surface pixels reach the segment buffer
type BlitMode uint8

const (
	// BlitShare leaves the buffer untouched; reserved for zero-copy setups
	BlitShare BlitMode = iota
	// BlitDirect copies rows verbatim when both sides share a layout
	BlitDirect
	// BlitRepack converts BGRx rows into the segment layout
	BlitRepack
	// BlitTexturePack forwards a GPU texture instead of copying pixels
	BlitTexturePack
)

func (m BlitMode) String() string {
	switch m {
	case BlitShare:
		return "share"
	case BlitDirect:
		return "direct"
	case BlitRepack:
		return "repack"
	case BlitTexturePack:
		return "texture"
	default:
		return "unknown"
	}
}

type blitFunc func(b *Bridge, seg shmif.Segment, r display.Rect)

var blitters = [...]blitFunc{
	BlitShare:       blitNone,
	BlitDirect:      blitDirect,
	BlitRepack:      blitRepack,
	BlitTexturePack: blitNone,
}

// selectMode picks the CPU strategy for a surface format
func selectMode(src, native display.Format) BlitMode {
	if src == native {
		return BlitDirect
	}
	return BlitRepack
}

// CheckFormat reports whether a surface in format f can be mirrored
func (b *Bridge) CheckFormat(f display.Format) bool {
	return display.CheckFormat(f)
}

// Update mirrors the damaged rectangle r of the current surface into the
// segment and publishes it. With more than one video buffer the whole
// segment is marked dirty since the compositor may hold a stale copy.
func (b *Bridge) Update(r display.Rect) {
	if !b.usable() {
		return
	}
	seg := b.segment
	if b.params().VideoBuffers > 1 {
		r = display.FullRect(seg.Width(), seg.Height())
	}
	if int(b.mode) < len(blitters) {
		blitters[b.mode](b, seg, r)
	}
	seg.SetDirty(r)
	if err := seg.Signal(shmif.SignalVideo); err != nil {
		b.log.Debug("Video signal failed", "error", err)
	}
}

func blitNone(*Bridge, shmif.Segment, display.Rect) {}

// copyRegion clips r to both buffers. ok is false when nothing can be
// copied.
func copyRegion(s *display.Surface, seg shmif.Segment, r display.Rect) (display.Rect, bool) {
	if s == nil || s.Format.BytesPerPixel() != 4 {
		return display.Rect{}, false
	}
	clip := r.Intersect(s.Bounds()).Intersect(display.FullRect(seg.Width(), seg.Height()))
	if clip.Empty() {
		return clip, false
	}
	return clip, true
}

func blitDirect(b *Bridge, seg shmif.Segment, r display.Rect) {
	clip, ok := copyRegion(b.surface, seg, r)
	if !ok {
		return
	}
	dst := seg.VideoBuffer()
	stride := seg.Stride()
	n := clip.W * 4
	for y := clip.Y; y < clip.Y+clip.H; y++ {
		src := b.surface.Row(clip.X, y)
		off := y*stride + clip.X*4
		if src == nil || off+n > len(dst) {
			return
		}
		copy(dst[off:off+n], src[:n])
	}
}

// channel byte offsets inside one 32-bit pixel, little-endian memory order
type channels struct{ r, g, b, a int }

var layouts = map[display.Format]channels{
	display.FormatX8R8G8B8: {r: 2, g: 1, b: 0, a: 3},
	display.FormatA8R8G8B8: {r: 2, g: 1, b: 0, a: 3},
	display.FormatB8G8R8X8: {r: 1, g: 2, b: 3, a: 0},
	display.FormatB8G8R8A8: {r: 1, g: 2, b: 3, a: 0},
	display.FormatX8B8G8R8: {r: 0, g: 1, b: 2, a: 3},
	display.FormatA8B8G8R8: {r: 0, g: 1, b: 2, a: 3},
}

// blitRepack reorders source pixels into the segment layout with opaque
// alpha
func blitRepack(b *Bridge, seg shmif.Segment, r display.Rect) {
	clip, ok := copyRegion(b.surface, seg, r)
	if !ok {
		return
	}
	in, ok := layouts[b.surface.Format]
	if !ok {
		return
	}
	out, ok := layouts[seg.NativeFormat()]
	if !ok {
		out = layouts[display.FormatA8B8G8R8]
	}
	dst := seg.VideoBuffer()
	stride := seg.Stride()
	for y := clip.Y; y < clip.Y+clip.H; y++ {
		src := b.surface.Row(clip.X, y)
		off := y*stride + clip.X*4
		if src == nil || off+clip.W*4 > len(dst) {
			return
		}
		row := dst[off : off+clip.W*4]
		for i := 0; i < len(row); i += 4 {
			row[i+out.r] = src[i+in.r]
			row[i+out.g] = src[i+in.g]
			row[i+out.b] = src[i+in.b]
			row[i+out.a] = 0xff
		}
	}
}
