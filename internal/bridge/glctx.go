package bridge

import (
	"fmt"
	"sync"

	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/shmif"
)

// ContextSlots is the number of GPU contexts a connection can hold
const ContextSlots = 64

// Context is a handle to an allocated GPU context slot
type Context int

// ContextPool is a fixed-capacity allocator of GPU context slots shared by
// every bridge of a connection
type ContextPool struct {
	mu    sync.Mutex
	slots [ContextSlots]bool
	used  int
}

// Acquire takes the lowest free slot
func (p *ContextPool) Acquire() (Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, taken := range p.slots {
		if !taken {
			p.slots[i] = true
			p.used++
			return Context(i), nil
		}
	}
	return -1, ErrContextsExhausted
}

// Release frees a slot. Releasing a free or invalid slot is a no-op.
func (p *ContextPool) Release(c Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c < 0 || int(c) >= ContextSlots || !p.slots[c] {
		return
	}
	p.slots[c] = false
	p.used--
}

// InUse returns the number of allocated slots
func (p *ContextPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

func (b *Bridge) accel() (shmif.Accelerated, error) {
	if !b.accelerated() || b.segment == nil {
		return nil, ErrNotAccelerated
	}
	acc, ok := b.segment.(shmif.Accelerated)
	if !ok {
		return nil, ErrNotAccelerated
	}
	return acc, nil
}

func (b *Bridge) pool() *ContextPool {
	if b.registry == nil {
		return nil
	}
	return b.registry.contexts
}

// CreateContext allocates a GPU context slot and sets up a context of the
// requested version on the segment
func (b *Bridge) CreateContext(major, minor int) (Context, error) {
	acc, err := b.accel()
	if err != nil {
		return -1, err
	}
	pool := b.pool()
	if pool == nil {
		return -1, ErrNotAccelerated
	}
	ctx, err := pool.Acquire()
	if err != nil {
		b.log.Warn("No free GPU context slot", "slots", ContextSlots)
		return -1, err
	}
	if err := acc.SetupAccel(shmif.AccelConfig{Major: major, Minor: minor}); err != nil {
		pool.Release(ctx)
		return -1, fmt.Errorf("setup gpu context %d.%d: %w", major, minor, err)
	}
	b.log.Debug("GPU context created", "slot", ctx, "major", major, "minor", minor)
	return ctx, nil
}

// DestroyContext drops the GPU context and frees its slot
func (b *Bridge) DestroyContext(ctx Context) {
	if acc, err := b.accel(); err == nil {
		acc.DropContext()
	}
	if pool := b.pool(); pool != nil {
		pool.Release(ctx)
	}
}

// MakeContextCurrent binds the segment context for rendering
func (b *Bridge) MakeContextCurrent(Context) error {
	acc, err := b.accel()
	if err != nil {
		return err
	}
	return acc.MakeCurrent()
}

// ScanoutTexture switches the bridge to texture forwarding. The texture is
// only signalled while at least one GPU context is live.
func (b *Bridge) ScanoutTexture(tex uint32, r display.Rect) {
	acc, err := b.accel()
	if err != nil {
		return
	}
	b.mode = BlitTexturePack
	b.segment.SetDirty(r)
	if pool := b.pool(); pool == nil || pool.InUse() == 0 {
		return
	}
	if err := acc.SignalTexture(tex, shmif.SignalVideo); err != nil {
		b.log.Debug("Texture signal failed", "texture", tex, "error", err)
	}
}

// ScanoutDisable returns to CPU transfer for the current surface
func (b *Bridge) ScanoutDisable() {
	if b.mode != BlitTexturePack {
		return
	}
	b.mode = BlitRepack
	if b.surface != nil && b.segment != nil {
		b.mode = selectMode(b.surface.Format, b.segment.NativeFormat())
	}
}
