package bridge

import (
	"testing"

	"github.com/bnema/vmshm/internal/config"
	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/shmif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextPool(t *testing.T) {
	var p ContextPool
	for i := 0; i < ContextSlots; i++ {
		c, err := p.Acquire()
		require.NoError(t, err)
		require.Equal(t, Context(i), c)
	}
	assert.Equal(t, ContextSlots, p.InUse())

	_, err := p.Acquire()
	assert.ErrorIs(t, err, ErrContextsExhausted)

	p.Release(5)
	p.Release(5)
	p.Release(-1)
	p.Release(ContextSlots)
	assert.Equal(t, ContextSlots-1, p.InUse())

	c, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, Context(5), c, "lowest free slot is reused")
}

func acceleratedRig() *rig {
	p := config.DefaultParams
	p.Accelerated = true
	return newRig(p)
}

func TestGPUContexts(t *testing.T) {
	t.Run("cpu bridge refuses contexts", func(t *testing.T) {
		r := newRig(config.DefaultParams)
		_, err := r.bridge.CreateContext(3, 3)
		assert.ErrorIs(t, err, ErrNotAccelerated)
		assert.ErrorIs(t, r.bridge.MakeContextCurrent(0), ErrNotAccelerated)
	})

	t.Run("create and destroy", func(t *testing.T) {
		r := acceleratedRig()
		c, err := r.bridge.CreateContext(3, 3)
		require.NoError(t, err)
		assert.Equal(t, Context(0), c)
		assert.Equal(t, []shmif.AccelConfig{{Major: 3, Minor: 3}}, r.seg.accelSetups)
		assert.Equal(t, 1, r.reg.Contexts().InUse())
		assert.NoError(t, r.bridge.MakeContextCurrent(c))

		r.bridge.DestroyContext(c)
		assert.Equal(t, 1, r.seg.ctxDrops)
		assert.Zero(t, r.reg.Contexts().InUse())
	})

	t.Run("exhausted pool", func(t *testing.T) {
		r := acceleratedRig()
		for i := 0; i < ContextSlots; i++ {
			_, err := r.reg.Contexts().Acquire()
			require.NoError(t, err)
		}
		_, err := r.bridge.CreateContext(3, 3)
		assert.ErrorIs(t, err, ErrContextsExhausted)
		assert.Empty(t, r.seg.accelSetups)
	})
}

func TestScanout(t *testing.T) {
	t.Run("texture forwarding with a live context", func(t *testing.T) {
		r := acceleratedRig()
		r.bridge.SwitchSurface(display.NewSurface(16, 16, display.FormatX8R8G8B8))
		_, err := r.bridge.CreateContext(3, 3)
		require.NoError(t, err)

		rect := display.Rect{W: 16, H: 16}
		r.bridge.ScanoutTexture(7, rect)
		assert.Equal(t, BlitTexturePack, r.bridge.Mode())
		assert.Equal(t, []uint32{7}, r.seg.textures)
		assert.Equal(t, []display.Rect{rect}, r.seg.dirty)

		// texture mode does not touch the CPU buffer
		r.bridge.Update(rect)
		assert.Equal(t, make([]byte, len(r.seg.buf)), r.seg.buf)

		r.bridge.ScanoutDisable()
		assert.Equal(t, BlitRepack, r.bridge.Mode())
	})

	t.Run("no live context only marks dirty", func(t *testing.T) {
		r := acceleratedRig()
		r.bridge.ScanoutTexture(7, display.Rect{W: 1, H: 1})
		assert.Equal(t, BlitTexturePack, r.bridge.Mode())
		assert.Empty(t, r.seg.textures)
		assert.Len(t, r.seg.dirty, 1)
	})

	t.Run("cpu bridge ignores scanout", func(t *testing.T) {
		r := newRig(config.DefaultParams)
		r.bridge.ScanoutTexture(7, display.Rect{W: 1, H: 1})
		assert.Equal(t, BlitRepack, r.bridge.Mode())
		assert.Empty(t, r.seg.dirty)
	})

	t.Run("disable restores direct for matching layouts", func(t *testing.T) {
		r := acceleratedRig()
		r.seg.native = display.FormatX8R8G8B8
		r.bridge.SwitchSurface(display.NewSurface(8, 8, display.FormatX8R8G8B8))
		r.bridge.ScanoutTexture(1, display.Rect{W: 8, H: 8})
		r.bridge.ScanoutDisable()
		assert.Equal(t, BlitDirect, r.bridge.Mode())
	})
}
