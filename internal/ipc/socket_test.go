package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/shmif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler answers segment requests from a script and records
// every other frame
type recordingHandler struct {
	mu      sync.Mutex
	replies []Reply
	hold    chan struct{}

	peers  chan *Peer
	frames chan *Frame
}

func newRecordingHandler(replies ...Reply) *recordingHandler {
	return &recordingHandler{
		replies: replies,
		peers:   make(chan *Peer, 4),
		frames:  make(chan *Frame, 64),
	}
}

func (h *recordingHandler) HandleConnect(p *Peer) {
	h.peers <- p
}

func (h *recordingHandler) HandleSegmentRequest(p *Peer, kind shmif.Kind) Reply {
	if h.hold != nil {
		<-h.hold
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.replies) == 0 {
		return ReplyDecline
	}
	r := h.replies[0]
	h.replies = h.replies[1:]
	return r
}

func (h *recordingHandler) HandleFrame(p *Peer, f *Frame) {
	h.frames <- f
}

func (h *recordingHandler) peer(t *testing.T) *Peer {
	t.Helper()
	select {
	case p := <-h.peers:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never connected")
		return nil
	}
}

// next returns the next recorded frame of the given kind
func (h *recordingHandler) next(t *testing.T, kind FrameKind) *Frame {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-h.frames:
			if f.Kind == kind {
				return f
			}
		case <-timeout:
			t.Fatalf("no %s frame received", kind)
			return nil
		}
	}
}

func startServer(t *testing.T, h Handler, args map[string]string) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	srv, err := NewServer(filepath.Join(dir, "compositor.sock"), ServerOptions{
		BufferDir: dir,
		Width:     64,
		Height:    32,
		Args:      args,
	}, h)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv, dir
}

func openPrimary(t *testing.T, srv *Server, dir string) *Primary {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	prim, _, err := NewTransport(srv.SocketPath(), dir).Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { prim.(*Primary).Drop() })
	return prim.(*Primary)
}

func TestServerStartStop(t *testing.T) {
	srv, _ := startServer(t, nil, nil)

	if _, err := os.Stat(srv.SocketPath()); err != nil {
		t.Fatalf("Socket file was not created: %v", err)
	}
	info, err := os.Stat(srv.SocketPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	srv.Stop()
	if _, err := os.Stat(srv.SocketPath()); !os.IsNotExist(err) {
		t.Errorf("Socket file was not removed after stop")
	}

	// stopping twice is harmless
	srv.Stop()
}

func TestServerMultipleStarts(t *testing.T) {
	srv, _ := startServer(t, nil, nil)
	if err := srv.Start(); err != nil {
		t.Errorf("Second start failed: %v", err)
	}
}

func TestServerCleanupExistingSocket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compositor.sock")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0600))

	srv, err := NewServer(path, ServerOptions{BufferDir: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSocket)
}

func TestTransportOpen(t *testing.T) {
	t.Run("hello maps the primary", func(t *testing.T) {
		h := newRecordingHandler()
		srv, dir := startServer(t, h, map[string]string{"vbufc": "2"})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		prim, args, err := NewTransport(srv.SocketPath(), dir).Open(ctx)
		require.NoError(t, err)
		defer prim.Drop()

		assert.Equal(t, "2", args["vbufc"])
		assert.True(t, prim.Mapped())
		assert.Equal(t, 64, prim.Width())
		assert.Equal(t, 32, prim.Height())
		assert.Equal(t, 64*4, prim.Stride())
		assert.Equal(t, display.FormatA8B8G8R8, prim.NativeFormat())
		assert.Len(t, prim.VideoBuffer(), 64*32*4)
		assert.Equal(t, h.peer(t).Primary(), prim.ID())
	})

	t.Run("missing socket", func(t *testing.T) {
		_, _, err := NewTransport(filepath.Join(t.TempDir(), "none.sock"), "").Open(context.Background())
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, _, err := NewTransport("", "").Open(context.Background())
		assert.Error(t, err)
	})
}

func TestSegmentResize(t *testing.T) {
	h := newRecordingHandler()
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)

	prim.Lock()
	prim.SetHints(shmif.HintSubregion | shmif.HintIgnoreAlpha)
	err := prim.Resize(100, 50, shmif.ResizeExt{VideoBuffers: 1, AudioBuffers: 8, AudioBufSize: 4096})
	prim.Unlock()
	require.NoError(t, err)

	f := h.next(t, FrameResize)
	assert.Equal(t, 100, f.Width)
	assert.Equal(t, 50, f.Height)
	assert.Equal(t, 4096, f.Ext.AudioBufSize)
	assert.Equal(t, shmif.HintSubregion|shmif.HintIgnoreAlpha, f.Hints)
	assert.Equal(t, prim.Path(), f.Path)

	info, err := os.Stat(f.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(100*50*4+4096), info.Size())
	assert.Len(t, prim.VideoBuffer(), 100*50*4)
	assert.Len(t, prim.AudioBuffer(), 4096)
	assert.Equal(t, 400, prim.Stride())

	assert.Error(t, prim.Resize(0, 10, shmif.ResizeExt{}))
}

func TestSegmentSignal(t *testing.T) {
	h := newRecordingHandler()
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)

	prim.SetDirty(display.Rect{X: 1, Y: 2, W: 3, H: 4})
	prim.SetDirty(display.Rect{X: 10, Y: 10, W: 1, H: 1})
	prim.SetDirty(display.Rect{})
	require.NoError(t, prim.Signal(shmif.SignalVideo))

	f := h.next(t, FrameSignal)
	assert.Equal(t, display.Rect{X: 1, Y: 2, W: 10, H: 9}, f.Dirty)
	assert.Equal(t, shmif.SignalVideo, f.Mask)

	// damage is consumed by the signal
	require.NoError(t, prim.Signal(shmif.SignalVideo))
	assert.True(t, h.next(t, FrameSignal).Dirty.Empty())
}

func TestSegmentEnqueue(t *testing.T) {
	h := newRecordingHandler()
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)

	require.NoError(t, prim.Enqueue(shmif.Ident("VM[0][]:test(Running)")))
	f := h.next(t, FrameEnqueue)
	assert.Equal(t, shmif.ExternalIdent, f.Event.External.Kind)
	assert.Equal(t, "VM[0][]:test(Running)", f.Event.External.Message)

	assert.Error(t, prim.Enqueue(shmif.Event{Category: shmif.CategoryIO}))
}

func TestSegmentPoll(t *testing.T) {
	h := newRecordingHandler()
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)
	peer := h.peer(t)

	_, ok := prim.Poll()
	assert.False(t, ok)

	key := shmif.Event{Category: shmif.CategoryIO, IO: shmif.IOEvent{
		DevKind:    shmif.DevKeyboard,
		DataType:   shmif.DataTranslated,
		Translated: shmif.Translated{Keysym: 97, Active: true},
	}}
	require.NoError(t, peer.SendEvent(peer.Primary(), key))
	require.NoError(t, peer.SendEvent(999, key))

	var got shmif.Event
	require.Eventually(t, func() bool {
		var ok bool
		got, ok = prim.Poll()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, key, got)

	// the event for an unknown segment is dropped
	_, ok = prim.Poll()
	assert.False(t, ok)
}

func TestRequestSubsegment(t *testing.T) {
	h := newRecordingHandler(ReplyAccept, ReplyDecline, ReplyRefuse)
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)
	peer := h.peer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := prim.RequestSubsegment(ctx, shmif.KindVM)
	require.NoError(t, err)
	assert.True(t, sub.Mapped())
	assert.Equal(t, 64, sub.Width())
	assert.NotEqual(t, prim.ID(), sub.ID())

	_, err = prim.RequestSubsegment(ctx, shmif.KindVM)
	assert.ErrorIs(t, err, shmif.ErrDeclined)

	_, err = prim.RequestSubsegment(ctx, shmif.KindVM)
	assert.ErrorIs(t, err, shmif.ErrRefused)

	t.Run("compositor drop becomes exit", func(t *testing.T) {
		require.NoError(t, peer.DropSegment(sub.ID()))
		var ev shmif.Event
		require.Eventually(t, func() bool {
			var ok bool
			ev, ok = sub.Poll()
			return ok
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, shmif.CategoryTarget, ev.Category)
		assert.Equal(t, shmif.TargetExit, ev.Target.Kind)
	})

	t.Run("bridge drop", func(t *testing.T) {
		require.NoError(t, sub.Drop())
		f := h.next(t, FrameDrop)
		assert.Equal(t, sub.ID(), f.Segment)
		assert.False(t, sub.Mapped())
		assert.NoError(t, sub.Drop())
		assert.ErrorIs(t, sub.Signal(shmif.SignalVideo), shmif.ErrClosed)
	})
}

func TestRequestSubsegmentTimeout(t *testing.T) {
	h := newRecordingHandler(ReplyAccept)
	h.hold = make(chan struct{})
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)
	defer close(h.hold)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := prim.RequestSubsegment(ctx, shmif.KindVM)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectionLoss(t *testing.T) {
	h := newRecordingHandler(ReplyAccept)
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)
	h.peer(t)

	srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Eventually(t, func() bool {
		_, err := prim.RequestSubsegment(ctx, shmif.KindVM)
		return errors.Is(err, shmif.ErrClosed)
	}, 2*time.Second, 10*time.Millisecond)

	ev, ok := prim.Poll()
	require.True(t, ok, "connection loss queues an exit")
	assert.Equal(t, shmif.TargetExit, ev.Target.Kind)
}

func TestPrimaryDropClosesConnection(t *testing.T) {
	h := newRecordingHandler()
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)

	require.NoError(t, prim.Drop())
	h.next(t, FrameDrop)
	assert.False(t, prim.Mapped())
	assert.ErrorIs(t, prim.Enqueue(shmif.Ident("late")), shmif.ErrClosed)
	_, err := prim.RequestSubsegment(context.Background(), shmif.KindVM)
	assert.ErrorIs(t, err, shmif.ErrClosed)
}

func TestSegmentAudioAndAccel(t *testing.T) {
	h := newRecordingHandler()
	srv, dir := startServer(t, h, nil)
	prim := openPrimary(t, srv, dir)

	prim.Lock()
	require.NoError(t, prim.Resize(8, 8, shmif.ResizeExt{AudioBuffers: 1, AudioBufSize: 256}))
	prim.Unlock()

	prim.SetAudioUsed(1000)
	assert.Equal(t, 256, prim.AudioUsed())
	prim.SetAudioUsed(-4)
	assert.Zero(t, prim.AudioUsed())
	prim.SetAudioUsed(128)
	require.NoError(t, prim.Signal(shmif.SignalAudio))
	assert.Equal(t, 128, h.next(t, FrameSignal).AudioUsed)
	assert.Zero(t, prim.AudioUsed())

	assert.ErrorIs(t, prim.MakeCurrent(), ErrNoContext)
	require.NoError(t, prim.SetupAccel(shmif.AccelConfig{Major: 3, Minor: 3}))
	assert.Equal(t, 3, h.next(t, FrameAccel).Accel.Major)
	assert.NoError(t, prim.MakeCurrent())

	require.NoError(t, prim.SignalTexture(5, shmif.SignalVideo))
	assert.Equal(t, uint32(5), h.next(t, FrameSignal).Texture)

	prim.DropContext()
	assert.Zero(t, h.next(t, FrameAccel).Accel.Major)
	assert.ErrorIs(t, prim.MakeCurrent(), ErrNoContext)
}
