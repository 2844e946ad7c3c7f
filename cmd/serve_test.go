package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/vmshm/internal/ipc"
	"github.com/bnema/vmshm/internal/shmif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeHandlerGrantsUpToLimit(t *testing.T) {
	dir := t.TempDir()
	handler := newServeHandler(1)
	srv, err := ipc.NewServer(filepath.Join(dir, "c.sock"), ipc.ServerOptions{
		BufferDir: dir,
		Width:     32,
		Height:    16,
	}, handler)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	primary, _, err := ipc.NewTransport(srv.SocketPath(), dir).Open(ctx)
	require.NoError(t, err)
	defer primary.Drop()

	sub, err := primary.RequestSubsegment(ctx, shmif.KindVM)
	require.NoError(t, err)
	assert.Equal(t, 32, sub.Width())
	assert.Equal(t, 16, sub.Height())

	_, err = primary.RequestSubsegment(ctx, shmif.KindVM)
	assert.ErrorIs(t, err, shmif.ErrDeclined)
}

func TestServeHandlerDeclinesOtherKinds(t *testing.T) {
	h := newServeHandler(4)
	p := &ipc.Peer{}

	assert.Equal(t, ipc.ReplyDecline, h.HandleSegmentRequest(p, shmif.KindCursor))
	assert.Equal(t, ipc.ReplyAccept, h.HandleSegmentRequest(p, shmif.KindVM))
	assert.Equal(t, 1, h.Granted(p))
}

func TestServeHandlerForgetsDroppedBridge(t *testing.T) {
	h := newServeHandler(0)
	p := &ipc.Peer{}
	assert.Equal(t, ipc.ReplyDecline, h.HandleSegmentRequest(p, shmif.KindVM))

	h = newServeHandler(2)
	h.HandleSegmentRequest(p, shmif.KindVM)
	h.HandleSegmentRequest(p, shmif.KindVM)
	require.Equal(t, 2, h.Granted(p))

	// frames other than a primary drop keep the count
	h.HandleFrame(p, &ipc.Frame{Kind: ipc.FrameEnqueue, Segment: 3, Event: shmif.Ident("vm 0")})
	h.HandleFrame(p, &ipc.Frame{Kind: ipc.FrameDrop, Segment: 3})
	assert.Equal(t, 2, h.Granted(p))

	h.HandleFrame(p, &ipc.Frame{Kind: ipc.FrameDrop, Segment: p.Primary()})
	assert.Zero(t, h.Granted(p))
}
