package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bnema/vmshm/internal/config"
	"github.com/bnema/vmshm/internal/ipc"
	"github.com/bnema/vmshm/internal/logger"
	"github.com/bnema/vmshm/internal/shmif"
	"github.com/bnema/vmshm/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serveSocket      string
	serveWidth       int
	serveHeight      int
	serveSubsegments int
	serveBufferDir   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a headless compositor endpoint",
	Long: `Listen on a unix socket the way a compositor would. Every bridge gets a
primary segment and up to --subsegments extra segments; later requests are
declined. Identification strings and segment activity are logged.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "Socket path (default $XDG_RUNTIME_DIR/vmshm.sock)")
	serveCmd.Flags().IntVar(&serveWidth, "width", 640, "Initial segment width")
	serveCmd.Flags().IntVar(&serveHeight, "height", 480, "Initial segment height")
	serveCmd.Flags().IntVar(&serveSubsegments, "subsegments", 3, "Subsegments granted to each bridge")
	serveCmd.Flags().StringVar(&serveBufferDir, "buffer-dir", "", "Directory for segment buffers (default transport.buffer_dir)")
}

func runServe(cmd *cobra.Command, args []string) error {
	bufferDir := serveBufferDir
	if bufferDir == "" {
		bufferDir = config.Get().Transport.BufferDir
	}

	handler := newServeHandler(serveSubsegments)
	srv, err := ipc.NewServer(serveSocket, ipc.ServerOptions{
		BufferDir: bufferDir,
		Width:     serveWidth,
		Height:    serveHeight,
	}, handler)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Stop()

	fmt.Println(ui.FormatAppHeader("COMPOSITOR", srv.SocketPath()))
	fmt.Println(ui.FormatStatus(true, "Listening for bridges"))
	if serveSubsegments > 0 {
		fmt.Println(ui.FormatNotice(true, fmt.Sprintf("Granting up to %d subsegment(s) per bridge", serveSubsegments)))
	} else {
		fmt.Println(ui.FormatNotice(false, "Subsegments disabled, bridges get their primary segment only"))
	}
	fmt.Println(ui.FormatDetail("Buffers", bufferDir))
	fmt.Println(ui.FormatControl("vmshm run --connpath "+srv.SocketPath(), "Attach a bridge"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("Shutting down compositor...")
	return nil
}

// serveHandler grants a fixed number of subsegments per bridge
type serveHandler struct {
	mu      sync.Mutex
	limit   int
	granted map[*ipc.Peer]int
}

func newServeHandler(limit int) *serveHandler {
	return &serveHandler{limit: limit, granted: make(map[*ipc.Peer]int)}
}

func (h *serveHandler) HandleConnect(p *ipc.Peer) {
	logger.Info("Bridge connected", "primary", p.Primary())
}

func (h *serveHandler) HandleSegmentRequest(p *ipc.Peer, kind shmif.Kind) ipc.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()

	if kind != shmif.KindVM || h.granted[p] >= h.limit {
		logger.Debug("Declining segment request", "kind", kind, "granted", h.granted[p])
		return ipc.ReplyDecline
	}
	h.granted[p]++
	logger.Info("Granting subsegment", "granted", h.granted[p], "limit", h.limit)
	return ipc.ReplyAccept
}

func (h *serveHandler) HandleFrame(p *ipc.Peer, f *ipc.Frame) {
	l := logger.With("segment", f.Segment)
	switch f.Kind {
	case ipc.FrameEnqueue:
		switch f.Event.External.Kind {
		case shmif.ExternalIdent:
			l.Info("Display identified", "ident", f.Event.External.Message)
		case shmif.ExternalCursorHint:
			l.Debug("Cursor hint", "hint", f.Event.External.Message)
		default:
			l.Debug("Event", "kind", f.Event.External.Kind, "message", f.Event.External.Message)
		}
	case ipc.FrameResize:
		l.Info("Segment resized", "width", f.Width, "height", f.Height, "hints", f.Hints)
	case ipc.FrameSignal:
		l.Debug("Segment signaled", "mask", f.Mask, "dirty", f.Dirty, "texture", f.Texture, "audio", f.AudioUsed)
	case ipc.FrameAccel:
		l.Debug("Accelerated setup", "major", f.Accel.Major, "minor", f.Accel.Minor)
	case ipc.FrameDrop:
		l.Info("Segment dropped")
		if f.Segment == p.Primary() {
			h.forget(p)
		}
	default:
		l.Debug("Unhandled frame", "kind", f.Kind)
	}
}

func (h *serveHandler) forget(p *ipc.Peer) {
	h.mu.Lock()
	delete(h.granted, p)
	h.mu.Unlock()
}

// Granted returns how many subsegments a bridge holds
func (h *serveHandler) Granted(p *ipc.Peer) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.granted[p]
}
