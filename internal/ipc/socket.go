package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/logger"
	"github.com/bnema/vmshm/internal/shmif"
)

// Handler implements the compositor side policy of a Server
type Handler interface {
	// HandleConnect is called once the hello frame went out
	HandleConnect(p *Peer)
	// HandleSegmentRequest decides whether a bridge gets another segment
	HandleSegmentRequest(p *Peer, kind shmif.Kind) Reply
	// HandleFrame observes every other frame a bridge sends
	HandleFrame(p *Peer, f *Frame)
}

// ServerOptions shape the segments a Server hands out
type ServerOptions struct {
	BufferDir string
	Width     int
	Height    int
	Format    display.Format
	Args      map[string]string
}

// Server is a minimal compositor endpoint. It accepts bridges on a unix
// socket, announces a primary segment to each and answers segment requests
// through its Handler.
type Server struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	opts       ServerOptions
	handler    Handler
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool
	peers      map[*Peer]struct{}
	nextID     atomic.Uint32
}

// NewServer creates a server listening on socketPath. An empty path uses
// the per-user default.
func NewServer(socketPath string, opts ServerOptions, handler Handler) (*Server, error) {
	if socketPath == "" {
		path, err := DefaultSocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get socket path: %w", err)
		}
		socketPath = path
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 640, 480
	}
	if opts.Format == display.FormatUnknown {
		opts.Format = display.FormatA8B8G8R8
	}
	if opts.BufferDir == "" {
		opts.BufferDir = os.TempDir()
	}

	return &Server{
		socketPath: socketPath,
		opts:       opts,
		handler:    handler,
		peers:      make(map[*Peer]struct{}),
	}, nil
}

// SocketPath returns the listening path
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start starts the socket server
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	// Set socket permissions (user only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	logger.Infof("Compositor socket listening at %s", s.socketPath)
	return nil
}

// Stop closes the listener and every connected bridge
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	for p := range s.peers {
		p.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	os.RemoveAll(s.socketPath)
	logger.Info("Compositor socket stopped")
}

func (s *Server) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Errorf("Failed to accept connection: %v", err)
				continue
			}
		}

		p := &Peer{conn: conn, server: s}
		s.mu.Lock()
		s.peers[p] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(ctx, p)
	}
}

func (s *Server) segmentFrame(kind FrameKind) *Frame {
	id := s.nextID.Add(1)
	return &Frame{
		Kind:    kind,
		Segment: id,
		Path:    filepath.Join(s.opts.BufferDir, fmt.Sprintf("vmshm-%d-%d", os.Getpid(), id)),
		Width:   s.opts.Width,
		Height:  s.opts.Height,
		Format:  s.opts.Format,
	}
}

func (s *Server) handleConnection(ctx context.Context, p *Peer) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		p.conn.Close()
	}()

	hello := s.segmentFrame(FrameHello)
	hello.Args = s.opts.Args
	p.primary = hello.Segment
	if err := p.Send(hello); err != nil {
		logger.Errorf("Failed to send hello: %v", err)
		return
	}
	logger.Debug("Bridge connected", "segment", hello.Segment)
	if s.handler != nil {
		s.handler.HandleConnect(p)
	}

	for {
		f, err := readFrame(p.conn)
		if err != nil {
			select {
			case <-ctx.Done():
			default:
				logger.Debugf("Bridge connection closed or read error: %v", err)
			}
			return
		}

		if f.Kind != FrameSegReq {
			if s.handler != nil {
				s.handler.HandleFrame(p, f)
			}
			continue
		}

		reply := ReplyDecline
		if s.handler != nil {
			reply = s.handler.HandleSegmentRequest(p, f.SegKind)
		}
		answer := &Frame{Kind: FrameSegReply, Request: f.Request, Reply: reply}
		if reply == ReplyAccept {
			answer = s.segmentFrame(FrameSegReply)
			answer.Request = f.Request
			answer.Reply = ReplyAccept
		}
		if err := p.Send(answer); err != nil {
			logger.Errorf("Failed to answer segment request: %v", err)
			return
		}
	}
}

// Peer is one connected bridge as seen by a Server
type Peer struct {
	conn    net.Conn
	server  *Server
	primary uint32
	wmu     sync.Mutex
}

// Primary returns the segment id announced in the hello frame
func (p *Peer) Primary() uint32 {
	return p.primary
}

// Send writes a frame to the bridge
func (p *Peer) Send(f *Frame) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return writeFrame(p.conn, f)
}

// SendEvent delivers an event to one of the bridge segments
func (p *Peer) SendEvent(segment uint32, ev shmif.Event) error {
	return p.Send(&Frame{Kind: FrameEvent, Segment: segment, Event: ev})
}

// DropSegment tells the bridge the compositor closed a segment
func (p *Peer) DropSegment(segment uint32) error {
	return p.Send(&Frame{Kind: FrameDrop, Segment: segment})
}

// DefaultSocketPath returns the per-user compositor socket path
func DefaultSocketPath() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "vmshm.sock"), nil
	}
	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return filepath.Join("/tmp", fmt.Sprintf("vmshm-%s.sock", currentUser.Username)), nil
}
