package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/logger"
	"github.com/bnema/vmshm/internal/shmif"
)

// ErrNoContext is returned by MakeCurrent before a GPU context was set up
var ErrNoContext = errors.New("no gpu context")

var exitEvent = shmif.Event{
	Category: shmif.CategoryTarget,
	Target:   shmif.TargetEvent{Kind: shmif.TargetExit},
}

// initial geometry of segments announced without one
const (
	defaultWidth  = 32
	defaultHeight = 32
)

var (
	_ shmif.Primary      = (*Primary)(nil)
	_ shmif.AudioSegment = (*Segment)(nil)
	_ shmif.Accelerated  = (*Segment)(nil)
)

// Transport dials a compositor over a unix socket
type Transport struct {
	connPath  string
	bufferDir string
	timeout   time.Duration
}

// NewTransport creates a transport for the socket at connPath. Relative
// buffer paths announced by the compositor resolve against bufferDir.
func NewTransport(connPath, bufferDir string) *Transport {
	return &Transport{
		connPath:  connPath,
		bufferDir: bufferDir,
		timeout:   5 * time.Second,
	}
}

// Open connects, waits for the hello frame and maps the primary segment
func (t *Transport) Open(ctx context.Context) (shmif.Primary, map[string]string, error) {
	if t.connPath == "" {
		return nil, nil, errors.New("no compositor connection path configured")
	}

	dialer := net.Dialer{Timeout: t.timeout}
	nc, err := dialer.DialContext(ctx, "unix", t.connPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to compositor: %w", err)
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = nc.SetReadDeadline(deadline)
	hello, err := readFrame(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to read hello: %w", err)
	}
	_ = nc.SetReadDeadline(time.Time{})
	if hello.Kind != FrameHello {
		nc.Close()
		return nil, nil, fmt.Errorf("expected hello, got %s frame", hello.Kind)
	}

	c := newConn(nc, t.bufferDir)
	seg, err := c.newSegment(hello, shmif.KindVM)
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	p := &Primary{Segment: seg}
	seg.primary = true

	go c.readLoop()
	logger.Debug("Connected to compositor", "path", t.connPath, "segment", seg.id, "args", len(hello.Args))
	return p, hello.Args, nil
}

// conn is one compositor connection shared by all its segments
type conn struct {
	nc        net.Conn
	bufferDir string

	wmu sync.Mutex

	mu       sync.Mutex
	segments map[uint32]*Segment
	pending  map[uint32]chan *Frame
	nextReq  uint32

	done    chan struct{}
	errOnce sync.Once
	err     error
}

func newConn(nc net.Conn, bufferDir string) *conn {
	return &conn{
		nc:        nc,
		bufferDir: bufferDir,
		segments:  make(map[uint32]*Segment),
		pending:   make(map[uint32]chan *Frame),
		done:      make(chan struct{}),
	}
}

func (c *conn) send(f *Frame) error {
	select {
	case <-c.done:
		return c.closedErr()
	default:
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return writeFrame(c.nc, f)
}

func (c *conn) closedErr() error {
	if c.err != nil {
		return fmt.Errorf("%w: %w", shmif.ErrClosed, c.err)
	}
	return shmif.ErrClosed
}

func (c *conn) readLoop() {
	for {
		f, err := readFrame(c.nc)
		if err != nil {
			c.fail(err)
			return
		}
		c.dispatch(f)
	}
}

func (c *conn) dispatch(f *Frame) {
	switch f.Kind {
	case FrameEvent:
		if seg := c.segment(f.Segment); seg != nil {
			seg.push(f.Event)
		}

	case FrameSegReply:
		c.mu.Lock()
		ch, ok := c.pending[f.Request]
		delete(c.pending, f.Request)
		c.mu.Unlock()
		if ok {
			ch <- f
		}

	case FrameDrop:
		// the compositor closed the segment, surface it as an exit request
		if seg := c.segment(f.Segment); seg != nil {
			seg.push(exitEvent)
		}

	default:
		logger.Debug("Ignoring compositor frame", "kind", f.Kind, "segment", f.Segment)
	}
}

func (c *conn) fail(err error) {
	c.errOnce.Do(func() {
		c.err = err
		close(c.done)
		c.nc.Close()

		c.mu.Lock()
		for req, ch := range c.pending {
			close(ch)
			delete(c.pending, req)
		}
		segments := make([]*Segment, 0, len(c.segments))
		for _, seg := range c.segments {
			segments = append(segments, seg)
		}
		c.mu.Unlock()

		// a lost compositor ends every segment
		for _, seg := range segments {
			seg.push(exitEvent)
		}
		logger.Debugf("Compositor connection closed: %v", err)
	})
}

func (c *conn) segment(id uint32) *Segment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.segments[id]
}

func (c *conn) bufferPath(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) || c.bufferDir == "" {
		return p
	}
	return filepath.Join(c.bufferDir, p)
}

func (c *conn) newSegment(f *Frame, kind shmif.Kind) (*Segment, error) {
	format := f.Format
	if format == display.FormatUnknown {
		format = display.FormatA8B8G8R8
	}
	s := &Segment{
		conn:   c,
		id:     f.Segment,
		kind:   kind,
		path:   c.bufferPath(f.Path),
		format: format,
	}
	if s.path == "" {
		s.path = c.bufferPath(fmt.Sprintf("vmshm-%d", f.Segment))
	}
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		w, h = defaultWidth, defaultHeight
	}
	if err := s.mapBuffer(w, h, 0); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.segments[s.id] = s
	c.mu.Unlock()
	return s, nil
}

func (c *conn) request(ctx context.Context, parent uint32, kind shmif.Kind) (*Frame, error) {
	c.mu.Lock()
	c.nextReq++
	req := c.nextReq
	ch := make(chan *Frame, 1)
	c.pending[req] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, req)
		c.mu.Unlock()
	}

	if err := c.send(&Frame{Kind: FrameSegReq, Segment: parent, Request: req, SegKind: kind}); err != nil {
		forget()
		return nil, err
	}

	select {
	case f, ok := <-ch:
		if !ok {
			return nil, c.closedErr()
		}
		return f, nil
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.closedErr()
	}
}

// Segment is a mapped compositor segment
type Segment struct {
	conn    *conn
	id      uint32
	kind    shmif.Kind
	path    string
	primary bool

	// geometry guards resizes, held between Lock and Unlock
	geometry sync.Mutex

	mu        sync.Mutex
	width     int
	height    int
	format    display.Format
	hints     shmif.RenderHint
	buf       *buffer
	audioSize int
	audioUsed int
	dirty     display.Rect
	accel     *shmif.AccelConfig
	closed    bool

	qmu   sync.Mutex
	queue []shmif.Event
}

func (s *Segment) mapBuffer(w, h, audio int) error {
	size := w*h*4 + audio
	if s.buf == nil {
		if size <= 0 {
			return nil
		}
		buf, err := openBuffer(s.path, size)
		if err != nil {
			return err
		}
		s.buf = buf
	} else if err := s.buf.remap(size); err != nil {
		return err
	}
	s.width, s.height, s.audioSize = w, h, audio
	return nil
}

func (s *Segment) ID() uint32       { return s.id }
func (s *Segment) Kind() shmif.Kind { return s.kind }

// Path returns the backing buffer file
func (s *Segment) Path() string { return s.path }

func (s *Segment) Mapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.buf != nil && s.buf.data != nil
}

func (s *Segment) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

func (s *Segment) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

func (s *Segment) Stride() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width * 4
}

func (s *Segment) NativeFormat() display.Format {
	return s.format
}

func (s *Segment) VideoBuffer() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil || s.buf.data == nil {
		return nil
	}
	return s.buf.data[:s.width*s.height*4]
}

func (s *Segment) Hints() shmif.RenderHint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hints
}

func (s *Segment) SetHints(h shmif.RenderHint) {
	s.mu.Lock()
	s.hints = h
	s.mu.Unlock()
}

func (s *Segment) Lock()   { s.geometry.Lock() }
func (s *Segment) Unlock() { s.geometry.Unlock() }

// Resize remaps the buffer for w*h pixels plus the audio region and tells
// the compositor about the new layout
func (s *Segment) Resize(w, h int, ext shmif.ResizeExt) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid geometry %dx%d", w, h)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return shmif.ErrClosed
	}
	err := s.mapBuffer(w, h, ext.AudioBufSize)
	hints := s.hints
	s.audioUsed = 0
	s.mu.Unlock()
	if err != nil {
		return err
	}

	return s.conn.send(&Frame{
		Kind:    FrameResize,
		Segment: s.id,
		Path:    s.path,
		Width:   w,
		Height:  h,
		Format:  s.format,
		Ext:     ext,
		Hints:   hints,
	})
}

// SetDirty grows the pending damage to cover r
func (s *Segment) SetDirty(r display.Rect) {
	if r.Empty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty.Empty() {
		s.dirty = r
		return
	}
	x1, y1, x2, y2 := s.dirty.Bounds()
	rx1, ry1, rx2, ry2 := r.Bounds()
	x1, y1 = min(x1, rx1), min(y1, ry1)
	x2, y2 = max(x2, rx2), max(y2, ry2)
	s.dirty = display.Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Signal publishes the pending damage and audio samples
func (s *Segment) Signal(mask shmif.SignalMask) error {
	return s.signal(mask, 0)
}

func (s *Segment) signal(mask shmif.SignalMask, tex uint32) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return shmif.ErrClosed
	}
	f := &Frame{Kind: FrameSignal, Segment: s.id, Mask: mask, Texture: tex}
	if mask&shmif.SignalVideo != 0 {
		f.Dirty = s.dirty
		s.dirty = display.Rect{}
	}
	if mask&shmif.SignalAudio != 0 {
		f.AudioUsed = s.audioUsed
		s.audioUsed = 0
	}
	s.mu.Unlock()
	return s.conn.send(f)
}

func (s *Segment) push(ev shmif.Event) {
	s.qmu.Lock()
	s.queue = append(s.queue, ev)
	s.qmu.Unlock()
}

// Poll returns the oldest queued event without blocking
func (s *Segment) Poll() (shmif.Event, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.queue) == 0 {
		return shmif.Event{}, false
	}
	ev := s.queue[0]
	s.queue[0] = shmif.Event{}
	s.queue = s.queue[1:]
	return ev, true
}

// Enqueue sends an outbound event. Only external events travel this way.
func (s *Segment) Enqueue(ev shmif.Event) error {
	if ev.Category != shmif.CategoryExternal {
		return fmt.Errorf("cannot enqueue %s event", ev.Category)
	}
	if s.isClosed() {
		return shmif.ErrClosed
	}
	return s.conn.send(&Frame{Kind: FrameEnqueue, Segment: s.id, Event: ev})
}

func (s *Segment) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Drop releases the segment. Dropping the primary closes the connection.
func (s *Segment) Drop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	buf := s.buf
	s.buf = nil
	s.mu.Unlock()

	s.conn.mu.Lock()
	delete(s.conn.segments, s.id)
	s.conn.mu.Unlock()

	err := s.conn.send(&Frame{Kind: FrameDrop, Segment: s.id})
	if errors.Is(err, shmif.ErrClosed) {
		err = nil
	}
	if buf != nil {
		if cerr := buf.close(); err == nil {
			err = cerr
		}
	}
	if s.primary {
		s.conn.fail(shmif.ErrClosed)
	}
	return err
}

// AudioBuffer returns the audio region of the mapped buffer
func (s *Segment) AudioBuffer() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil || s.buf.data == nil {
		return nil
	}
	off := s.width * s.height * 4
	return s.buf.data[off : off+s.audioSize]
}

func (s *Segment) AudioUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioUsed
}

func (s *Segment) SetAudioUsed(n int) {
	s.mu.Lock()
	s.audioUsed = max(0, min(n, s.audioSize))
	s.mu.Unlock()
}

// SetupAccel asks the compositor for a GPU context on this segment
func (s *Segment) SetupAccel(cfg shmif.AccelConfig) error {
	s.mu.Lock()
	s.accel = &cfg
	s.mu.Unlock()
	return s.conn.send(&Frame{Kind: FrameAccel, Segment: s.id, Accel: cfg})
}

// DropContext releases the GPU context
func (s *Segment) DropContext() {
	s.mu.Lock()
	had := s.accel != nil
	s.accel = nil
	s.mu.Unlock()
	if had {
		_ = s.conn.send(&Frame{Kind: FrameAccel, Segment: s.id})
	}
}

func (s *Segment) MakeCurrent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accel == nil {
		return ErrNoContext
	}
	return nil
}

// SignalTexture publishes a GPU texture handle instead of buffer contents
func (s *Segment) SignalTexture(tex uint32, mask shmif.SignalMask) error {
	return s.signal(mask, tex)
}

// Primary is the first segment of a connection
type Primary struct {
	*Segment
}

// RequestSubsegment negotiates another segment with the compositor
func (p *Primary) RequestSubsegment(ctx context.Context, kind shmif.Kind) (shmif.Segment, error) {
	f, err := p.conn.request(ctx, p.id, kind)
	if err != nil {
		return nil, err
	}
	switch f.Reply {
	case ReplyAccept:
		return p.conn.newSegment(f, kind)
	case ReplyRefuse:
		return nil, shmif.ErrRefused
	default:
		return nil, shmif.ErrDeclined
	}
}
