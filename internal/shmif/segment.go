package shmif

import (
	"context"
	"errors"

	"github.com/bnema/vmshm/internal/display"
)

var (
	// ErrDeclined is returned when the compositor turns down a subsegment
	// request but keeps the connection alive
	ErrDeclined = errors.New("segment request declined")
	// ErrRefused is returned when the compositor rejects the connection as
	// a whole; the primary segment must be torn down
	ErrRefused = errors.New("compositor refused cooperation")
	// ErrClosed is returned when operating on a dropped segment
	ErrClosed = errors.New("segment is closed")
	// ErrNotMapped is returned when a segment has no buffers yet
	ErrNotMapped = errors.New("segment is not mapped")
)

// Kind identifies what a segment is used for
type Kind uint8

const (
	KindVM Kind = iota
	KindCursor
	KindClipboard
	KindOutput
	KindIcon
)

// RenderHint tells the compositor how to treat buffer contents
type RenderHint uint32

const (
	HintSubregion   RenderHint = 1 << 0
	HintIgnoreAlpha RenderHint = 1 << 1
	HintOrigoUL     RenderHint = 1 << 2
)

// SignalMask selects which buffers a Signal call publishes
type SignalMask uint8

const (
	SignalVideo     SignalMask = 1 << 0
	SignalAudio     SignalMask = 1 << 1
	SignalBlockNone SignalMask = 1 << 2
)

// ResizeExt carries the buffering parameters negotiated with every resize
type ResizeExt struct {
	VideoBuffers int
	AudioBuffers int
	AudioBufSize int
}

// Segment is one shared-memory channel to the compositor. Implementations
// may deliver events from a background goroutine; Lock/Unlock must bracket
// any geometry change.
type Segment interface {
	ID() uint32
	Kind() Kind

	// Mapped reports whether the video buffer is available
	Mapped() bool
	Width() int
	Height() int
	// Stride is the byte length of one video buffer row
	Stride() int
	// NativeFormat is the pixel layout of the video buffer
	NativeFormat() display.Format
	VideoBuffer() []byte

	Hints() RenderHint
	SetHints(h RenderHint)

	Lock()
	Unlock()
	Resize(w, h int, ext ResizeExt) error

	SetDirty(r display.Rect)
	Signal(mask SignalMask) error

	// Poll returns the next queued event without blocking
	Poll() (Event, bool)
	Enqueue(ev Event) error

	Drop() error
}

// Primary is the first segment of a connection; it can negotiate more
type Primary interface {
	Segment
	// RequestSubsegment asks the compositor for another segment. It
	// returns ErrDeclined or ErrRefused on a negative answer and ctx.Err()
	// when the negotiation runs out of time.
	RequestSubsegment(ctx context.Context, kind Kind) (Segment, error)
}

// AudioSegment exposes the audio half of a segment
type AudioSegment interface {
	AudioBuffer() []byte
	AudioUsed() int
	SetAudioUsed(n int)
	Signal(mask SignalMask) error
}

// AccelConfig requests a GPU context on a segment
type AccelConfig struct {
	Major      int
	Minor      int
	BuiltinFBO bool
}

// Accelerated is implemented by segments that can forward GPU textures
type Accelerated interface {
	SetupAccel(cfg AccelConfig) error
	DropContext()
	MakeCurrent() error
	SignalTexture(tex uint32, mask SignalMask) error
}

// Transport opens the primary segment of a compositor connection
type Transport interface {
	// Open connects to the compositor. The returned map holds the
	// connection arguments supplied by the compositor.
	Open(ctx context.Context) (Primary, map[string]string, error)
}
