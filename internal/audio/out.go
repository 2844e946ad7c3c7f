// Package audio feeds guest playback into the audio region of the primary
// segment.
package audio

import (
	"sync"

	"github.com/bnema/vmshm/internal/shmif"
)

// Fixed output settings announced to the guest audio layer
const (
	SampleRate = 44100
	Channels   = 2
	// BytesPerSample is the width of one signed 16-bit sample
	BytesPerSample = 2
	// FrameSamples is the hardware period in sample frames
	FrameSamples = 1024
)

// FrameBytes is the byte length of one sample frame across all channels
const FrameBytes = Channels * BytesPerSample

// Source returns the segment carrying audio, nil while none is mapped
type Source func() shmif.AudioSegment

// FromPrimary adapts a primary segment getter to a Source
func FromPrimary(primary func() shmif.Primary) Source {
	return func() shmif.AudioSegment {
		p := primary()
		if p == nil {
			return nil
		}
		seg, ok := p.(shmif.AudioSegment)
		if !ok {
			return nil
		}
		return seg
	}
}

// Out is a playback voice writing into the shared audio buffer. Every call
// is a zero no-op while the source has no segment.
type Out struct {
	mu     sync.Mutex
	source Source
}

// NewOut creates a playback voice over source
func NewOut(source Source) *Out {
	return &Out{source: source}
}

func (o *Out) segment() shmif.AudioSegment {
	if o.source == nil {
		return nil
	}
	return o.source()
}

// Free returns the number of bytes left before the buffer has to be flushed
func (o *Out) Free() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	seg := o.segment()
	if seg == nil {
		return 0
	}
	return len(seg.AudioBuffer()) - seg.AudioUsed()
}

// Buffer returns the unused tail of the audio buffer for in-place writes.
// Call Commit with the number of bytes written.
func (o *Out) Buffer() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	seg := o.segment()
	if seg == nil {
		return nil
	}
	return seg.AudioBuffer()[seg.AudioUsed():]
}

// Commit accounts for n bytes written into the slice returned by Buffer
func (o *Out) Commit(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	seg := o.segment()
	if seg == nil || n <= 0 {
		return
	}
	seg.SetAudioUsed(seg.AudioUsed() + n)
	o.flushFull(seg)
}

// Put appends p to the audio buffer and returns the bytes taken. A full
// buffer is signalled without waiting for the compositor.
func (o *Out) Put(p []byte) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	seg := o.segment()
	if seg == nil {
		return 0
	}
	buf, used := seg.AudioBuffer(), seg.AudioUsed()
	n := copy(buf[used:], p)
	seg.SetAudioUsed(used + n)
	o.flushFull(seg)
	return n
}

func (o *Out) flushFull(seg shmif.AudioSegment) {
	size := len(seg.AudioBuffer())
	if size == 0 || seg.AudioUsed() < size {
		return
	}
	_ = seg.Signal(shmif.SignalAudio | shmif.SignalBlockNone)
}
