package audio

import (
	"encoding/binary"
	"math"
)

// Tone generates a stereo S16 little-endian sine wave
type Tone struct {
	freq   float64
	volume float64
	phase  float64
}

// NewTone creates a generator for freq Hz at volume in [0,1]
func NewTone(freq, volume float64) *Tone {
	return &Tone{freq: freq, volume: max(0, min(volume, 1))}
}

// Fill writes whole sample frames into p and returns the bytes written
func (t *Tone) Fill(p []byte) int {
	frames := len(p) / FrameBytes
	step := 2 * math.Pi * t.freq / SampleRate
	for i := 0; i < frames; i++ {
		v := int16(math.Sin(t.phase) * t.volume * math.MaxInt16)
		for ch := 0; ch < Channels; ch++ {
			off := i*FrameBytes + ch*BytesPerSample
			binary.LittleEndian.PutUint16(p[off:], uint16(v))
		}
		t.phase += step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
	return frames * FrameBytes
}

// Feed fills the free part of out, as a guest sound card would
func (t *Tone) Feed(out *Out) int {
	buf := out.Buffer()
	if len(buf) == 0 {
		return 0
	}
	n := t.Fill(buf)
	out.Commit(n)
	return n
}
