package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneFill(t *testing.T) {
	tone := NewTone(SampleRate/4, 1)
	p := make([]byte, 4*FrameBytes+1)

	n := tone.Fill(p)
	require.Equal(t, 4*FrameBytes, n, "partial frames are left alone")

	// a quarter of the sample rate gives 0, max, 0, -max
	samples := make([]int16, 0, 8)
	for off := 0; off < n; off += BytesPerSample {
		samples = append(samples, int16(binary.LittleEndian.Uint16(p[off:])))
	}
	assert.InDelta(t, 0, samples[0], 1)
	assert.InDelta(t, 32767, samples[2], 1)
	assert.Equal(t, samples[2], samples[3], "both channels carry the sample")
	assert.InDelta(t, -32767, samples[6], 1)
}

func TestToneFeed(t *testing.T) {
	seg := &fakeAudio{buf: make([]byte, 16)}
	out := outFor(seg)

	assert.Equal(t, 16, NewTone(440, 0.5).Feed(out))
	assert.Len(t, seg.signals, 1, "a full buffer is flushed")

	assert.Zero(t, NewTone(440, 0.5).Feed(NewOut(nil)))
}
