package config

import (
	"github.com/bnema/vmshm/internal/logger"
	"github.com/spf13/cast"
)

// Connection argument keys supplied by the compositor at connect time
const (
	ArgVideoBuffers = "vbufc"
	ArgAudioBuffers = "abufc"
	ArgAudioBufSize = "abuf_sz"
)

// Params are the buffering parameters negotiated once per connection and
// applied to every resize of every display
type Params struct {
	VideoBuffers int
	AudioBuffers int
	AudioBufSize int
	Accelerated  bool
}

// DefaultParams are used for any argument that is absent or malformed
var DefaultParams = Params{
	VideoBuffers: 1,
	AudioBuffers: 8,
	AudioBufSize: 4096,
}

// ParseConnArgs reads vbufc, abufc and abuf_sz as unsigned integers. Zero,
// negative and unparsable values keep their defaults.
func ParseConnArgs(args map[string]string) Params {
	p := DefaultParams
	p.VideoBuffers = parseCount(args, ArgVideoBuffers, p.VideoBuffers)
	p.AudioBuffers = parseCount(args, ArgAudioBuffers, p.AudioBuffers)
	p.AudioBufSize = parseCount(args, ArgAudioBufSize, p.AudioBufSize)
	return p
}

func parseCount(args map[string]string, key string, def int) int {
	raw, ok := args[key]
	if !ok {
		return def
	}
	v, err := cast.ToUintE(raw)
	if err != nil || v == 0 {
		logger.Debugf("Ignoring connection argument %s=%q, using %d", key, raw, def)
		return def
	}
	return int(v)
}
