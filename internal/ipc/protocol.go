package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/shmif"
	"google.golang.org/protobuf/encoding/protowire"
)

// MaxFrameSize bounds a single encoded frame
const MaxFrameSize = 1 << 20

// ErrFrameTooLarge is returned for frames above MaxFrameSize
var ErrFrameTooLarge = errors.New("frame too large")

// FrameKind identifies a wire frame
type FrameKind uint8

const (
	FrameUnknown FrameKind = iota
	// FrameHello opens a connection: compositor -> bridge
	FrameHello
	// FrameEvent carries an inbound event: compositor -> bridge
	FrameEvent
	// FrameEnqueue carries an outbound event: bridge -> compositor
	FrameEnqueue
	// FrameSignal publishes buffer contents: bridge -> compositor
	FrameSignal
	// FrameResize announces new geometry: bridge -> compositor
	FrameResize
	// FrameSegReq asks for a subsegment: bridge -> compositor
	FrameSegReq
	// FrameSegReply answers a FrameSegReq: compositor -> bridge
	FrameSegReply
	// FrameDrop closes one segment, either direction
	FrameDrop
	// FrameAccel sets up or drops a GPU context: bridge -> compositor
	FrameAccel
)

var frameNames = map[FrameKind]string{
	FrameHello:    "hello",
	FrameEvent:    "event",
	FrameEnqueue:  "enqueue",
	FrameSignal:   "signal",
	FrameResize:   "resize",
	FrameSegReq:   "segreq",
	FrameSegReply: "segreply",
	FrameDrop:     "drop",
	FrameAccel:    "accel",
}

func (k FrameKind) String() string {
	if name, ok := frameNames[k]; ok {
		return name
	}
	return "unknown"
}

// Reply is the compositor answer to a subsegment request
type Reply uint8

const (
	ReplyAccept Reply = iota
	ReplyDecline
	ReplyRefuse
)

func (r Reply) String() string {
	switch r {
	case ReplyAccept:
		return "accept"
	case ReplyDecline:
		return "decline"
	case ReplyRefuse:
		return "refuse"
	default:
		return "unknown"
	}
}

// Frame is one message on the compositor socket. Which fields are
// meaningful depends on Kind.
type Frame struct {
	Kind    FrameKind
	Segment uint32
	Request uint32

	Path    string
	Width   int
	Height  int
	Format  display.Format
	SegKind shmif.Kind
	Args    map[string]string
	Ext     shmif.ResizeExt
	Hints   shmif.RenderHint

	Reply Reply
	Event shmif.Event

	Mask      shmif.SignalMask
	Dirty     display.Rect
	Texture   uint32
	AudioUsed int

	Accel shmif.AccelConfig
}

// Frame field numbers
const (
	fKind      protowire.Number = 1
	fSegment   protowire.Number = 2
	fRequest   protowire.Number = 3
	fPath      protowire.Number = 4
	fWidth     protowire.Number = 5
	fHeight    protowire.Number = 6
	fFormat    protowire.Number = 7
	fSegKind   protowire.Number = 8
	fArg       protowire.Number = 9
	fExt       protowire.Number = 10
	fReply     protowire.Number = 11
	fEvent     protowire.Number = 12
	fMask      protowire.Number = 13
	fDirty     protowire.Number = 14
	fTexture   protowire.Number = 15
	fAudioUsed protowire.Number = 16
	fAccel     protowire.Number = 17
	fHints     protowire.Number = 18
)

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	if len(msg) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// MarshalFrame encodes f without the length prefix
func MarshalFrame(f *Frame) []byte {
	var b []byte
	b = appendVarint(b, fKind, uint64(f.Kind))
	b = appendVarint(b, fSegment, uint64(f.Segment))
	b = appendVarint(b, fRequest, uint64(f.Request))
	b = appendString(b, fPath, f.Path)
	b = appendVarint(b, fWidth, uint64(f.Width))
	b = appendVarint(b, fHeight, uint64(f.Height))
	b = appendVarint(b, fFormat, uint64(f.Format))
	b = appendVarint(b, fSegKind, uint64(f.SegKind))
	for k, v := range f.Args {
		var kv []byte
		kv = protowire.AppendTag(kv, 1, protowire.BytesType)
		kv = protowire.AppendString(kv, k)
		kv = protowire.AppendTag(kv, 2, protowire.BytesType)
		kv = protowire.AppendString(kv, v)
		b = appendMessage(b, fArg, kv)
	}
	b = appendMessage(b, fExt, marshalExt(f.Ext))
	b = appendVarint(b, fReply, uint64(f.Reply))
	b = appendMessage(b, fEvent, marshalEvent(&f.Event))
	b = appendVarint(b, fMask, uint64(f.Mask))
	b = appendMessage(b, fDirty, marshalRect(f.Dirty))
	b = appendVarint(b, fTexture, uint64(f.Texture))
	b = appendVarint(b, fAudioUsed, uint64(f.AudioUsed))
	b = appendMessage(b, fAccel, marshalAccel(f.Accel))
	b = appendVarint(b, fHints, uint64(f.Hints))
	return b
}

func marshalExt(e shmif.ResizeExt) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(e.VideoBuffers))
	b = appendVarint(b, 2, uint64(e.AudioBuffers))
	b = appendVarint(b, 3, uint64(e.AudioBufSize))
	return b
}

func marshalRect(r display.Rect) []byte {
	var b []byte
	b = appendSint(b, 1, int64(r.X))
	b = appendSint(b, 2, int64(r.Y))
	b = appendSint(b, 3, int64(r.W))
	b = appendSint(b, 4, int64(r.H))
	return b
}

func marshalAccel(a shmif.AccelConfig) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(a.Major))
	b = appendVarint(b, 2, uint64(a.Minor))
	b = appendBool(b, 3, a.BuiltinFBO)
	return b
}

func marshalEvent(ev *shmif.Event) []byte {
	if ev.Category == shmif.CategoryNone {
		return nil
	}
	var b []byte
	b = appendVarint(b, 1, uint64(ev.Category))
	switch ev.Category {
	case shmif.CategoryIO:
		b = appendMessage(b, 2, marshalIO(&ev.IO))
	case shmif.CategoryTarget, shmif.CategorySystem:
		b = appendMessage(b, 3, marshalTarget(&ev.Target))
	case shmif.CategoryExternal:
		var ext []byte
		ext = appendVarint(ext, 1, uint64(ev.External.Kind))
		ext = appendString(ext, 2, ev.External.Message)
		b = appendMessage(b, 4, ext)
	}
	return b
}

func marshalIO(e *shmif.IOEvent) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(e.DevKind))
	b = appendVarint(b, 2, uint64(e.DataType))
	b = appendVarint(b, 3, uint64(e.DevID))
	b = appendVarint(b, 4, uint64(e.SubID))
	switch e.DataType {
	case shmif.DataTranslated:
		b = appendVarint(b, 5, uint64(e.Translated.Keysym))
		b = appendVarint(b, 6, uint64(e.Translated.Scancode))
		b = appendVarint(b, 7, uint64(e.Translated.Modifiers))
		b = appendBool(b, 8, e.Translated.Active)
	case shmif.DataDigital:
		b = appendBool(b, 8, e.Digital.Active)
	case shmif.DataAnalog:
		b = appendBool(b, 9, e.Analog.Relative)
		b = appendVarint(b, 10, uint64(e.Analog.Count))
		var axes []byte
		for _, v := range e.Analog.Axes {
			axes = protowire.AppendVarint(axes, protowire.EncodeZigZag(int64(v)))
		}
		b = protowire.AppendTag(b, 11, protowire.BytesType)
		b = protowire.AppendBytes(b, axes)
	}
	return b
}

func marshalTarget(t *shmif.TargetEvent) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(t.Kind))
	for _, v := range t.Values {
		var iv []byte
		iv = appendSint(iv, 1, int64(v.IV))
		if v.FV != 0 {
			iv = protowire.AppendTag(iv, 2, protowire.Fixed32Type)
			iv = protowire.AppendFixed32(iv, math.Float32bits(v.FV))
		}
		// empty slots still occupy a position
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, iv)
	}
	b = appendString(b, 3, t.Message)
	return b
}

// fieldFunc consumes the value of one field and returns its length. A zero
// length skips the field.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func eachField(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

// varints decodes a message whose fields are all varints
func varints(b []byte, fn func(num protowire.Number, v uint64)) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.VarintType {
			return 0, nil
		}
		v, n := protowire.ConsumeVarint(b)
		if n >= 0 {
			fn(num, v)
		}
		return n, nil
	})
}

func zigzag(v uint64) int {
	return int(protowire.DecodeZigZag(v))
}

// UnmarshalFrame decodes a frame body
func UnmarshalFrame(b []byte) (*Frame, error) {
	f := &Frame{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, nil
			}
			switch num {
			case fKind:
				f.Kind = FrameKind(v)
			case fSegment:
				f.Segment = uint32(v)
			case fRequest:
				f.Request = uint32(v)
			case fWidth:
				f.Width = int(v)
			case fHeight:
				f.Height = int(v)
			case fFormat:
				f.Format = display.Format(v)
			case fSegKind:
				f.SegKind = shmif.Kind(v)
			case fReply:
				f.Reply = Reply(v)
			case fMask:
				f.Mask = shmif.SignalMask(v)
			case fTexture:
				f.Texture = uint32(v)
			case fAudioUsed:
				f.AudioUsed = int(v)
			case fHints:
				f.Hints = shmif.RenderHint(v)
			}
			return n, nil

		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var err error
			switch num {
			case fPath:
				f.Path = string(v)
			case fArg:
				err = unmarshalArg(v, f)
			case fExt:
				err = varints(v, func(num protowire.Number, x uint64) {
					switch num {
					case 1:
						f.Ext.VideoBuffers = int(x)
					case 2:
						f.Ext.AudioBuffers = int(x)
					case 3:
						f.Ext.AudioBufSize = int(x)
					}
				})
			case fEvent:
				err = unmarshalEvent(v, &f.Event)
			case fDirty:
				err = varints(v, func(num protowire.Number, x uint64) {
					switch num {
					case 1:
						f.Dirty.X = zigzag(x)
					case 2:
						f.Dirty.Y = zigzag(x)
					case 3:
						f.Dirty.W = zigzag(x)
					case 4:
						f.Dirty.H = zigzag(x)
					}
				})
			case fAccel:
				err = varints(v, func(num protowire.Number, x uint64) {
					switch num {
					case 1:
						f.Accel.Major = int(x)
					case 2:
						f.Accel.Minor = int(x)
					case 3:
						f.Accel.BuiltinFBO = protowire.DecodeBool(x)
					}
				})
			}
			if err != nil {
				return 0, fmt.Errorf("field %d: %w", num, err)
			}
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func unmarshalArg(b []byte, f *Frame) error {
	var key, value string
	err := eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return 0, nil
		}
		v, n := protowire.ConsumeString(b)
		switch num {
		case 1:
			key = v
		case 2:
			value = v
		}
		return n, nil
	})
	if err != nil {
		return err
	}
	if f.Args == nil {
		f.Args = make(map[string]string)
	}
	f.Args[key] = value
	return nil
}

func unmarshalEvent(b []byte, ev *shmif.Event) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			ev.Category = shmif.Category(v)
			return n, nil
		case typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var err error
			switch num {
			case 2:
				err = unmarshalIO(v, &ev.IO)
			case 3:
				err = unmarshalTarget(v, &ev.Target)
			case 4:
				err = unmarshalExternal(v, &ev.External)
			}
			return n, err
		}
		return 0, nil
	})
}

func unmarshalIO(b []byte, e *shmif.IOEvent) error {
	var active bool
	err := eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 11 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			for i := 0; i < len(e.Analog.Axes) && len(v) > 0; i++ {
				x, m := protowire.ConsumeVarint(v)
				if m < 0 {
					return m, nil
				}
				e.Analog.Axes[i] = int32(protowire.DecodeZigZag(x))
				v = v[m:]
			}
			return n, nil
		}
		if typ != protowire.VarintType {
			return 0, nil
		}
		v, n := protowire.ConsumeVarint(b)
		switch num {
		case 1:
			e.DevKind = shmif.DevKind(v)
		case 2:
			e.DataType = shmif.DataType(v)
		case 3:
			e.DevID = uint16(v)
		case 4:
			e.SubID = uint16(v)
		case 5:
			e.Translated.Keysym = uint16(v)
		case 6:
			e.Translated.Scancode = uint8(v)
		case 7:
			e.Translated.Modifiers = uint16(v)
		case 8:
			active = protowire.DecodeBool(v)
		case 9:
			e.Analog.Relative = protowire.DecodeBool(v)
		case 10:
			e.Analog.Count = uint8(v)
		}
		return n, nil
	})
	e.Translated.Active = active && e.DataType == shmif.DataTranslated
	e.Digital.Active = active && e.DataType == shmif.DataDigital
	return err
}

func unmarshalTarget(b []byte, t *shmif.TargetEvent) error {
	slot := 0
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			t.Kind = shmif.TargetKind(v)
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || slot >= len(t.Values) {
				return n, nil
			}
			iv := &t.Values[slot]
			slot++
			err := eachField(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch {
				case num == 1 && typ == protowire.VarintType:
					x, m := protowire.ConsumeVarint(b)
					iv.IV = int32(protowire.DecodeZigZag(x))
					return m, nil
				case num == 2 && typ == protowire.Fixed32Type:
					x, m := protowire.ConsumeFixed32(b)
					iv.FV = math.Float32frombits(x)
					return m, nil
				}
				return 0, nil
			})
			return n, err
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			t.Message = v
			return n, nil
		}
		return 0, nil
	})
}

func unmarshalExternal(b []byte, e *shmif.ExternalEvent) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			e.Kind = shmif.ExternalKind(v)
			return n, nil
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			e.Message = v
			return n, nil
		}
		return 0, nil
	})
}

// writeFrame writes a length-prefixed frame
func writeFrame(w io.Writer, f *Frame) error {
	data := MarshalFrame(f)

	// length prefix (4 bytes, big endian) and body go out in one write
	buf := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", f.Kind, err)
	}
	return nil
}

// readFrame reads one length-prefixed frame
func readFrame(r io.Reader) (*Frame, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read frame data: %w", err)
	}

	f, err := UnmarshalFrame(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame: %w", err)
	}
	return f, nil
}
