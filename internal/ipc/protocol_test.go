package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/bnema/vmshm/internal/display"
	"github.com/bnema/vmshm/internal/shmif"
)

func TestFrameRoundTrip(t *testing.T) {
	target := shmif.TargetEvent{Kind: shmif.TargetDisplayHint, Message: "hint"}
	target.Values[0].IV = -12
	target.Values[2].IV = shmif.HintUnfocused
	target.Values[3].FV = 1.5

	tests := []struct {
		name  string
		frame *Frame
	}{
		{
			name: "hello with args",
			frame: &Frame{
				Kind:    FrameHello,
				Segment: 1,
				Path:    "/dev/shm/vmshm-1",
				Width:   640,
				Height:  480,
				Format:  display.FormatA8B8G8R8,
				Args:    map[string]string{"vbufc": "2", "abuf_sz": "4096"},
			},
		},
		{
			name: "translated key",
			frame: &Frame{Kind: FrameEvent, Segment: 3, Event: shmif.Event{
				Category: shmif.CategoryIO,
				IO: shmif.IOEvent{
					DevKind:    shmif.DevKeyboard,
					DataType:   shmif.DataTranslated,
					DevID:      2,
					Translated: shmif.Translated{Keysym: 97, Scancode: 30, Modifiers: 1, Active: true},
				},
			}},
		},
		{
			name: "digital button",
			frame: &Frame{Kind: FrameEvent, Segment: 3, Event: shmif.Event{
				Category: shmif.CategoryIO,
				IO: shmif.IOEvent{
					DevKind:  shmif.DevMouse,
					DataType: shmif.DataDigital,
					SubID:    shmif.MouseButtonRight,
					Digital:  shmif.Digital{Active: true},
				},
			}},
		},
		{
			name: "relative motion with negative axes",
			frame: &Frame{Kind: FrameEvent, Event: shmif.Event{
				Category: shmif.CategoryIO,
				IO: shmif.IOEvent{
					DevKind:  shmif.DevMouse,
					DataType: shmif.DataAnalog,
					SubID:    shmif.AxisXY,
					Analog:   shmif.Analog{Relative: true, Count: 4, Axes: [4]int32{-5, 0, 7, -1}},
				},
			}},
		},
		{
			name:  "target values",
			frame: &Frame{Kind: FrameEvent, Event: shmif.Event{Category: shmif.CategoryTarget, Target: target}},
		},
		{
			name: "ident",
			frame: &Frame{Kind: FrameEnqueue, Segment: 1, Event: shmif.Ident("VM[0][N]:demo(Running)")},
		},
		{
			name: "resize",
			frame: &Frame{
				Kind:    FrameResize,
				Segment: 2,
				Path:    "/dev/shm/vmshm-2",
				Width:   1024,
				Height:  768,
				Format:  display.FormatA8B8G8R8,
				Ext:     shmif.ResizeExt{VideoBuffers: 2, AudioBuffers: 8, AudioBufSize: 4096},
				Hints:   shmif.HintSubregion | shmif.HintIgnoreAlpha,
			},
		},
		{
			name: "signal",
			frame: &Frame{
				Kind:      FrameSignal,
				Segment:   2,
				Mask:      shmif.SignalVideo | shmif.SignalAudio,
				Dirty:     display.Rect{X: 4, Y: 8, W: 100, H: 20},
				Texture:   9,
				AudioUsed: 512,
			},
		},
		{
			name:  "segment reply",
			frame: &Frame{Kind: FrameSegReply, Request: 7, Reply: ReplyRefuse},
		},
		{
			name:  "accel",
			frame: &Frame{Kind: FrameAccel, Segment: 1, Accel: shmif.AccelConfig{Major: 3, Minor: 3, BuiltinFBO: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalFrame(MarshalFrame(tt.frame))
			if err != nil {
				t.Fatalf("UnmarshalFrame() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.frame) {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, tt.frame)
			}
		})
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	body := MarshalFrame(&Frame{Kind: FrameDrop, Segment: 5})
	// field 99, bytes
	body = append(body, 0x9a, 0x06, 0x02, 'h', 'i')

	got, err := UnmarshalFrame(body)
	if err != nil {
		t.Fatalf("UnmarshalFrame() error = %v", err)
	}
	if got.Kind != FrameDrop || got.Segment != 5 {
		t.Errorf("got %+v", got)
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	body := MarshalFrame(&Frame{Kind: FrameHello, Path: "/dev/shm/vmshm-1"})
	if _, err := UnmarshalFrame(body[:len(body)-3]); err == nil {
		t.Error("expected error for truncated frame")
	}
}

func TestWriteReadFrame(t *testing.T) {
	var buf bytes.Buffer
	frames := []*Frame{
		{Kind: FrameSegReq, Segment: 1, Request: 1, SegKind: shmif.KindVM},
		{Kind: FrameDrop, Segment: 2},
	}
	for _, f := range frames {
		if err := writeFrame(&buf, f); err != nil {
			t.Fatalf("writeFrame() error = %v", err)
		}
	}

	for _, want := range frames {
		got, err := readFrame(&buf)
		if err != nil {
			t.Fatalf("readFrame() error = %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	}

	if _, err := readFrame(&buf); err == nil {
		t.Error("expected error reading past the last frame")
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(MaxFrameSize+1))

	_, err := readFrame(&buf)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("readFrame() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameShortBody(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(10))
	buf.Write([]byte{0x08, 0x01})

	if _, err := readFrame(&buf); err == nil {
		t.Error("expected error for short frame body")
	}
}

func TestFrameKindString(t *testing.T) {
	if FrameSegReply.String() != "segreply" {
		t.Errorf("FrameSegReply.String() = %q", FrameSegReply.String())
	}
	if FrameKind(200).String() != "unknown" {
		t.Errorf("FrameKind(200).String() = %q", FrameKind(200).String())
	}
	if ReplyDecline.String() != "decline" {
		t.Errorf("ReplyDecline.String() = %q", ReplyDecline.String())
	}
}
