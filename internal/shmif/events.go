// Package shmif describes the contract between the bridge and a shared-memory
// compositor transport: segments, their buffers and the bidirectional event
// queue.
package shmif

// Category tells which union member of an Event is populated
type Category uint8

const (
	CategoryNone Category = iota
	CategoryIO
	CategoryTarget
	CategorySystem
	CategoryExternal
)

func (c Category) String() string {
	switch c {
	case CategoryIO:
		return "io"
	case CategoryTarget:
		return "target"
	case CategorySystem:
		return "system"
	case CategoryExternal:
		return "external"
	default:
		return "none"
	}
}

// DevKind is the kind of device an input event originates from
type DevKind uint8

const (
	DevKeyboard DevKind = iota
	DevMouse
	DevGamepad
	DevTouch
	DevEyetracker
)

// DataType is the shape of an input event payload
type DataType uint8

const (
	DataTranslated DataType = iota
	DataDigital
	DataAnalog
	DataTouch
	DataEyes
)

// Mouse button sub identifiers carried by digital events
const (
	MouseButtonLeft      uint16 = 1
	MouseButtonRight     uint16 = 2
	MouseButtonMiddle    uint16 = 3
	MouseButtonWheelUp   uint16 = 4
	MouseButtonWheelDown uint16 = 5
)

// Analog sub identifiers for pointer devices. AxisXY carries X in Axes[0]
// and Y in Axes[2].
const (
	AxisX  uint16 = 0
	AxisY  uint16 = 1
	AxisXY uint16 = 2
)

// Translated is a keyboard event already mapped to a key symbol
type Translated struct {
	Keysym    uint16
	Scancode  uint8
	Modifiers uint16
	Active    bool
}

// Digital is a button state change
type Digital struct {
	Active bool
}

// Analog carries up to four axis samples, either relative deltas or
// absolute positions.
type Analog struct {
	Relative bool
	Count    uint8
	Axes     [4]int32
}

// IOEvent is an input sample from the compositor
type IOEvent struct {
	DevKind    DevKind
	DataType   DataType
	DevID      uint16
	SubID      uint16
	Translated Translated
	Digital    Digital
	Analog     Analog
}

// TargetKind is a compositor request directed at the segment owner
type TargetKind uint8

const (
	TargetUnknown TargetKind = iota
	TargetExit
	TargetReset
	TargetNewSegment
	TargetPause
	TargetUnpause
	TargetSetIODev
	TargetStore
	TargetRestore
	TargetDisplayHint
	TargetOutputHint
	TargetDeviceNode
	TargetFontHint
	TargetGeoHint
)

var targetNames = map[TargetKind]string{
	TargetExit:        "exit",
	TargetReset:       "reset",
	TargetNewSegment:  "newsegment",
	TargetPause:       "pause",
	TargetUnpause:     "unpause",
	TargetSetIODev:    "setiodev",
	TargetStore:       "store",
	TargetRestore:     "restore",
	TargetDisplayHint: "displayhint",
	TargetOutputHint:  "outputhint",
	TargetDeviceNode:  "device_node",
	TargetFontHint:    "fonthint",
	TargetGeoHint:     "geohint",
}

func (k TargetKind) String() string {
	if name, ok := targetNames[k]; ok {
		return name
	}
	return "unknown"
}

// Reset sub-kinds in Values[0] of a TargetReset event
const (
	ResetSoft    int32 = 0
	ResetHard    int32 = 1
	ResetRecover int32 = 2
	ResetMigrate int32 = 3
)

// Display hint flag bits in Values[2] of a TargetDisplayHint event
const (
	HintInvisible  int32 = 2
	HintUnfocused  int32 = 4
	HintMaximized  int32 = 8
	HintFullscreen int32 = 16
	HintDetached   int32 = 32
	HintUnchanged  int32 = 128
)

// IOValue is one argument slot of a target event
type IOValue struct {
	IV int32
	FV float32
}

// TargetEvent is a lifecycle or state request from the compositor
type TargetEvent struct {
	Kind    TargetKind
	Values  [6]IOValue
	Message string
}

// ExternalKind is an outbound notification from the segment owner
type ExternalKind uint8

const (
	ExternalUnknown ExternalKind = iota
	ExternalIdent
	ExternalCursorHint
	ExternalSegReq
	ExternalMessage
)

// MessageLimit bounds the text payload of an external event, terminator
// included.
const MessageLimit = 78

// ExternalEvent is sent from the bridge to the compositor
type ExternalEvent struct {
	Kind    ExternalKind
	Message string
}

// Event is the tagged union moved through a segment queue
type Event struct {
	Category Category
	IO       IOEvent
	Target   TargetEvent
	External ExternalEvent
}

// Ident builds an identification event, truncating text to MessageLimit-1
// bytes without splitting a UTF-8 sequence.
func Ident(text string) Event {
	return Event{
		Category: CategoryExternal,
		External: ExternalEvent{Kind: ExternalIdent, Message: TruncateMessage(text)},
	}
}

// CursorHint builds a cursor hint event such as "hidden"
func CursorHint(hint string) Event {
	return Event{
		Category: CategoryExternal,
		External: ExternalEvent{Kind: ExternalCursorHint, Message: TruncateMessage(hint)},
	}
}

// TruncateMessage cuts text so it fits an external event payload
func TruncateMessage(text string) string {
	limit := MessageLimit - 1
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut]
}
