// Package display describes host pixel surfaces and the formats the bridge
// can transfer into a segment.
package display

import "fmt"

// Format identifies a host surface pixel layout. Names follow the pixman
// convention: channels listed from most to least significant bit of a
// native-endian pixel word.
type Format uint32

const (
	FormatUnknown Format = iota
	FormatB8G8R8X8
	FormatB8G8R8A8
	FormatX8R8G8B8
	FormatA8R8G8B8
	FormatX8B8G8R8
	FormatA8B8G8R8
	FormatR8G8B8
	FormatR5G6B5
	FormatX1R5G5B5
	FormatC8
)

var formatNames = map[Format]string{
	FormatUnknown:  "unknown",
	FormatB8G8R8X8: "b8g8r8x8",
	FormatB8G8R8A8: "b8g8r8a8",
	FormatX8R8G8B8: "x8r8g8b8",
	FormatA8R8G8B8: "a8r8g8b8",
	FormatX8B8G8R8: "x8b8g8r8",
	FormatA8B8G8R8: "a8b8g8r8",
	FormatR8G8B8:   "r8g8b8",
	FormatR5G6B5:   "r5g6b5",
	FormatX1R5G5B5: "x1r5g5b5",
	FormatC8:       "c8",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", uint32(f))
}

// BitsPerPixel returns the storage size of one pixel, or 0 for unknown formats
func (f Format) BitsPerPixel() int {
	switch f {
	case FormatB8G8R8X8, FormatB8G8R8A8, FormatX8R8G8B8, FormatA8R8G8B8,
		FormatX8B8G8R8, FormatA8B8G8R8:
		return 32
	case FormatR8G8B8:
		return 24
	case FormatR5G6B5, FormatX1R5G5B5:
		return 16
	case FormatC8:
		return 8
	default:
		return 0
	}
}

// BytesPerPixel is BitsPerPixel rounded up to whole bytes
func (f Format) BytesPerPixel() int {
	return (f.BitsPerPixel() + 7) / 8
}

// CheckFormat reports whether a host surface in format f can be transferred
// into a segment. Only the four 32-bit BGR/RGB orderings are accepted.
func CheckFormat(f Format) bool {
	switch f {
	case FormatB8G8R8X8, FormatB8G8R8A8, FormatX8R8G8B8, FormatA8R8G8B8:
		return true
	default:
		return false
	}
}
