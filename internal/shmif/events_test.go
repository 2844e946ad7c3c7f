package shmif

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateMessage(t *testing.T) {
	t.Run("short text is kept", func(t *testing.T) {
		assert.Equal(t, "VM[0][]:demo(Running)", TruncateMessage("VM[0][]:demo(Running)"))
	})

	t.Run("long ascii is cut to limit", func(t *testing.T) {
		got := TruncateMessage(strings.Repeat("a", 200))
		assert.Len(t, got, MessageLimit-1)
	})

	t.Run("multibyte rune is not split", func(t *testing.T) {
		text := strings.Repeat("a", MessageLimit-2) + "⇪⇪"
		got := TruncateMessage(text)
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, len(got), MessageLimit-1)
	})
}

func TestEventBuilders(t *testing.T) {
	ev := Ident("hello")
	assert.Equal(t, CategoryExternal, ev.Category)
	assert.Equal(t, ExternalIdent, ev.External.Kind)
	assert.Equal(t, "hello", ev.External.Message)

	hint := CursorHint("hidden")
	assert.Equal(t, ExternalCursorHint, hint.External.Kind)
	assert.Equal(t, "hidden", hint.External.Message)
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "displayhint", TargetDisplayHint.String())
	assert.Equal(t, "unknown", TargetKind(200).String())
	assert.Equal(t, "io", CategoryIO.String())
	assert.Equal(t, "none", Category(99).String())
}
