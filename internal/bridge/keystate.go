package bridge

import (
	"math/bits"

	"github.com/bnema/vmshm/internal/keymap"
)

const keyWords = (keymap.SymLimit + 63) / 64

// KeyState is a bitset of currently pressed key symbols, one bit per
// translatable symbol
type KeyState struct {
	bits [keyWords]uint64
}

// Set records sym as pressed or released. Symbols outside the table are
// ignored and reported as false.
func (k *KeyState) Set(sym keymap.Sym, down bool) bool {
	if !keymap.InRange(sym) {
		return false
	}
	word, bit := int(sym)/64, uint(sym)%64
	if down {
		k.bits[word] |= 1 << bit
	} else {
		k.bits[word] &^= 1 << bit
	}
	return true
}

// Pressed reports whether sym is currently held
func (k *KeyState) Pressed(sym keymap.Sym) bool {
	if !keymap.InRange(sym) {
		return false
	}
	return k.bits[int(sym)/64]&(1<<(uint(sym)%64)) != 0
}

// Count returns the number of held symbols
func (k *KeyState) Count() int {
	n := 0
	for _, w := range k.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// Each calls fn for every held symbol in ascending order
func (k *KeyState) Each(fn func(keymap.Sym)) {
	for i, w := range k.bits {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			fn(keymap.Sym(i*64 + bit))
			w &= w - 1
		}
	}
}

// Clear releases every symbol
func (k *KeyState) Clear() {
	k.bits = [keyWords]uint64{}
}
