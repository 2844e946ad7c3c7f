package input

import (
	"os"
	"testing"

	"github.com/bnema/vmshm/internal/bridge"
	"github.com/bnema/vmshm/internal/keymap"
)

// TestUInputPermissions checks if we have the necessary permissions
func TestUInputPermissions(t *testing.T) {
	// Check if /dev/uinput exists
	if _, err := os.Stat("/dev/uinput"); os.IsNotExist(err) {
		t.Skip("/dev/uinput does not exist - uinput module not loaded")
	}

	// Check if we can open it (requires permissions)
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY, 0)
	if err != nil {
		t.Skipf("Cannot open /dev/uinput: %v (try: sudo chmod 666 /dev/uinput or add user to input group)", err)
	}
	f.Close()
}

// TestUInputInjector_Integration performs actual uinput tests if permissions allow
func TestUInputInjector_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	h, err := newUInputInjector("/dev/uinput", "vmshm test")
	if err != nil {
		t.Skipf("Cannot create uinput injector: %v", err)
	}
	defer func() { _ = h.Close() }()

	t.Run("PointerMotion", func(t *testing.T) {
		h.QueueAbs(0, bridge.AxisX, 100, 0, 800)
		h.QueueAbs(0, bridge.AxisY, 100, 0, 600)
		h.QueueRel(0, bridge.AxisX, 50)
		h.QueueRel(0, bridge.AxisY, 20)
		if err := h.Sync(); err != nil {
			t.Errorf("Failed to sync motion: %v", err)
		}

		if h.currentX != 150 || h.currentY != 120 {
			t.Errorf("Position not tracked correctly: got (%d, %d), want (150, 120)",
				h.currentX, h.currentY)
		}
	})

	t.Run("Buttons", func(t *testing.T) {
		for _, btn := range []bridge.Button{bridge.ButtonLeft, bridge.ButtonRight, bridge.ButtonMiddle} {
			h.QueueButton(0, btn, true)
			h.QueueButton(0, btn, false)
		}
		if err := h.Sync(); err != nil {
			t.Errorf("Failed to sync buttons: %v", err)
		}
	})

	t.Run("Keys", func(t *testing.T) {
		if err := h.SendKey(keymap.CodeLeftShift, true); err != nil {
			t.Errorf("Failed to press key: %v", err)
		}
		if err := h.SendKey(keymap.CodeLeftShift, false); err != nil {
			t.Errorf("Failed to release key: %v", err)
		}
	})
}
