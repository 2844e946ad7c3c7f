package bridge

import "fmt"

// FormatIdent renders the status line announced for a display
func FormatIdent(index int, leds LEDState, name string, running bool) string {
	var locks string
	if leds&LEDScrollLock != 0 {
		locks += "S"
	}
	if leds&LEDNumLock != 0 {
		locks += "N"
	}
	if leds&LEDCapsLock != 0 {
		locks += "C"
	}
	state := "Suspended"
	if running {
		state = "Running"
	}
	return fmt.Sprintf("VM[%d][%s]:%s(%s)", index, locks, name, state)
}
