package keymap

// Code is a guest key scan code. Values are Linux input event codes, which
// both the uinput injector and virtual keyboard devices consume directly.
type Code uint16

const (
	CodeUnmapped    Code = 0
	CodeEsc         Code = 1
	Code1           Code = 2
	Code2           Code = 3
	Code3           Code = 4
	Code4           Code = 5
	Code5           Code = 6
	Code6           Code = 7
	Code7           Code = 8
	Code8           Code = 9
	Code9           Code = 10
	Code0           Code = 11
	CodeMinus       Code = 12
	CodeEqual       Code = 13
	CodeBackspace   Code = 14
	CodeTab         Code = 15
	CodeQ           Code = 16
	CodeW           Code = 17
	CodeE           Code = 18
	CodeR           Code = 19
	CodeT           Code = 20
	CodeY           Code = 21
	CodeU           Code = 22
	CodeI           Code = 23
	CodeO           Code = 24
	CodeP           Code = 25
	CodeLeftBrace   Code = 26
	CodeRightBrace  Code = 27
	CodeEnter       Code = 28
	CodeLeftCtrl    Code = 29
	CodeA           Code = 30
	CodeS           Code = 31
	CodeD           Code = 32
	CodeF           Code = 33
	CodeG           Code = 34
	CodeH           Code = 35
	CodeJ           Code = 36
	CodeK           Code = 37
	CodeL           Code = 38
	CodeSemicolon   Code = 39
	CodeApostrophe  Code = 40
	CodeGrave       Code = 41
	CodeLeftShift   Code = 42
	CodeBackslash   Code = 43
	CodeZ           Code = 44
	CodeX           Code = 45
	CodeC           Code = 46
	CodeV           Code = 47
	CodeB           Code = 48
	CodeN           Code = 49
	CodeM           Code = 50
	CodeComma       Code = 51
	CodeDot         Code = 52
	CodeSlash       Code = 53
	CodeRightShift  Code = 54
	CodeKPAsterisk  Code = 55
	CodeLeftAlt     Code = 56
	CodeSpace       Code = 57
	CodeCapsLock    Code = 58
	CodeF1          Code = 59
	CodeF2          Code = 60
	CodeF3          Code = 61
	CodeF4          Code = 62
	CodeF5          Code = 63
	CodeF6          Code = 64
	CodeF7          Code = 65
	CodeF8          Code = 66
	CodeF9          Code = 67
	CodeF10         Code = 68
	CodeNumLock     Code = 69
	CodeScrollLock  Code = 70
	CodeKP7         Code = 71
	CodeKP8         Code = 72
	CodeKP9         Code = 73
	CodeKPMinus     Code = 74
	CodeKP4         Code = 75
	CodeKP5         Code = 76
	CodeKP6         Code = 77
	CodeKPPlus      Code = 78
	CodeKP1         Code = 79
	CodeKP2         Code = 80
	CodeKP3         Code = 81
	CodeKP0         Code = 82
	CodeKPDot       Code = 83
	Code102nd       Code = 86
	CodeF11         Code = 87
	CodeF12         Code = 88
	CodeKPEnter     Code = 96
	CodeRightCtrl   Code = 97
	CodeKPSlash     Code = 98
	CodeSysRq       Code = 99
	CodeRightAlt    Code = 100
	CodeHome        Code = 102
	CodeUp          Code = 103
	CodePageUp      Code = 104
	CodeLeft        Code = 105
	CodeRight       Code = 106
	CodeEnd         Code = 107
	CodeDown        Code = 108
	CodePageDown    Code = 109
	CodeInsert      Code = 110
	CodeDelete      Code = 111
	CodePower       Code = 116
	CodeKPEqual     Code = 117
	CodePause       Code = 119
	CodeLeftMeta    Code = 125
	CodeRightMeta   Code = 126
	CodeCompose     Code = 127
	CodeUndo        Code = 131
	CodeHelp        Code = 138
	CodeMenu        Code = 139
	CodePrint       Code = 210
	CodeMax         Code = 0x2ff
)

var codeNames = map[Code]string{
	CodeEsc: "ESC", Code1: "1", Code2: "2", Code3: "3", Code4: "4", Code5: "5",
	Code6: "6", Code7: "7", Code8: "8", Code9: "9", Code0: "0",
	CodeMinus: "MINUS", CodeEqual: "EQUAL", CodeBackspace: "BACKSPACE",
	CodeTab: "TAB", CodeQ: "Q", CodeW: "W", CodeE: "E", CodeR: "R", CodeT: "T",
	CodeY: "Y", CodeU: "U", CodeI: "I", CodeO: "O", CodeP: "P",
	CodeLeftBrace: "LEFTBRACE", CodeRightBrace: "RIGHTBRACE", CodeEnter: "ENTER",
	CodeLeftCtrl: "LEFTCTRL", CodeA: "A", CodeS: "S", CodeD: "D", CodeF: "F",
	CodeG: "G", CodeH: "H", CodeJ: "J", CodeK: "K", CodeL: "L",
	CodeSemicolon: "SEMICOLON", CodeApostrophe: "APOSTROPHE", CodeGrave: "GRAVE",
	CodeLeftShift: "LEFTSHIFT", CodeBackslash: "BACKSLASH", CodeZ: "Z", CodeX: "X",
	CodeC: "C", CodeV: "V", CodeB: "B", CodeN: "N", CodeM: "M",
	CodeComma: "COMMA", CodeDot: "DOT", CodeSlash: "SLASH",
	CodeRightShift: "RIGHTSHIFT", CodeKPAsterisk: "KPASTERISK", CodeLeftAlt: "LEFTALT",
	CodeSpace: "SPACE", CodeCapsLock: "CAPSLOCK", CodeF1: "F1", CodeF2: "F2",
	CodeF3: "F3", CodeF4: "F4", CodeF5: "F5", CodeF6: "F6", CodeF7: "F7",
	CodeF8: "F8", CodeF9: "F9", CodeF10: "F10", CodeNumLock: "NUMLOCK",
	CodeScrollLock: "SCROLLLOCK", CodeKP7: "KP7", CodeKP8: "KP8", CodeKP9: "KP9",
	CodeKPMinus: "KPMINUS", CodeKP4: "KP4", CodeKP5: "KP5", CodeKP6: "KP6",
	CodeKPPlus: "KPPLUS", CodeKP1: "KP1", CodeKP2: "KP2", CodeKP3: "KP3",
	CodeKP0: "KP0", CodeKPDot: "KPDOT", Code102nd: "102ND", CodeF11: "F11",
	CodeF12: "F12", CodeKPEnter: "KPENTER", CodeRightCtrl: "RIGHTCTRL",
	CodeKPSlash: "KPSLASH", CodeSysRq: "SYSRQ", CodeRightAlt: "RIGHTALT",
	CodeHome: "HOME", CodeUp: "UP", CodePageUp: "PAGEUP", CodeLeft: "LEFT",
	CodeRight: "RIGHT", CodeEnd: "END", CodeDown: "DOWN", CodePageDown: "PAGEDOWN",
	CodeInsert: "INSERT", CodeDelete: "DELETE", CodePower: "POWER",
	CodeKPEqual: "KPEQUAL", CodePause: "PAUSE", CodeLeftMeta: "LEFTMETA",
	CodeRightMeta: "RIGHTMETA", CodeCompose: "COMPOSE", CodeUndo: "UNDO",
	CodeHelp: "HELP", CodeMenu: "MENU", CodePrint: "PRINT",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return "KEY_" + name
	}
	if c == CodeUnmapped {
		return "KEY_RESERVED"
	}
	return "KEY_UNKNOWN"
}
