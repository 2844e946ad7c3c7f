// Package keymap translates compositor key symbols into guest scan codes
package keymap

// Entry is one populated row of the translation table
type Entry struct {
	Sym  Sym
	Code Code
}

var table = [SymLimit]Code{
	SymBackspace:    CodeBackspace,
	SymTab:          CodeTab,
	SymReturn:       CodeEnter,
	SymPause:        CodePause,
	SymEscape:       CodeEsc,
	SymSpace:        CodeSpace,
	SymQuote:        CodeApostrophe,
	SymLeftParen:    CodeLeftBrace,
	SymRightParen:   CodeRightBrace,
	SymAsterisk:     CodeKPAsterisk,
	SymComma:        CodeComma,
	SymMinus:        CodeMinus,
	SymPeriod:       CodeDot,
	SymSlash:        CodeSlash,
	Sym0:            Code0,
	Sym1:            Code1,
	Sym2:            Code2,
	Sym3:            Code3,
	Sym4:            Code4,
	Sym5:            Code5,
	Sym6:            Code6,
	Sym7:            Code7,
	Sym8:            Code8,
	Sym9:            Code9,
	SymSemicolon:    CodeSemicolon,
	SymLess:         Code102nd,
	SymEquals:       CodeEqual,
	SymLeftBracket:  CodeLeftBrace,
	SymBackslash:    CodeBackslash,
	SymRightBracket: CodeRightBrace,
	SymBackquote:    CodeGrave,
	SymA:            CodeA,
	SymB:            CodeB,
	SymC:            CodeC,
	SymD:            CodeD,
	SymE:            CodeE,
	SymF:            CodeF,
	SymG:            CodeG,
	SymH:            CodeH,
	SymI:            CodeI,
	SymJ:            CodeJ,
	SymK:            CodeK,
	SymL:            CodeL,
	SymM:            CodeM,
	SymN:            CodeN,
	SymO:            CodeO,
	SymP:            CodeP,
	SymQ:            CodeQ,
	SymR:            CodeR,
	SymS:            CodeS,
	SymT:            CodeT,
	SymU:            CodeU,
	SymV:            CodeV,
	SymW:            CodeW,
	SymX:            CodeX,
	SymY:            CodeY,
	SymZ:            CodeZ,
	SymDelete:       CodeDelete,
	SymKP0:          CodeKP0,
	SymKP1:          CodeKP1,
	SymKP2:          CodeKP2,
	SymKP3:          CodeKP3,
	SymKP4:          CodeKP4,
	SymKP5:          CodeKP5,
	SymKP6:          CodeKP6,
	SymKP7:          CodeKP7,
	SymKP8:          CodeKP8,
	SymKP9:          CodeKP9,
	SymKPPeriod:     CodeKPDot,
	SymKPDivide:     CodeKPSlash,
	SymKPMultiply:   CodeKPAsterisk,
	SymKPMinus:      CodeKPMinus,
	SymKPPlus:       CodeKPPlus,
	SymKPEnter:      CodeKPEnter,
	SymKPEquals:     CodeKPEqual,
	SymUp:           CodeUp,
	SymDown:         CodeDown,
	SymRight:        CodeRight,
	SymLeft:         CodeLeft,
	SymInsert:       CodeInsert,
	SymHome:         CodeHome,
	SymEnd:          CodeEnd,
	SymPageUp:       CodePageUp,
	SymPageDown:     CodePageDown,
	SymF1:           CodeF1,
	SymF2:           CodeF2,
	SymF3:           CodeF3,
	SymF4:           CodeF4,
	SymF5:           CodeF5,
	SymF6:           CodeF6,
	SymF7:           CodeF7,
	SymF8:           CodeF8,
	SymF9:           CodeF9,
	SymF10:          CodeF10,
	SymF11:          CodeF11,
	SymF12:          CodeF12,
	SymNumLock:      CodeNumLock,
	SymCapsLock:     CodeCapsLock,
	SymScrollLock:   CodeScrollLock,
	SymRShift:       CodeRightShift,
	SymLShift:       CodeLeftShift,
	SymRCtrl:        CodeRightCtrl,
	SymLCtrl:        CodeLeftCtrl,
	SymRAlt:         CodeRightAlt,
	SymLAlt:         CodeLeftAlt,
	SymRMeta:        CodeRightMeta,
	SymLMeta:        CodeLeftMeta,
	SymCompose:      CodeCompose,
	SymHelp:         CodeHelp,
	SymPrint:        CodePrint,
	SymSysReq:       CodeSysRq,
	SymMenu:         CodeMenu,
	SymPower:        CodePower,
	SymUndo:         CodeUndo,
}

// InRange reports whether sym indexes the translation table at all
func InRange(sym Sym) bool {
	return int(sym) < SymLimit
}

// Translate looks up the guest scan code for sym. The second result is false
// for symbols outside the table and for symbols without a mapping.
func Translate(sym Sym) (Code, bool) {
	if !InRange(sym) {
		return CodeUnmapped, false
	}
	code := table[sym]
	return code, code != CodeUnmapped
}

// Entries lists every mapped symbol in ascending symbol order
func Entries() []Entry {
	entries := make([]Entry, 0, 128)
	for sym, code := range table {
		if code != CodeUnmapped {
			entries = append(entries, Entry{Sym: Sym(sym), Code: code})
		}
	}
	return entries
}
