package keymap

// Sym is a compositor key symbol in the legacy (SDL 1.2 style) symbol space
// carried by translated keyboard events.
type Sym uint16

const (
	SymUnknown      Sym = 0
	SymBackspace    Sym = 8
	SymTab          Sym = 9
	SymClear        Sym = 12
	SymReturn       Sym = 13
	SymPause        Sym = 19
	SymEscape       Sym = 27
	SymSpace        Sym = 32
	SymExclaim      Sym = 33
	SymQuoteDbl     Sym = 34
	SymHash         Sym = 35
	SymDollar       Sym = 36
	SymAmpersand    Sym = 38
	SymQuote        Sym = 39
	SymLeftParen    Sym = 40
	SymRightParen   Sym = 41
	SymAsterisk     Sym = 42
	SymPlus         Sym = 43
	SymComma        Sym = 44
	SymMinus        Sym = 45
	SymPeriod       Sym = 46
	SymSlash        Sym = 47
	Sym0            Sym = 48
	Sym1            Sym = 49
	Sym2            Sym = 50
	Sym3            Sym = 51
	Sym4            Sym = 52
	Sym5            Sym = 53
	Sym6            Sym = 54
	Sym7            Sym = 55
	Sym8            Sym = 56
	Sym9            Sym = 57
	SymColon        Sym = 58
	SymSemicolon    Sym = 59
	SymLess         Sym = 60
	SymEquals       Sym = 61
	SymGreater      Sym = 62
	SymQuestion     Sym = 63
	SymAt           Sym = 64
	SymLeftBracket  Sym = 91
	SymBackslash    Sym = 92
	SymRightBracket Sym = 93
	SymCaret        Sym = 94
	SymUnderscore   Sym = 95
	SymBackquote    Sym = 96
	SymA            Sym = 97
	SymB            Sym = 98
	SymC            Sym = 99
	SymD            Sym = 100
	SymE            Sym = 101
	SymF            Sym = 102
	SymG            Sym = 103
	SymH            Sym = 104
	SymI            Sym = 105
	SymJ            Sym = 106
	SymK            Sym = 107
	SymL            Sym = 108
	SymM            Sym = 109
	SymN            Sym = 110
	SymO            Sym = 111
	SymP            Sym = 112
	SymQ            Sym = 113
	SymR            Sym = 114
	SymS            Sym = 115
	SymT            Sym = 116
	SymU            Sym = 117
	SymV            Sym = 118
	SymW            Sym = 119
	SymX            Sym = 120
	SymY            Sym = 121
	SymZ            Sym = 122
	SymDelete       Sym = 127
	SymWorld0       Sym = 160
	SymWorld95      Sym = 255
	SymKP0          Sym = 256
	SymKP1          Sym = 257
	SymKP2          Sym = 258
	SymKP3          Sym = 259
	SymKP4          Sym = 260
	SymKP5          Sym = 261
	SymKP6          Sym = 262
	SymKP7          Sym = 263
	SymKP8          Sym = 264
	SymKP9          Sym = 265
	SymKPPeriod     Sym = 266
	SymKPDivide     Sym = 267
	SymKPMultiply   Sym = 268
	SymKPMinus      Sym = 269
	SymKPPlus       Sym = 270
	SymKPEnter      Sym = 271
	SymKPEquals     Sym = 272
	SymUp           Sym = 273
	SymDown         Sym = 274
	SymRight        Sym = 275
	SymLeft         Sym = 276
	SymInsert       Sym = 277
	SymHome         Sym = 278
	SymEnd          Sym = 279
	SymPageUp       Sym = 280
	SymPageDown     Sym = 281
	SymF1           Sym = 282
	SymF2           Sym = 283
	SymF3           Sym = 284
	SymF4           Sym = 285
	SymF5           Sym = 286
	SymF6           Sym = 287
	SymF7           Sym = 288
	SymF8           Sym = 289
	SymF9           Sym = 290
	SymF10          Sym = 291
	SymF11          Sym = 292
	SymF12          Sym = 293
	SymF13          Sym = 294
	SymF14          Sym = 295
	SymF15          Sym = 296
	SymNumLock      Sym = 300
	SymCapsLock     Sym = 301
	SymScrollLock   Sym = 302
	SymRShift       Sym = 303
	SymLShift       Sym = 304
	SymRCtrl        Sym = 305
	SymLCtrl        Sym = 306
	SymRAlt         Sym = 307
	SymLAlt         Sym = 308
	SymRMeta        Sym = 309
	SymLMeta        Sym = 310
	SymLSuper       Sym = 311
	SymRSuper       Sym = 312
	SymMode         Sym = 313
	SymCompose      Sym = 314
	SymHelp         Sym = 315
	SymPrint        Sym = 316
	SymSysReq       Sym = 317
	SymBreak        Sym = 318
	SymMenu         Sym = 319
	SymPower        Sym = 320
	SymEuro         Sym = 321
	SymUndo         Sym = 322

	// SymLimit is one past the highest symbol the translation table covers
	SymLimit = 323
)
