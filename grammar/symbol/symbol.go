package symbol

import (
	"fmt"
	"sort"
)

type symbolKind string

const (
	symbolKindNonTerminal = symbolKind("non-terminal")
	symbolKindTerminal    = symbolKind("terminal")
)

func (t symbolKind) String() string {
	return string(t)
}

type SymbolNum uint16

func (n SymbolNum) Int() int {
	return int(n)
}

type Symbol uint16

func (s Symbol) String() string {
	kind, isStart, isEOF, num := s.describe()
	var prefix string
	switch {
	case isStart:
		prefix = "s"
	case isEOF:
		prefix = "e"
	case kind == symbolKindNonTerminal:
		prefix = "n"
	case kind == symbolKindTerminal:
		prefix = "t"
	default:
		prefix = "?"
	}
	return fmt.Sprintf("%v%v", prefix, num)
}

const (
	maskKindPart    = uint16(0x8000) // 1000 0000 0000 0000
	maskNonTerminal = uint16(0x0000) // 0000 0000 0000 0000
	maskTerminal    = uint16(0x8000) // 1000 0000 0000 0000

	maskSubKindpart    = uint16(0x4000) // 0100 0000 0000 0000
	maskNonStartAndEOF = uint16(0x0000) // 0000 0000 0000 0000
	maskStartOrEOF     = uint16(0x4000) // 0100 0000 0000 0000

	maskNumberPart = uint16(0x3fff) // 0011 1111 1111 1111

	symbolNumStart = uint16(0x0001) // 0000 0000 0000 0001
	symbolNumEOF   = uint16(0x0001) // 0000 0000 0000 0001
	symbolNumError = uint16(0x0002) // 0000 0000 0000 0010

	SymbolNil   = Symbol(0)                                                  // 0000 0000 0000 0000
	SymbolStart = Symbol(maskNonTerminal | maskStartOrEOF | symbolNumStart)  // 0100 0000 0000 0001
	SymbolEOF   = Symbol(maskTerminal | maskStartOrEOF | symbolNumEOF)       // 1100 0000 0000 0001: The EOF symbol is treated as a terminal symbol.
	SymbolError = Symbol(maskTerminal | maskNonStartAndEOF | symbolNumError) // 1000 0000 0000 0010

	// The symbol name contains `<` and `>` to avoid conflicting with user-defined symbols.
	SymbolNameEOF   = "<eof>"
	SymbolNameError = "error"

	nonTerminalNumMin = SymbolNum(2)           // The number 1 is used by a start symbol.
	terminalNumMin    = SymbolNum(3)           // The number 1 is used by the EOF symbol, and 2 is used by the error symbol.
	symbolNumMax      = SymbolNum(0xffff) >> 2 // 0011 1111 1111 1111
)

func newSymbol(kind symbolKind, isStart bool, num SymbolNum) (Symbol, error) {
	if num > symbolNumMax {
		return SymbolNil, fmt.Errorf("a symbol number exceeds the limit; limit: %v, passed: %v", symbolNumMax, num)
	}
	if kind == symbolKindTerminal && isStart {
		return SymbolNil, fmt.Errorf("a start symbol must be a non-terminal symbol")
	}

	kindMask := maskNonTerminal
	if kind == symbolKindTerminal {
		kindMask = maskTerminal
	}
	startMask := maskNonStartAndEOF
	if isStart {
		startMask = maskStartOrEOF
	}
	return Symbol(kindMask | startMask | uint16(num)), nil
}

func (s Symbol) Num() SymbolNum {
	_, _, _, num := s.describe()
	return num
}

func (s Symbol) Byte() []byte {
	if s.IsNil() {
		return []byte{0, 0}
	}
	return []byte{byte(uint16(s) >> 8), byte(uint16(s) & 0x00ff)}
}

func (s Symbol) IsNil() bool {
	_, _, _, num := s.describe()
	return num == 0
}

func (s Symbol) IsStart() bool {
	if s.IsNil() {
		return false
	}
	_, isStart, _, _ := s.describe()
	return isStart
}

func (s Symbol) IsEOF() bool {
	if s.IsNil() {
		return false
	}
	_, _, isEOF, _ := s.describe()
	return isEOF
}

func (s Symbol) IsNonTerminal() bool {
	if s.IsNil() {
		return false
	}
	kind, _, _, _ := s.describe()
	return kind == symbolKindNonTerminal
}

func (s Symbol) IsTerminal() bool {
	if s.IsNil() {
		return false
	}
	return !s.IsNonTerminal()
}

func (s Symbol) describe() (symbolKind, bool, bool, SymbolNum) {
	kind := symbolKindNonTerminal
	if uint16(s)&maskKindPart > 0 {
		kind = symbolKindTerminal
	}
	isStart := false
	isEOF := false
	if uint16(s)&maskSubKindpart > 0 {
		if kind == symbolKindNonTerminal {
			isStart = true
		} else {
			isEOF = true
		}
	}
	num := SymbolNum(uint16(s) & maskNumberPart)
	return kind, isStart, isEOF, num
}

type Assoc string

const (
	AssocNone     = Assoc("")
	AssocLeft     = Assoc("left")
	AssocRight    = Assoc("right")
	AssocNonAssoc = Assoc("nonassoc")
)

func (a Assoc) String() string {
	if a == AssocNone {
		return "none"
	}
	return string(a)
}

// PrecNil means a terminal or a production has no precedence. Declared precedences start at PrecMin,
// and a greater value binds tighter.
const (
	PrecNil = 0
	PrecMin = 1
)

type SymbolTable struct {
	text2Sym     map[string]Symbol
	sym2Text     map[Symbol]string
	nonTermTexts []string
	termTexts    []string
	nonTermNum   SymbolNum
	termNum      SymbolNum

	// termPrec and termAssoc are indexed by terminal numbers.
	termPrec  []int
	termAssoc []Assoc

	termUses    []int
	nonTermUses []int

	frozen bool
}

type SymbolTableWriter struct {
	*SymbolTable
}

type SymbolTableReader struct {
	*SymbolTable
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		text2Sym: map[string]Symbol{
			SymbolNameEOF:   SymbolEOF,
			SymbolNameError: SymbolError,
		},
		sym2Text: map[Symbol]string{
			SymbolEOF:   SymbolNameEOF,
			SymbolError: SymbolNameError,
		},
		termTexts: []string{
			"",              // Nil
			SymbolNameEOF,   // EOF
			SymbolNameError, // error
		},
		nonTermTexts: []string{
			"", // Nil
			"", // Start Symbol
		},
		nonTermNum:  nonTerminalNumMin,
		termNum:     terminalNumMin,
		termPrec:    []int{PrecNil, PrecNil, PrecNil},
		termAssoc:   []Assoc{AssocNone, AssocNone, AssocNone},
		termUses:    []int{0, 0, 0},
		nonTermUses: []int{0, 0},
	}
}

func (t *SymbolTable) Writer() *SymbolTableWriter {
	return &SymbolTableWriter{
		SymbolTable: t,
	}
}

func (t *SymbolTable) Reader() *SymbolTableReader {
	return &SymbolTableReader{
		SymbolTable: t,
	}
}

func (w *SymbolTableWriter) RegisterStartSymbol(text string) (Symbol, error) {
	if w.frozen {
		return SymbolNil, fmt.Errorf("symbol table is frozen; symbol: %v", text)
	}
	if sym, ok := w.text2Sym[text]; ok && sym != SymbolStart {
		return SymbolNil, fmt.Errorf("start symbol name is already used; symbol: %v", text)
	}
	w.text2Sym[text] = SymbolStart
	w.sym2Text[SymbolStart] = text
	w.nonTermTexts[SymbolStart.Num().Int()] = text
	return SymbolStart, nil
}

func (w *SymbolTableWriter) RegisterNonTerminalSymbol(text string) (Symbol, error) {
	if sym, ok := w.text2Sym[text]; ok {
		if !sym.IsNonTerminal() {
			return SymbolNil, fmt.Errorf("symbol is already registered as a terminal; symbol: %v", text)
		}
		return sym, nil
	}
	if w.frozen {
		return SymbolNil, fmt.Errorf("symbol table is frozen; symbol: %v", text)
	}
	sym, err := newSymbol(symbolKindNonTerminal, false, w.nonTermNum)
	if err != nil {
		return SymbolNil, err
	}
	w.nonTermNum++
	w.text2Sym[text] = sym
	w.sym2Text[sym] = text
	w.nonTermTexts = append(w.nonTermTexts, text)
	w.nonTermUses = append(w.nonTermUses, 0)
	return sym, nil
}

func (w *SymbolTableWriter) RegisterTerminalSymbol(text string) (Symbol, error) {
	if sym, ok := w.text2Sym[text]; ok {
		if !sym.IsTerminal() {
			return SymbolNil, fmt.Errorf("symbol is already registered as a non-terminal; symbol: %v", text)
		}
		return sym, nil
	}
	if w.frozen {
		return SymbolNil, fmt.Errorf("symbol table is frozen; symbol: %v", text)
	}
	sym, err := newSymbol(symbolKindTerminal, false, w.termNum)
	if err != nil {
		return SymbolNil, err
	}
	w.termNum++
	w.text2Sym[text] = sym
	w.sym2Text[sym] = text
	w.termTexts = append(w.termTexts, text)
	w.termPrec = append(w.termPrec, PrecNil)
	w.termAssoc = append(w.termAssoc, AssocNone)
	w.termUses = append(w.termUses, 0)
	return sym, nil
}

// SetPrecedence attaches a precedence and an associativity to a terminal. A terminal's precedence
// can be set only once.
func (w *SymbolTableWriter) SetPrecedence(sym Symbol, prec int, assoc Assoc) error {
	if !sym.IsTerminal() {
		return fmt.Errorf("precedence can be set only to a terminal; symbol: %v", sym)
	}
	if prec < PrecMin {
		return fmt.Errorf("precedence must be greater than or equal to %v; passed: %v", PrecMin, prec)
	}
	num := sym.Num().Int()
	if num >= len(w.termPrec) {
		return fmt.Errorf("terminal not found: %v", sym)
	}
	if w.termPrec[num] != PrecNil {
		return fmt.Errorf("precedence is already set; symbol: %v", sym)
	}
	w.termPrec[num] = prec
	w.termAssoc[num] = assoc
	return nil
}

// CountUse records an appearance of a symbol in a right-hand side.
func (w *SymbolTableWriter) CountUse(sym Symbol) {
	switch {
	case sym.IsTerminal():
		w.termUses[sym.Num()]++
	case sym.IsNonTerminal():
		w.nonTermUses[sym.Num()]++
	}
}

// Freeze fixes the set of symbols. After that, the terminal count never changes, so terminal sets
// can be sized by it.
func (w *SymbolTableWriter) Freeze() {
	w.frozen = true
}

func (r *SymbolTableReader) Frozen() bool {
	return r.frozen
}

func (r *SymbolTableReader) ToSymbol(text string) (Symbol, bool) {
	if sym, ok := r.text2Sym[text]; ok {
		return sym, true
	}
	return SymbolNil, false
}

func (r *SymbolTableReader) ToText(sym Symbol) (string, bool) {
	text, ok := r.sym2Text[sym]
	return text, ok
}

// TerminalSymbol converts a terminal number into a symbol.
func (r *SymbolTableReader) TerminalSymbol(num SymbolNum) (Symbol, bool) {
	if num == SymbolEOF.Num() {
		return SymbolEOF, true
	}
	if num == 0 || num >= r.termNum {
		return SymbolNil, false
	}
	sym, err := newSymbol(symbolKindTerminal, false, num)
	if err != nil {
		return SymbolNil, false
	}
	return sym, true
}

func (r *SymbolTableReader) Precedence(sym Symbol) (int, Assoc) {
	if !sym.IsTerminal() || sym.Num().Int() >= len(r.termPrec) {
		return PrecNil, AssocNone
	}
	return r.termPrec[sym.Num()], r.termAssoc[sym.Num()]
}

func (r *SymbolTableReader) UseCount(sym Symbol) int {
	switch {
	case sym.IsTerminal():
		return r.termUses[sym.Num()]
	case sym.IsNonTerminal():
		return r.nonTermUses[sym.Num()]
	}
	return 0
}

// TerminalCount returns the number of terminal columns including the nil column 0.
func (r *SymbolTableReader) TerminalCount() int {
	return r.termNum.Int()
}

// NonTerminalCount returns the number of non-terminal columns including the nil column 0.
func (r *SymbolTableReader) NonTerminalCount() int {
	return r.nonTermNum.Int()
}

func (r *SymbolTableReader) TerminalSymbols() []Symbol {
	syms := make([]Symbol, 0, r.termNum.Int())
	for sym := range r.sym2Text {
		if !sym.IsTerminal() || sym.IsNil() {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].Num() < syms[j].Num()
	})
	return syms
}

func (r *SymbolTableReader) TerminalTexts() []string {
	return r.termTexts
}

func (r *SymbolTableReader) NonTerminalSymbols() []Symbol {
	syms := make([]Symbol, 0, r.nonTermNum.Int())
	for sym := range r.sym2Text {
		if !sym.IsNonTerminal() || sym.IsNil() {
			continue
		}
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i].Num() < syms[j].Num()
	})
	return syms
}

func (r *SymbolTableReader) NonTerminalTexts() ([]string, error) {
	if r.nonTermTexts[SymbolStart.Num().Int()] == "" {
		return nil, fmt.Errorf("symbol table has no start symbol")
	}
	return r.nonTermTexts, nil
}
