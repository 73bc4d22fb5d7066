package grammar

import (
	"strconv"
	"strings"

	"github.com/nihei9/lalrgen/grammar/symbol"
	"go.uber.org/zap"
)

type ActionType string

const (
	ActionTypeShift    = ActionType("shift")
	ActionTypeReduce   = ActionType("reduce")
	ActionTypeError    = ActionType("error")
	ActionTypeNonAssoc = ActionType("nonassoc")
)

// parseAction is an entry of the action table. The zero value is an error action.
type parseAction struct {
	ty    ActionType
	state stateNum
	prod  productionNum
}

func newShiftAction(state stateNum) parseAction {
	return parseAction{
		ty:    ActionTypeShift,
		state: state,
	}
}

func newReduceAction(prod productionNum) parseAction {
	return parseAction{
		ty:   ActionTypeReduce,
		prod: prod,
	}
}

func newNonAssocAction() parseAction {
	return parseAction{
		ty: ActionTypeNonAssoc,
	}
}

func (a parseAction) kind() ActionType {
	if a.ty == "" {
		return ActionTypeError
	}
	return a.ty
}

// encode converts an action into the integer form of the compiled table. Non-associative entries
// encode as errors and are listed separately.
func (a parseAction) encode() int {
	switch a.kind() {
	case ActionTypeShift:
		return a.state.Int() * -1
	case ActionTypeReduce:
		return a.prod.Int()
	}
	return 0
}

type GoToType string

const (
	GoToTypeRegistered = GoToType("registered")
	GoToTypeError      = GoToType("error")
)

type goToEntry uint

const goToEntryEmpty = goToEntry(0)

func newGoToEntry(state stateNum) goToEntry {
	return goToEntry(state)
}

func (e goToEntry) describe() (GoToType, stateNum) {
	if e == goToEntryEmpty {
		return GoToTypeError, stateNumInitial
	}
	return GoToTypeRegistered, stateNum(e)
}

type conflictResolutionMethod int

func (m conflictResolutionMethod) Int() int {
	return int(m)
}

func (m conflictResolutionMethod) String() string {
	switch m {
	case ResolvedByPrec:
		return "precedence"
	case ResolvedByAssoc:
		return "associativity"
	case ResolvedByShift:
		return "shift"
	case ResolvedByProdOrder:
		return "production order"
	}
	return "unknown"
}

// declared reports whether a grammar author resolved a conflict by declaring precedences.
// The other methods are defaults, and the conflicts resolved by them are counted.
func (m conflictResolutionMethod) declared() bool {
	return m == ResolvedByPrec || m == ResolvedByAssoc
}

const (
	ResolvedByPrec      conflictResolutionMethod = 1
	ResolvedByAssoc     conflictResolutionMethod = 2
	ResolvedByShift     conflictResolutionMethod = 3
	ResolvedByProdOrder conflictResolutionMethod = 4
)

type conflict interface {
	conflict()
	method() conflictResolutionMethod
}

type shiftReduceConflict struct {
	state      stateNum
	sym        symbol.SymbolNum
	nextState  stateNum
	prodNum    productionNum
	adopted    ActionType
	resolvedBy conflictResolutionMethod
}

func (c *shiftReduceConflict) conflict() {
}

func (c *shiftReduceConflict) method() conflictResolutionMethod {
	return c.resolvedBy
}

type reduceReduceConflict struct {
	state      stateNum
	sym        symbol.SymbolNum
	prodNum1   productionNum
	prodNum2   productionNum
	resolvedBy conflictResolutionMethod
}

func (c *reduceReduceConflict) conflict() {
}

func (c *reduceReduceConflict) method() conflictResolutionMethod {
	return c.resolvedBy
}

var (
	_ conflict = &shiftReduceConflict{}
	_ conflict = &reduceReduceConflict{}
)

type ParsingTable struct {
	actionTable      []parseAction
	goToTable        []goToEntry
	stateCount       int
	terminalCount    int
	nonTerminalCount int

	InitialState stateNum
}

func (t *ParsingTable) getAction(state stateNum, sym symbol.SymbolNum) parseAction {
	return t.readAction(state.Int(), sym.Int())
}

func (t *ParsingTable) getGoTo(state stateNum, sym symbol.SymbolNum) (GoToType, stateNum) {
	pos := state.Int()*t.nonTerminalCount + sym.Int()
	return t.goToTable[pos].describe()
}

func (t *ParsingTable) readAction(row int, col int) parseAction {
	return t.actionTable[row*t.terminalCount+col]
}

func (t *ParsingTable) writeAction(row int, col int, act parseAction) {
	t.actionTable[row*t.terminalCount+col] = act
}

func (t *ParsingTable) writeGoTo(state stateNum, sym symbol.Symbol, nextState stateNum) error {
	pos := state.Int()*t.nonTerminalCount + sym.Num().Int()
	if t.goToTable[pos] != goToEntryEmpty && t.goToTable[pos] != newGoToEntry(nextState) {
		return newInternalError("a goto entry is already registered; state: %v, symbol: %v", state, sym)
	}
	t.goToTable[pos] = newGoToEntry(nextState)
	return nil
}

type lrTableBuilder struct {
	automaton    *lalr1Automaton
	prods        *productionSet
	termCount    int
	nonTermCount int
	symTab       *symbol.SymbolTableReader
	logger       *zap.Logger

	conflicts     []conflict
	conflictCount int
}

func (b *lrTableBuilder) build() (*ParsingTable, error) {
	if b.logger == nil {
		b.logger = zap.NewNop()
	}

	ptab := &ParsingTable{
		actionTable:      make([]parseAction, len(b.automaton.states)*b.termCount),
		goToTable:        make([]goToEntry, len(b.automaton.states)*b.nonTermCount),
		stateCount:       len(b.automaton.states),
		terminalCount:    b.termCount,
		nonTerminalCount: b.nonTermCount,
		InitialState:     b.automaton.initialState,
	}

	for _, state := range b.automaton.states {
		err := b.fill(ptab, state)
		if err != nil {
			return nil, err
		}
	}

	return ptab, nil
}

// fill writes the reduce actions of a state first, and then the shift actions and the goto entries.
func (b *lrTableBuilder) fill(tab *ParsingTable, state *lrState) error {
	for _, idx := range state.items.items() {
		item := b.automaton.arena.get(idx)
		if !item.reducible() {
			continue
		}
		for _, a := range item.lookAhead.Terminals() {
			err := b.writeReduceAction(tab, state.num, a, item.prod)
			if err != nil {
				return err
			}
		}
	}

	for _, tr := range state.transitions {
		if tr.symbol.IsTerminal() {
			err := b.writeShiftAction(tab, state.num, tr.symbol.Num(), tr.to.num)
			if err != nil {
				return err
			}
			continue
		}
		err := tab.writeGoTo(state.num, tr.symbol, tr.to.num)
		if err != nil {
			return err
		}
	}

	return nil
}

// writeShiftAction writes a shift action. A non-associative entry is never replaced.
func (b *lrTableBuilder) writeShiftAction(tab *ParsingTable, state stateNum, sym symbol.SymbolNum, nextState stateNum) error {
	act := tab.readAction(state.Int(), sym.Int())
	switch act.kind() {
	case ActionTypeError:
		tab.writeAction(state.Int(), sym.Int(), newShiftAction(nextState))
	case ActionTypeShift:
		if act.state != nextState {
			return newInternalError("a state has two transitions on the same symbol; state: %v, symbol: %v", state, sym)
		}
	case ActionTypeReduce:
		prod, ok := b.prods.findByNum(act.prod)
		if !ok {
			return newInternalError("production not found: %v", act.prod)
		}
		b.resolveShiftReduce(tab, state, sym, nextState, prod)
	}
	return nil
}

// writeReduceAction writes a reduce action. When a reduce/reduce conflict occurred, the production
// defined earlier in the grammar wins.
func (b *lrTableBuilder) writeReduceAction(tab *ParsingTable, state stateNum, sym symbol.SymbolNum, prod *production) error {
	act := tab.readAction(state.Int(), sym.Int())
	switch act.kind() {
	case ActionTypeError:
		tab.writeAction(state.Int(), sym.Int(), newReduceAction(prod.num))
	case ActionTypeReduce:
		if act.prod == prod.num {
			return nil
		}
		p1, p2 := act.prod, prod.num
		if p2 < p1 {
			p1, p2 = p2, p1
		}
		tab.writeAction(state.Int(), sym.Int(), newReduceAction(p1))
		b.addConflict(&reduceReduceConflict{
			state:      state,
			sym:        sym,
			prodNum1:   p1,
			prodNum2:   p2,
			resolvedBy: ResolvedByProdOrder,
		})
	case ActionTypeShift:
		b.resolveShiftReduce(tab, state, sym, act.state, prod)
	}
	return nil
}

func (b *lrTableBuilder) resolveShiftReduce(tab *ParsingTable, state stateNum, sym symbol.SymbolNum, nextState stateNum, prod *production) {
	adopted, method := b.resolveSRConflict(sym, prod)
	switch adopted {
	case ActionTypeShift:
		tab.writeAction(state.Int(), sym.Int(), newShiftAction(nextState))
	case ActionTypeReduce:
		tab.writeAction(state.Int(), sym.Int(), newReduceAction(prod.num))
	case ActionTypeNonAssoc:
		tab.writeAction(state.Int(), sym.Int(), newNonAssocAction())
	}
	b.addConflict(&shiftReduceConflict{
		state:      state,
		sym:        sym,
		nextState:  nextState,
		prodNum:    prod.num,
		adopted:    adopted,
		resolvedBy: method,
	})
}

// resolveSRConflict decides between shifting sym and reducing by prod. A terminal without a
// precedence is weaker than any production having one. When neither has a precedence, the shift
// wins by default.
func (b *lrTableBuilder) resolveSRConflict(sym symbol.SymbolNum, prod *production) (ActionType, conflictResolutionMethod) {
	symPrec := symbol.PrecNil
	symAssoc := symbol.AssocNone
	if s, ok := b.symTab.TerminalSymbol(sym); ok {
		symPrec, symAssoc = b.symTab.Precedence(s)
	}

	if prod.prec != symbol.PrecNil {
		switch {
		case prod.prec > symPrec:
			return ActionTypeReduce, ResolvedByPrec
		case prod.prec < symPrec:
			return ActionTypeShift, ResolvedByPrec
		}
		switch symAssoc {
		case symbol.AssocLeft:
			return ActionTypeReduce, ResolvedByAssoc
		case symbol.AssocRight:
			return ActionTypeShift, ResolvedByAssoc
		case symbol.AssocNonAssoc:
			return ActionTypeNonAssoc, ResolvedByAssoc
		}
		return ActionTypeShift, ResolvedByShift
	}
	if symPrec != symbol.PrecNil {
		return ActionTypeShift, ResolvedByPrec
	}
	return ActionTypeShift, ResolvedByShift
}

func (b *lrTableBuilder) addConflict(c conflict) {
	b.conflicts = append(b.conflicts, c)

	var fields []zap.Field
	var msg string
	switch c := c.(type) {
	case *shiftReduceConflict:
		msg = "shift/reduce conflict"
		fields = []zap.Field{
			zap.Int("state", c.state.Int()),
			zap.String("terminal", b.terminalText(c.sym)),
			zap.Int("next_state", c.nextState.Int()),
			zap.String("production", b.productionText(c.prodNum)),
			zap.String("adopted", string(c.adopted)),
			zap.Stringer("resolved_by", c.resolvedBy),
		}
	case *reduceReduceConflict:
		msg = "reduce/reduce conflict"
		fields = []zap.Field{
			zap.Int("state", c.state.Int()),
			zap.String("terminal", b.terminalText(c.sym)),
			zap.String("production_1", b.productionText(c.prodNum1)),
			zap.String("production_2", b.productionText(c.prodNum2)),
			zap.Stringer("resolved_by", c.resolvedBy),
		}
	}

	if c.method().declared() {
		b.logger.Debug(msg, fields...)
		return
	}
	b.conflictCount++
	b.logger.Warn(msg, fields...)
}

// countReductions counts the reduce entries of each production in a filled table.
func (b *lrTableBuilder) countReductions(tab *ParsingTable) error {
	for _, p := range b.prods.getAllProductions() {
		p.reductions = 0
	}
	for _, act := range tab.actionTable {
		if act.kind() != ActionTypeReduce {
			continue
		}
		p, ok := b.prods.findByNum(act.prod)
		if !ok {
			return newInternalError("production not found: %v", act.prod)
		}
		p.reductions++
	}
	return nil
}

// unreducedProductions returns the productions no entry of the table reduces by.
func (b *lrTableBuilder) unreducedProductions() []*production {
	var prods []*production
	for _, p := range b.prods.getAllProductions() {
		if p.reductions == 0 {
			prods = append(prods, p)
		}
	}
	return prods
}

func (b *lrTableBuilder) terminalText(sym symbol.SymbolNum) string {
	texts := b.symTab.TerminalTexts()
	if sym.Int() < len(texts) {
		return texts[sym]
	}
	return strconv.Itoa(sym.Int())
}

func (b *lrTableBuilder) productionText(num productionNum) string {
	p, ok := b.prods.findByNum(num)
	if !ok {
		return "?"
	}
	return productionText(b.symTab, p)
}

func productionText(symTab *symbol.SymbolTableReader, p *production) string {
	var sb strings.Builder
	lhs, _ := symTab.ToText(p.lhs)
	sb.WriteString(lhs)
	sb.WriteString(" →")
	for _, sym := range p.rhs {
		text, _ := symTab.ToText(sym)
		sb.WriteString(" ")
		sb.WriteString(text)
	}
	if p.isEmpty() {
		sb.WriteString(" ε")
	}
	return sb.String()
}
