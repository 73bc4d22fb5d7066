package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type expectedAction struct {
	terminal string
	ty       ActionType
	state    *lrState
	prod     *production
}

func (p *testPipeline) assertActions(t *testing.T, state *lrState, expected []expectedAction) {
	t.Helper()

	genSym := newTestSymbolGenerator(t, p.gram.symbolTable.Reader())
	for _, e := range expected {
		act := p.table.getAction(state.num, genSym(e.terminal).Num())
		if !assert.Equalf(t, e.ty, act.kind(), "state: %v, terminal: %v", state.num, e.terminal) {
			continue
		}
		switch e.ty {
		case ActionTypeShift:
			assert.Equalf(t, e.state.num, act.state, "state: %v, terminal: %v", state.num, e.terminal)
		case ActionTypeReduce:
			assert.Equalf(t, e.prod.num, act.prod, "state: %v, terminal: %v", state.num, e.terminal)
		}
	}
}

func TestGenLALRParsingTable(t *testing.T) {
	p := runTestPipeline(t, lrGrammarSrc, nil)
	findProd := newTestProductionFinder(t, p.gram)
	genSym := newTestSymbolGenerator(t, p.gram.symbolTable.Reader())

	sPrime := findProd("S'", "S")
	sLeqR := findProd("S", "L", "eq", "R")
	sR := findProd("S", "R")
	lRefR := findProd("L", "ref", "R")
	lID := findProd("L", "id")
	rL := findProd("R", "L")

	states := p.automaton.states
	require.Len(t, states, 10)
	assert.Equal(t, 10, p.table.stateCount)
	assert.Equal(t, 0, p.builder.conflictCount)
	assert.Empty(t, p.builder.conflicts)

	p.assertActions(t, states[0], []expectedAction{
		{terminal: "ref", ty: ActionTypeShift, state: states[4]},
		{terminal: "id", ty: ActionTypeShift, state: states[5]},
		{terminal: "eq", ty: ActionTypeError},
		{terminal: "<eof>", ty: ActionTypeError},
	})
	p.assertActions(t, states[1], []expectedAction{
		{terminal: "<eof>", ty: ActionTypeReduce, prod: sPrime},
	})
	p.assertActions(t, states[2], []expectedAction{
		{terminal: "eq", ty: ActionTypeShift, state: states[6]},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: rL},
	})
	p.assertActions(t, states[3], []expectedAction{
		{terminal: "<eof>", ty: ActionTypeReduce, prod: sR},
	})
	p.assertActions(t, states[5], []expectedAction{
		{terminal: "eq", ty: ActionTypeReduce, prod: lID},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: lID},
	})
	p.assertActions(t, states[7], []expectedAction{
		{terminal: "eq", ty: ActionTypeReduce, prod: rL},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: rL},
	})
	p.assertActions(t, states[8], []expectedAction{
		{terminal: "eq", ty: ActionTypeReduce, prod: lRefR},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: lRefR},
	})
	p.assertActions(t, states[9], []expectedAction{
		{terminal: "<eof>", ty: ActionTypeReduce, prod: sLeqR},
		{terminal: "eq", ty: ActionTypeError},
	})

	expectedGoTos := map[int]map[string]int{
		0: {"S": 1, "L": 2, "R": 3},
		4: {"L": 7, "R": 8},
		6: {"L": 7, "R": 9},
	}
	for _, s := range states {
		for _, name := range []string{"S", "L", "R"} {
			ty, next := p.table.getGoTo(s.num, genSym(name).Num())
			expected, ok := expectedGoTos[s.num.Int()][name]
			if !ok {
				assert.Equalf(t, GoToTypeError, ty, "state: %v, symbol: %v", s.num, name)
				continue
			}
			assert.Equalf(t, GoToTypeRegistered, ty, "state: %v, symbol: %v", s.num, name)
			assert.Equalf(t, stateNum(expected), next, "state: %v, symbol: %v", s.num, name)
		}
	}

	// Every production of a grammar without dead rules is reduced somewhere.
	for _, prod := range p.gram.productionSet.getAllProductions() {
		assert.Greaterf(t, prod.reductions, 0, "production: %v", prod.num)
	}
	assert.Empty(t, p.builder.unreducedProductions())
}

const arithSrc = `
name = "arith"

[[terminal]]
name = "add"
[[terminal]]
name = "mul"
[[terminal]]
name = "num"

[[precedence]]
assoc   = "left"
symbols = ["add"]
[[precedence]]
assoc   = "left"
symbols = ["mul"]

[[production]]
lhs = "E"
rhs = ["E", "add", "E"]
[[production]]
lhs = "E"
rhs = ["E", "mul", "E"]
[[production]]
lhs = "E"
rhs = ["num"]
`

func TestGenLALRParsingTable_PrecedenceAndAssociativity(t *testing.T) {
	p := runTestPipeline(t, arithSrc, nil)
	findProd := newTestProductionFinder(t, p.gram)

	add := findProd("E", "E", "add", "E")
	mul := findProd("E", "E", "mul", "E")

	assert.Equal(t, 1, add.prec)
	assert.Equal(t, 2, mul.prec)
	assert.Equal(t, 0, p.builder.conflictCount)

	afterMul := p.findState(t, core(mul, 2))
	addE := p.findState(t, core(add, 3), core(add, 1), core(mul, 1))
	mulE := p.findState(t, core(mul, 3), core(add, 1), core(mul, 1))

	p.assertActions(t, addE, []expectedAction{
		// `add` is left-associative.
		{terminal: "add", ty: ActionTypeReduce, prod: add},
		// `mul` binds tighter than `add`.
		{terminal: "mul", ty: ActionTypeShift, state: afterMul},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: add},
	})
	p.assertActions(t, mulE, []expectedAction{
		{terminal: "add", ty: ActionTypeReduce, prod: mul},
		{terminal: "mul", ty: ActionTypeReduce, prod: mul},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: mul},
	})

	methods := map[conflictResolutionMethod]int{}
	for _, c := range p.builder.conflicts {
		sr, ok := c.(*shiftReduceConflict)
		require.True(t, ok)
		methods[sr.resolvedBy]++
	}
	assert.Equal(t, map[conflictResolutionMethod]int{
		ResolvedByPrec:  2,
		ResolvedByAssoc: 2,
	}, methods)
}

func TestGenLALRParsingTable_RightAssociativity(t *testing.T) {
	src := `
name = "pow"

[[terminal]]
name = "pow"
[[terminal]]
name = "num"

[[precedence]]
assoc   = "right"
symbols = ["pow"]

[[production]]
lhs = "E"
rhs = ["E", "pow", "E"]
[[production]]
lhs = "E"
rhs = ["num"]
`
	p := runTestPipeline(t, src, nil)
	findProd := newTestProductionFinder(t, p.gram)

	pow := findProd("E", "E", "pow", "E")
	afterPow := p.findState(t, core(pow, 2))
	powE := p.findState(t, core(pow, 3), core(pow, 1))

	p.assertActions(t, powE, []expectedAction{
		{terminal: "pow", ty: ActionTypeShift, state: afterPow},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: pow},
	})
	assert.Equal(t, 0, p.builder.conflictCount)
}

func TestGenLALRParsingTable_NonAssociativity(t *testing.T) {
	src := `
name = "cmp"

[[terminal]]
name = "lt"
[[terminal]]
name = "num"

[[precedence]]
assoc   = "nonassoc"
symbols = ["lt"]

[[production]]
lhs = "E"
rhs = ["E", "lt", "E"]
[[production]]
lhs = "E"
rhs = ["num"]
`
	p := runTestPipeline(t, src, nil)
	findProd := newTestProductionFinder(t, p.gram)

	lt := findProd("E", "E", "lt", "E")
	ltE := p.findState(t, core(lt, 3), core(lt, 1))

	p.assertActions(t, ltE, []expectedAction{
		{terminal: "lt", ty: ActionTypeNonAssoc},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: lt},
	})
	assert.Equal(t, 0, p.builder.conflictCount)

	genSym := newTestSymbolGenerator(t, p.gram.symbolTable.Reader())
	act := p.table.getAction(ltE.num, genSym("lt").Num())
	assert.Equal(t, 0, act.encode())

	// A nonassoc entry is never replaced.
	require.NoError(t, p.builder.writeShiftAction(p.table, ltE.num, genSym("lt").Num(), ltE.num))
	require.NoError(t, p.builder.writeReduceAction(p.table, ltE.num, genSym("lt").Num(), lt))
	assert.Equal(t, ActionTypeNonAssoc, p.table.getAction(ltE.num, genSym("lt").Num()).kind())
}

const danglingElseSrc = `
name = "stmt"

[[terminal]]
name = "if_"
[[terminal]]
name = "else_"
[[terminal]]
name = "other"

[[production]]
lhs = "stmt"
rhs = ["if_", "stmt"]
[[production]]
lhs = "stmt"
rhs = ["if_", "stmt", "else_", "stmt"]
[[production]]
lhs = "stmt"
rhs = ["other"]
`

func TestGenLALRParsingTable_DefaultShift(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	p := runTestPipeline(t, danglingElseSrc, zap.New(obsCore))
	findProd := newTestProductionFinder(t, p.gram)

	ifStmt := findProd("stmt", "if_", "stmt")
	ifElse := findProd("stmt", "if_", "stmt", "else_", "stmt")
	state := p.findState(t, core(ifStmt, 2), core(ifElse, 2))
	afterElse := p.findState(t, core(ifElse, 3))

	p.assertActions(t, state, []expectedAction{
		{terminal: "else_", ty: ActionTypeShift, state: afterElse},
		{terminal: "<eof>", ty: ActionTypeReduce, prod: ifStmt},
	})
	assert.Equal(t, 1, p.builder.conflictCount)

	entries := logs.FilterMessage("shift/reduce conflict").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "shift", fields["resolved_by"])
	assert.Equal(t, "else_", fields["terminal"])
	assert.Equal(t, "stmt → if_ stmt", fields["production"])
}

func TestGenLALRParsingTable_OneSidedPrecedence(t *testing.T) {
	tests := []struct {
		caption    string
		precSym    string
		adopted    ActionType
		resolvedBy conflictResolutionMethod
	}{
		{
			caption:    "a production having a precedence beats a terminal without one",
			precSym:    "if_",
			adopted:    ActionTypeReduce,
			resolvedBy: ResolvedByPrec,
		},
		{
			caption:    "a terminal having a precedence beats a production without one",
			precSym:    "else_",
			adopted:    ActionTypeShift,
			resolvedBy: ResolvedByPrec,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			src := danglingElseSrc + `
[[precedence]]
assoc   = "left"
symbols = ["` + tt.precSym + `"]
`
			p := runTestPipeline(t, src, nil)
			assert.Equal(t, 0, p.builder.conflictCount)
			require.Len(t, p.builder.conflicts, 1)
			c, ok := p.builder.conflicts[0].(*shiftReduceConflict)
			require.True(t, ok)
			assert.Equal(t, tt.adopted, c.adopted)
			assert.Equal(t, tt.resolvedBy, c.resolvedBy)
		})
	}
}

func TestGenLALRParsingTable_ReduceReduceConflict(t *testing.T) {
	src := `
name  = "rr"
start = "S"

[[terminal]]
name = "x"
[[terminal]]
name = "c"

[[production]]
lhs = "A"
rhs = ["x"]
[[production]]
lhs = "S"
rhs = ["A", "c"]
[[production]]
lhs = "S"
rhs = ["B", "c"]
[[production]]
lhs = "B"
rhs = ["x"]
`
	obsCore, logs := observer.New(zapcore.DebugLevel)
	p := runTestPipeline(t, src, zap.New(obsCore))
	findProd := newTestProductionFinder(t, p.gram)
	genSym := newTestSymbolGenerator(t, p.gram.symbolTable.Reader())

	aX := findProd("A", "x")
	bX := findProd("B", "x")
	require.Equal(t, productionNum(2), aX.num)
	require.Equal(t, productionNum(5), bX.num)

	state := p.findState(t, core(aX, 1), core(bX, 1))
	p.assertActions(t, state, []expectedAction{
		{terminal: "c", ty: ActionTypeReduce, prod: aX},
	})
	assert.Equal(t, 1, p.builder.conflictCount)

	require.Len(t, p.builder.conflicts, 1)
	assert.Equal(t, &reduceReduceConflict{
		state:      state.num,
		sym:        genSym("c").Num(),
		prodNum1:   aX.num,
		prodNum2:   bX.num,
		resolvedBy: ResolvedByProdOrder,
	}, p.builder.conflicts[0])

	unreduced := p.builder.unreducedProductions()
	require.Len(t, unreduced, 1)
	assert.Equal(t, bX, unreduced[0])
	assert.Equal(t, 0, bX.reductions)

	entries := logs.FilterMessage("reduce/reduce conflict").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestGenLALRParsingTable_IsDeterministic(t *testing.T) {
	for _, src := range []string{lrGrammarSrc, arithSrc, danglingElseSrc} {
		p1 := runTestPipeline(t, src, nil)
		p2 := runTestPipeline(t, src, nil)
		assert.Equal(t, p1.table.actionTable, p2.table.actionTable)
		assert.Equal(t, p1.table.goToTable, p2.table.goToTable)
		require.Len(t, p2.automaton.states, len(p1.automaton.states))
		for i := range p1.automaton.states {
			assert.Equal(t, p1.automaton.states[i].id, p2.automaton.states[i].id)
		}
	}
}

func TestParseAction_Encode(t *testing.T) {
	assert.Equal(t, 0, parseAction{}.encode())
	assert.Equal(t, ActionTypeError, parseAction{}.kind())
	assert.Equal(t, -3, newShiftAction(3).encode())
	assert.Equal(t, 5, newReduceAction(5).encode())
	assert.Equal(t, 0, newNonAssocAction().encode())
}
