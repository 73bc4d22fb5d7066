package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This grammar belongs to LALR(1) class, not SLR(1).
const lrGrammarSrc = `
name = "test"

[[terminal]]
name    = "eq"
literal = "="
[[terminal]]
name    = "ref"
literal = "*"
[[terminal]]
name    = "id"
pattern = "[A-Za-z0-9_]+"

[[production]]
lhs = "S"
rhs = ["L", "eq", "R"]
[[production]]
lhs = "S"
rhs = ["R"]
[[production]]
lhs = "L"
rhs = ["ref", "R"]
[[production]]
lhs = "L"
rhs = ["id"]
[[production]]
lhs = "R"
rhs = ["L"]
`

type expectedItem struct {
	core      lrItemCore
	lookAhead []string
}

type expectedTransition struct {
	symbol string
	state  int
}

func TestGenLALR1Automaton(t *testing.T) {
	p := runTestPipeline(t, lrGrammarSrc, nil)
	findProd := newTestProductionFinder(t, p.gram)

	sPrime := findProd("S'", "S")
	sLeqR := findProd("S", "L", "eq", "R")
	sR := findProd("S", "R")
	lRefR := findProd("L", "ref", "R")
	lID := findProd("L", "id")
	rL := findProd("R", "L")

	assert.Equal(t, productionNumStart, sPrime.num)
	assert.Equal(t, productionNum(2), sLeqR.num)
	assert.Equal(t, productionNum(6), rL.num)

	expectedKernels := map[int][]expectedItem{
		0: {
			{core(sPrime, 0), []string{"<eof>"}},
		},
		1: {
			{core(sPrime, 1), []string{"<eof>"}},
		},
		2: {
			{core(sLeqR, 1), []string{"<eof>"}},
			{core(rL, 1), []string{"<eof>"}},
		},
		3: {
			{core(sR, 1), []string{"<eof>"}},
		},
		4: {
			{core(lRefR, 1), []string{"eq", "<eof>"}},
		},
		5: {
			{core(lID, 1), []string{"eq", "<eof>"}},
		},
		6: {
			{core(sLeqR, 2), []string{"<eof>"}},
		},
		7: {
			{core(rL, 1), []string{"eq", "<eof>"}},
		},
		8: {
			{core(lRefR, 2), []string{"eq", "<eof>"}},
		},
		9: {
			{core(sLeqR, 3), []string{"<eof>"}},
		},
	}

	expectedTransitions := map[int][]expectedTransition{
		0: {{"S", 1}, {"L", 2}, {"R", 3}, {"ref", 4}, {"id", 5}},
		2: {{"eq", 6}},
		4: {{"L", 7}, {"R", 8}, {"ref", 4}, {"id", 5}},
		6: {{"L", 7}, {"R", 9}, {"ref", 4}, {"id", 5}},
	}

	require.Len(t, p.automaton.states, len(expectedKernels))
	assert.Equal(t, stateNumInitial, p.automaton.initialState)

	for num, state := range p.automaton.states {
		assert.Equal(t, stateNum(num), state.num)

		expected := expectedKernels[num]
		var cores []lrItemCore
		for _, e := range expected {
			cores = append(cores, e.core)
		}
		assert.Equalf(t, sortedCores(cores), state.kernel, "state: %v", num)
		for _, e := range expected {
			la := p.lookAhead(t, state, e.core)
			assert.Truef(t, p.termSet(t, e.lookAhead...).Equal(la), "state: %v, item: %v, want: %v, got: %v", num, e.core, e.lookAhead, la)
		}

		var transitions []expectedTransition
		for _, tr := range state.transitions {
			text, ok := p.gram.symbolTable.Reader().ToText(tr.symbol)
			require.True(t, ok)
			transitions = append(transitions, expectedTransition{text, tr.to.num.Int()})
		}
		assert.Equalf(t, expectedTransitions[num], transitions, "state: %v", num)
	}

	// The closure of the initial state.
	{
		state := p.automaton.states[0]
		expectedClosure := []expectedItem{
			{core(sPrime, 0), []string{"<eof>"}},
			{core(sLeqR, 0), []string{"<eof>"}},
			{core(sR, 0), []string{"<eof>"}},
			{core(lRefR, 0), []string{"eq", "<eof>"}},
			{core(lID, 0), []string{"eq", "<eof>"}},
			{core(rL, 0), []string{"<eof>"}},
		}
		assert.Equal(t, len(expectedClosure), state.items.size())
		for _, e := range expectedClosure {
			la := p.lookAhead(t, state, e.core)
			assert.Truef(t, p.termSet(t, e.lookAhead...).Equal(la), "item: %v, want: %v, got: %v", e.core, e.lookAhead, la)
		}
	}
}

func TestGenLALR1Automaton_StateIdentity(t *testing.T) {
	p := runTestPipeline(t, lrGrammarSrc, nil)

	ids := map[kernelID]stateNum{}
	for _, state := range p.automaton.states {
		if num, ok := ids[state.id]; ok {
			t.Fatalf("states %v and %v have the same kernel", num, state.num)
		}
		ids[state.id] = state.num

		// Every transition on a symbol leads to the state whose kernel is the items advanced over it.
		for _, tr := range state.transitions {
			var advanced []lrItemCore
			for _, idx := range state.items.items() {
				item := p.automaton.arena.get(idx)
				if item.dottedSymbol != tr.symbol {
					continue
				}
				advanced = append(advanced, lrItemCore{Prod: item.core.Prod, Dot: item.core.Dot + 1})
			}
			assert.Equal(t, sortedCores(advanced), tr.to.kernel)
		}
	}
}

func TestGenLALR1Automaton_ClosureIsIdempotent(t *testing.T) {
	p := runTestPipeline(t, lrGrammarSrc, nil)

	b := &lalr1Builder{
		prods:     p.gram.productionSet,
		first:     p.first,
		termCount: p.gram.symbolTable.Reader().TerminalCount(),
		arena:     p.automaton.arena,
	}
	for _, state := range p.automaton.states {
		clone := newItemSet(b.arena)
		for _, idx := range state.items.items() {
			item := b.arena.get(idx)
			_, added, err := clone.add(item.prod, item.core.Dot, item.lookAhead)
			require.NoError(t, err)
			require.True(t, added)
		}
		require.NoError(t, b.closure(clone))
		assert.Truef(t, clone.equals(state.items), "state: %v", state.num)
	}
}

func TestGenLALR1Automaton_LookAheadPropagation(t *testing.T) {
	p := runTestPipeline(t, lrGrammarSrc, nil)
	arena := p.automaton.arena

	// Every item's look-ahead is included in the ones of the items it propagates to.
	for i := 0; i < arena.size(); i++ {
		item := arena.get(lrItemIndex(i))
		for _, to := range item.propagateTo {
			assert.Truef(t, item.lookAhead.IsSubsetOf(arena.get(to).lookAhead), "from: %v, to: %v", item.core, arena.get(to).core)
		}
	}

	// Propagation has reached a fixed point.
	var before []string
	for i := 0; i < arena.size(); i++ {
		before = append(before, arena.get(lrItemIndex(i)).lookAhead.String())
	}
	require.NoError(t, propagateLookAhead(arena))
	var after []string
	for i := 0; i < arena.size(); i++ {
		after = append(after, arena.get(lrItemIndex(i)).lookAhead.String())
	}
	assert.Equal(t, before, after)
}

// In this grammar, the state `b → y・` is reached from two states with different look-ahead symbols
// after it has been closed.
func TestGenLALR1Automaton_PropagatesIntoExistingState(t *testing.T) {
	src := `
name = "test"

[[terminal]]
name = "x"
[[terminal]]
name = "y"
[[terminal]]
name = "z"
[[terminal]]
name = "w"

[[production]]
lhs = "s"
rhs = ["x", "a", "y"]
[[production]]
lhs = "s"
rhs = ["z", "a", "w"]
[[production]]
lhs = "a"
rhs = ["b"]
[[production]]
lhs = "b"
rhs = ["y"]
`
	p := runTestPipeline(t, src, nil)
	findProd := newTestProductionFinder(t, p.gram)

	bY := findProd("b", "y")
	state := p.findState(t, core(bY, 1))
	assert.True(t, p.termSet(t, "y", "w").Equal(p.lookAhead(t, state, core(bY, 1))))
	assert.Equal(t, 0, p.builder.conflictCount)
}
