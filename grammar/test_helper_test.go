package grammar

import (
	"sort"
	"strings"
	"testing"

	"github.com/nihei9/lalrgen/grammar/symbol"
	"github.com/nihei9/lalrgen/grammar/termset"
	spec "github.com/nihei9/lalrgen/spec/grammar"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildTestGrammar(t *testing.T, src string) *Grammar {
	t.Helper()

	gs, err := spec.Parse(strings.NewReader(src))
	require.NoError(t, err)
	b := GrammarBuilder{
		Spec: gs,
	}
	gram, err := b.Build()
	require.NoError(t, err)
	return gram
}

// testPipeline holds the intermediate products of a compilation.
type testPipeline struct {
	gram      *Grammar
	first     *firstSet
	automaton *lalr1Automaton
	builder   *lrTableBuilder
	table     *ParsingTable
}

func runTestPipeline(t *testing.T, src string, logger *zap.Logger) *testPipeline {
	t.Helper()

	if logger == nil {
		logger = zap.NewNop()
	}

	gram := buildTestGrammar(t, src)
	symTab := gram.symbolTable.Reader()
	first, err := genFirstSet(gram.productionSet, symTab.NonTerminalCount(), symTab.TerminalCount())
	require.NoError(t, err)
	automaton, err := genLALR1Automaton(gram.productionSet, first, symTab.TerminalCount(), logger)
	require.NoError(t, err)
	b := &lrTableBuilder{
		automaton:    automaton,
		prods:        gram.productionSet,
		termCount:    symTab.TerminalCount(),
		nonTermCount: symTab.NonTerminalCount(),
		symTab:       symTab,
		logger:       logger,
	}
	tab, err := b.build()
	require.NoError(t, err)
	require.NoError(t, b.countReductions(tab))

	return &testPipeline{
		gram:      gram,
		first:     first,
		automaton: automaton,
		builder:   b,
		table:     tab,
	}
}

type testSymbolGenerator func(text string) symbol.Symbol

func newTestSymbolGenerator(t *testing.T, symTab *symbol.SymbolTableReader) testSymbolGenerator {
	return func(text string) symbol.Symbol {
		t.Helper()

		sym, ok := symTab.ToSymbol(text)
		if !ok {
			t.Fatalf("symbol was not found: %v", text)
		}
		return sym
	}
}

type testProductionFinder func(lhs string, rhs ...string) *production

func newTestProductionFinder(t *testing.T, gram *Grammar) testProductionFinder {
	genSym := newTestSymbolGenerator(t, gram.symbolTable.Reader())
	return func(lhs string, rhs ...string) *production {
		t.Helper()

		rhsSym := []symbol.Symbol{}
		for _, text := range rhs {
			rhsSym = append(rhsSym, genSym(text))
		}
		p, err := newProduction(genSym(lhs), rhsSym)
		if err != nil {
			t.Fatalf("failed to create a production: %v", err)
		}
		prod, ok := gram.productionSet.findByID(p.id)
		if !ok {
			t.Fatalf("production was not found: %v → %v", lhs, rhs)
		}
		return prod
	}
}

func (p *testPipeline) termSet(t *testing.T, texts ...string) *termset.Set {
	t.Helper()

	genSym := newTestSymbolGenerator(t, p.gram.symbolTable.Reader())
	set := termset.New(p.gram.symbolTable.Reader().TerminalCount())
	for _, text := range texts {
		set.Add(genSym(text).Num())
	}
	return set
}

// findState returns the state whose kernel consists of the passed cores.
func (p *testPipeline) findState(t *testing.T, cores ...lrItemCore) *lrState {
	t.Helper()

	id, err := genKernelID(sortedCores(cores))
	require.NoError(t, err)
	for _, s := range p.automaton.states {
		if s.id == id {
			return s
		}
	}
	t.Fatalf("state was not found: %v", cores)
	return nil
}

func (p *testPipeline) lookAhead(t *testing.T, state *lrState, core lrItemCore) *termset.Set {
	t.Helper()

	idx, ok := state.items.find(core)
	if !ok {
		t.Fatalf("item was not found; state: %v, core: %v", state.num, core)
	}
	return p.automaton.arena.get(idx).lookAhead
}

func sortedCores(cores []lrItemCore) []lrItemCore {
	sorted := make([]lrItemCore, len(cores))
	copy(sorted, cores)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].less(sorted[j])
	})
	return sorted
}

func core(prod *production, dot int) lrItemCore {
	return lrItemCore{
		Prod: prod.num.Int(),
		Dot:  dot,
	}
}
