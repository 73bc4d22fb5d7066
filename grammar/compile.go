package grammar

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nihei9/lalrgen/compressor"
	"github.com/nihei9/lalrgen/grammar/symbol"
	spec "github.com/nihei9/lalrgen/spec/grammar"
	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"
	"go.uber.org/zap"
)

type compileConfig struct {
	isReportingEnabled bool
	warningsDisabled   bool
	compressTables     bool
	logger             *zap.Logger
}

type CompileOption func(config *compileConfig)

func EnableReporting() CompileOption {
	return func(config *compileConfig) {
		config.isReportingEnabled = true
	}
}

// DisableWarnings suppresses the warnings about unreduced productions and unused symbols.
// Conflicts are still logged.
func DisableWarnings() CompileOption {
	return func(config *compileConfig) {
		config.warningsDisabled = true
	}
}

// CompressTables makes Compile emit the action and goto tables in compressed form.
func CompressTables() CompileOption {
	return func(config *compileConfig) {
		config.compressTables = true
	}
}

func WithLogger(logger *zap.Logger) CompileOption {
	return func(config *compileConfig) {
		if logger != nil {
			config.logger = logger
		}
	}
}

// Compile generates LALR(1) parsing tables. Conflicts don't make Compile fail; the caller decides
// whether ParsingTable.ConflictCount is acceptable. A returned *InternalError means a bug of the
// generator, not of the grammar.
func Compile(gram *Grammar, opts ...CompileOption) (cgram *spec.CompiledGrammar, report *spec.Report, retErr error) {
	config := &compileConfig{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(config)
	}
	logger := config.logger

	defer func() {
		v := recover()
		if v == nil {
			return
		}
		cgram = nil
		report = nil
		if err, ok := v.(*InternalError); ok {
			retErr = err
			return
		}
		retErr = newInternalError("%v", v)
	}()

	symTab := gram.symbolTable.Reader()
	if !symTab.Frozen() {
		return nil, nil, newInternalError("a symbol table must be frozen before compiling")
	}
	termCount := symTab.TerminalCount()
	nonTermCount := symTab.NonTerminalCount()

	logger.Debug("computing nullability and first sets")
	firstSet, err := genFirstSet(gram.productionSet, nonTermCount, termCount)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("building state machine")
	automaton, err := genLALR1Automaton(gram.productionSet, firstSet, termCount, logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("filling in tables", zap.Int("states", len(automaton.states)))
	b := &lrTableBuilder{
		automaton:    automaton,
		prods:        gram.productionSet,
		termCount:    termCount,
		nonTermCount: nonTermCount,
		symTab:       symTab,
		logger:       logger,
	}
	tab, err := b.build()
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("checking for non-reduced productions")
	err = b.countReductions(tab)
	if err != nil {
		return nil, nil, err
	}
	unreduced := b.unreducedProductions()
	unusedTerms, unusedNonTerms := findUnusedSymbols(gram)
	if !config.warningsDisabled {
		for _, p := range unreduced {
			logger.Warn("production never reduced", zap.Int("production", p.num.Int()), zap.String("rule", productionText(symTab, p)))
		}
		for _, sym := range unusedTerms {
			text, _ := symTab.ToText(sym)
			logger.Warn("terminal declared but never used", zap.String("terminal", text))
		}
		for _, sym := range unusedNonTerms {
			text, _ := symTab.ToText(sym)
			logger.Warn("non-terminal declared but never used", zap.String("non_terminal", text))
		}
	}

	var lexSpec *spec.LexicalSpecification
	if gram.lexSpec != nil {
		logger.Debug("compiling lexical specification", zap.Int("kinds", len(gram.lexSpec.Entries)))
		lexSpec, err = compileLexSpec(gram)
		if err != nil {
			return nil, nil, err
		}
	}

	if config.isReportingEnabled {
		report, err = genReport(b, tab, gram, firstSet, unreduced, unusedTerms, unusedNonTerms)
		if err != nil {
			return nil, nil, err
		}
	}

	action := make([]int, len(tab.actionTable))
	var nonAssoc []int
	for i, e := range tab.actionTable {
		action[i] = e.encode()
		if e.kind() == ActionTypeNonAssoc {
			nonAssoc = append(nonAssoc, i)
		}
	}
	goTo := make([]int, len(tab.goToTable))
	for i, e := range tab.goToTable {
		goTo[i] = int(e)
	}

	prodCount := gram.productionSet.count()
	lhsSyms := make([]int, prodCount)
	altSymCounts := make([]int, prodCount)
	actions := make([]string, prodCount)
	labels := make([][]string, prodCount)
	reductions := make([]int, prodCount)
	recoverProds := make([]int, prodCount)
	for _, p := range gram.productionSet.getAllProductions() {
		lhsSyms[p.num] = p.lhs.Num().Int()
		altSymCounts[p.num] = p.rhsLen
		actions[p.num] = p.action
		labels[p.num] = p.labels
		reductions[p.num] = p.reductions
		if p.recover {
			recoverProds[p.num] = 1
		}
	}

	// A state traps a syntax error when it shifts the error symbol.
	errTrappers := make([]int, tab.stateCount)
	errSym := symbol.SymbolError.Num().Int()
	for state := 0; state < tab.stateCount; state++ {
		if action[state*tab.terminalCount+errSym] < 0 {
			errTrappers[state] = 1
		}
	}

	termUses := make([]int, termCount)
	for _, sym := range symTab.TerminalSymbols() {
		termUses[sym.Num()] = symTab.UseCount(sym)
	}
	nonTermUses := make([]int, nonTermCount)
	for _, sym := range symTab.NonTerminalSymbols() {
		nonTermUses[sym.Num()] = symTab.UseCount(sym)
	}

	nonTerms, err := symTab.NonTerminalTexts()
	if err != nil {
		return nil, nil, err
	}

	ptab := &spec.ParsingTable{
		Action:                  action,
		GoTo:                    goTo,
		NonAssocEntries:         nonAssoc,
		StateCount:              tab.stateCount,
		InitialState:            tab.InitialState.Int(),
		StartProduction:         productionNumStart.Int(),
		LHSSymbols:              lhsSyms,
		AlternativeSymbolCounts: altSymCounts,
		Terminals:               symTab.TerminalTexts(),
		TerminalCount:           tab.terminalCount,
		NonTerminals:            nonTerms,
		NonTerminalCount:        tab.nonTerminalCount,
		EOFSymbol:               symbol.SymbolEOF.Num().Int(),
		ErrorSymbol:             symbol.SymbolError.Num().Int(),
		ConflictCount:           b.conflictCount,
		Actions:                 actions,
		Labels:                  labels,
		ProductionReductions:    reductions,
		TerminalUseCounts:       termUses,
		NonTerminalUseCounts:    nonTermUses,
		ErrorTrapperStates:      errTrappers,
		RecoverProductions:      recoverProds,
	}
	if config.compressTables {
		err := compressTables(ptab)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("compressed tables",
			zap.Int("action", ptab.CompressedAction.Size()),
			zap.Int("goto", ptab.CompressedGoTo.Size()))
	}

	return &spec.CompiledGrammar{
		Name:                 gram.name,
		LexicalSpecification: lexSpec,
		ParsingTable:         ptab,
	}, report, nil
}

// compressTables replaces the flat action and goto tables with compressed ones. Both use 0 as
// the empty value.
func compressTables(tab *spec.ParsingTable) error {
	action, err := compressor.Compress(tab.Action, tab.TerminalCount, 0)
	if err != nil {
		return newInternalError("failed to compress the action table: %v", err)
	}
	goTo, err := compressor.Compress(tab.GoTo, tab.NonTerminalCount, 0)
	if err != nil {
		return newInternalError("failed to compress the goto table: %v", err)
	}
	tab.CompressedAction = action
	tab.CompressedGoTo = goTo
	tab.Action = nil
	tab.GoTo = nil
	return nil
}

// findUnusedSymbols returns the terminals and the non-terminals no RHS refers to. The EOF symbol,
// the error symbol, skipped terminals, and the augmented start symbol are never reported.
func findUnusedSymbols(gram *Grammar) ([]symbol.Symbol, []symbol.Symbol) {
	symTab := gram.symbolTable.Reader()

	var terms []symbol.Symbol
	for _, sym := range symTab.TerminalSymbols() {
		if sym == symbol.SymbolEOF || sym == symbol.SymbolError {
			continue
		}
		if _, ok := gram.skipSymbols[sym]; ok {
			continue
		}
		if symTab.UseCount(sym) == 0 {
			terms = append(terms, sym)
		}
	}

	var nonTerms []symbol.Symbol
	for _, sym := range symTab.NonTerminalSymbols() {
		if sym.IsStart() {
			continue
		}
		if symTab.UseCount(sym) == 0 {
			nonTerms = append(nonTerms, sym)
		}
	}

	return terms, nonTerms
}

func compileLexSpec(gram *Grammar) (*spec.LexicalSpecification, error) {
	lexSpec, err, cErrs := mlcompiler.Compile(gram.lexSpec, mlcompiler.CompressionLevel(mlcompiler.CompressionLevelMax))
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr)
			}
			return nil, errors.New(b.String())
		}
		return nil, err
	}

	symTab := gram.symbolTable.Reader()
	kind2Term := make([]int, len(lexSpec.KindNames))
	term2Kind := make([]int, symTab.TerminalCount())
	skip := make([]int, len(lexSpec.KindNames))
	for i, k := range lexSpec.KindNames {
		if k == mlspec.LexKindNameNil {
			kind2Term[mlspec.LexKindIDNil] = symbol.SymbolNil.Num().Int()
			term2Kind[symbol.SymbolNil.Num()] = mlspec.LexKindIDNil.Int()
			continue
		}

		sym, ok := symTab.ToSymbol(k.String())
		if !ok || !sym.IsTerminal() {
			return nil, fmt.Errorf("terminal symbol '%v' was not found in a symbol table", k)
		}
		kind2Term[i] = sym.Num().Int()
		term2Kind[sym.Num()] = i

		for _, sk := range gram.skipLexKinds {
			if k != sk {
				continue
			}
			skip[i] = 1
			break
		}
	}

	kindAliases := make([]string, symTab.TerminalCount())
	for _, sym := range symTab.TerminalSymbols() {
		kindAliases[sym.Num()] = gram.kindAliases[sym]
	}

	return &spec.LexicalSpecification{
		Lexer: "maleeni",
		Maleeni: &spec.Maleeni{
			Spec:           lexSpec,
			KindToTerminal: kind2Term,
			TerminalToKind: term2Kind,
			Skip:           skip,
			KindAliases:    kindAliases,
		},
	}, nil
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError) {
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", cErr.Kind, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}
