package driver

import spec "github.com/nihei9/lalrgen/spec/grammar"

type grammarImpl struct {
	g        *spec.CompiledGrammar
	nonAssoc map[int]struct{}
}

// NewGrammar returns a read-only view of a compiled grammar that a parser consults.
func NewGrammar(g *spec.CompiledGrammar) *grammarImpl {
	nonAssoc := make(map[int]struct{}, len(g.ParsingTable.NonAssocEntries))
	for _, pos := range g.ParsingTable.NonAssocEntries {
		nonAssoc[pos] = struct{}{}
	}
	return &grammarImpl{
		g:        g,
		nonAssoc: nonAssoc,
	}
}

func (g *grammarImpl) InitialState() int {
	return g.g.ParsingTable.InitialState
}

func (g *grammarImpl) StartProduction() int {
	return g.g.ParsingTable.StartProduction
}

func (g *grammarImpl) RecoverProduction(prod int) bool {
	return g.g.ParsingTable.RecoverProductions[prod] != 0
}

func (g *grammarImpl) ErrorTrapperState(state int) bool {
	return g.g.ParsingTable.ErrorTrapperStates[state] != 0
}

func (g *grammarImpl) Action(state int, terminal int) int {
	if tab := g.g.ParsingTable.CompressedAction; tab != nil {
		act, _ := tab.Lookup(state, terminal)
		return act
	}
	return g.g.ParsingTable.Action[state*g.g.ParsingTable.TerminalCount+terminal]
}

// NonAssoc reports whether an empty action entry marks a use of a non-associative operator.
func (g *grammarImpl) NonAssoc(state int, terminal int) bool {
	_, ok := g.nonAssoc[state*g.g.ParsingTable.TerminalCount+terminal]
	return ok
}

func (g *grammarImpl) GoTo(state int, lhs int) int {
	if tab := g.g.ParsingTable.CompressedGoTo; tab != nil {
		next, _ := tab.Lookup(state, lhs)
		return next
	}
	return g.g.ParsingTable.GoTo[state*g.g.ParsingTable.NonTerminalCount+lhs]
}

func (g *grammarImpl) AlternativeSymbolCount(prod int) int {
	return g.g.ParsingTable.AlternativeSymbolCounts[prod]
}

func (g *grammarImpl) TerminalCount() int {
	return g.g.ParsingTable.TerminalCount
}

func (g *grammarImpl) LHS(prod int) int {
	return g.g.ParsingTable.LHSSymbols[prod]
}

func (g *grammarImpl) EOF() int {
	return g.g.ParsingTable.EOFSymbol
}

func (g *grammarImpl) Error() int {
	return g.g.ParsingTable.ErrorSymbol
}

func (g *grammarImpl) Terminal(terminal int) string {
	return g.g.ParsingTable.Terminals[terminal]
}

func (g *grammarImpl) TerminalAlias(terminal int) string {
	if g.g.LexicalSpecification == nil || g.g.LexicalSpecification.Maleeni == nil {
		return ""
	}
	return g.g.LexicalSpecification.Maleeni.KindAliases[terminal]
}

func (g *grammarImpl) NonTerminal(nonTerminal int) string {
	return g.g.ParsingTable.NonTerminals[nonTerminal]
}

// SemanticAction returns the verbatim action text attached to a production.
func (g *grammarImpl) SemanticAction(prod int) string {
	return g.g.ParsingTable.Actions[prod]
}

func (g *grammarImpl) Labels(prod int) []string {
	return g.g.ParsingTable.Labels[prod]
}
