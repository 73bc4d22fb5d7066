package grammar

import (
	"github.com/nihei9/lalrgen/compressor"
	mlspec "github.com/nihei9/maleeni/spec"
)

type CompiledGrammar struct {
	Name                 string                `json:"name"`
	LexicalSpecification *LexicalSpecification `json:"lexical_specification,omitempty"`
	ParsingTable         *ParsingTable         `json:"parsing_table"`
}

type LexicalSpecification struct {
	Lexer   string   `json:"lexer"`
	Maleeni *Maleeni `json:"maleeni"`
}

type Maleeni struct {
	Spec           *mlspec.CompiledLexSpec `json:"spec"`
	KindToTerminal []int                   `json:"kind_to_terminal"`
	TerminalToKind []int                   `json:"terminal_to_kind"`
	Skip           []int                   `json:"skip"`
	KindAliases    []string                `json:"kind_aliases"`
}

// ParsingTable is a flattened LALR(1) parsing table.
//
// An entry of Action at `state * TerminalCount + terminal` is 0 for an error, -s for a shift to
// state s, and p for a reduction by production p. Positions listed in NonAssocEntries hold 0 but
// mean a use of a non-associative operator. An entry of GoTo at `state * NonTerminalCount + non-terminal`
// is 0 when no transition exists.
//
// A compressed table carries CompressedAction and CompressedGoTo instead of Action and GoTo. Their lookups
// take the same (state, symbol) pairs.
type ParsingTable struct {
	Action                  []int             `json:"action,omitempty"`
	GoTo                    []int             `json:"goto,omitempty"`
	CompressedAction        *compressor.Table `json:"compressed_action,omitempty"`
	CompressedGoTo          *compressor.Table `json:"compressed_goto,omitempty"`
	NonAssocEntries         []int             `json:"non_assoc_entries"`
	StateCount              int               `json:"state_count"`
	InitialState            int               `json:"initial_state"`
	StartProduction         int               `json:"start_production"`
	LHSSymbols              []int             `json:"lhs_symbols"`
	AlternativeSymbolCounts []int             `json:"alternative_symbol_counts"`
	Terminals               []string          `json:"terminals"`
	TerminalCount           int               `json:"terminal_count"`
	NonTerminals            []string          `json:"non_terminals"`
	NonTerminalCount        int               `json:"non_terminal_count"`
	EOFSymbol               int               `json:"eof_symbol"`
	ErrorSymbol             int               `json:"error_symbol"`
	ConflictCount           int               `json:"conflict_count"`
	Actions                 []string          `json:"actions"`
	Labels                  [][]string        `json:"labels"`
	ProductionReductions    []int             `json:"production_reductions"`
	TerminalUseCounts       []int             `json:"terminal_use_counts"`
	NonTerminalUseCounts    []int             `json:"non_terminal_use_counts"`
	ErrorTrapperStates      []int             `json:"error_trapper_states"`
	RecoverProductions      []int             `json:"recover_productions"`
}
