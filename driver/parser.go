package driver

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Grammar interface {
	// InitialState returns the initial state of a parser.
	InitialState() int

	// StartProduction returns the start production of grammar.
	StartProduction() int

	// RecoverProduction returns true when a production has the recover flag.
	RecoverProduction(prod int) bool

	// ErrorTrapperState returns true when a state can shift the error symbol.
	ErrorTrapperState(state int) bool

	// Action returns an ACTION entry corresponding to a (state, terminal symbol) pair.
	Action(state int, terminal int) int

	// NonAssoc reports whether an empty ACTION entry marks a use of a non-associative operator.
	NonAssoc(state int, terminal int) bool

	// GoTo returns a GOTO entry corresponding to a (state, non-terminal symbol) pair.
	GoTo(state int, lhs int) int

	// AlternativeSymbolCount returns a symbol count of p production.
	AlternativeSymbolCount(prod int) int

	// TerminalCount returns a terminal symbol count of grammar.
	TerminalCount() int

	// LHS returns a LHS symbol of a production.
	LHS(prod int) int

	// EOF returns the end of input symbol.
	EOF() int

	// Error returns the error symbol.
	Error() int

	// Terminal returns a string representation of a terminal symbol.
	Terminal(terminal int) string

	// TerminalAlias returns an alias for a terminal.
	TerminalAlias(terminal int) string

	// NonTerminal returns a string representation of a non-terminal symbol.
	NonTerminal(nonTerminal int) string

	// SemanticAction returns the action text of a production.
	SemanticAction(prod int) string
}

type VToken interface {
	// TerminalID returns a terminal ID.
	TerminalID() int

	// Lexeme returns a lexeme.
	Lexeme() []byte

	// EOF returns true when a token represents EOF.
	EOF() bool

	// Invalid returns true when a token is invalid.
	Invalid() bool

	// Position returns (row, column) pair.
	Position() (int, int)
}

type TokenStream interface {
	Next() (VToken, error)
}

type SyntaxError struct {
	Row               int
	Col               int
	Message           string
	Token             VToken
	ExpectedTerminals []string
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v:%v: %v", e.Row+1, e.Col+1, e.Message)
	if e.Token != nil {
		if e.Token.EOF() {
			fmt.Fprintf(&b, ": <eof>")
		} else {
			fmt.Fprintf(&b, ": '%v'", string(e.Token.Lexeme()))
		}
	}
	if len(e.ExpectedTerminals) > 0 {
		fmt.Fprintf(&b, "; expected: %v", strings.Join(e.ExpectedTerminals, ", "))
	}
	return b.String()
}

type ParserOption func(p *Parser) error

// SemanticAction registers a set of semantic actions that a parser calls.
func SemanticAction(semAct SemanticActionSet) ParserOption {
	return func(p *Parser) error {
		p.semAct = semAct
		return nil
	}
}

// WithLogger makes a parser trace its actions at Debug level.
func WithLogger(logger *zap.Logger) ParserOption {
	return func(p *Parser) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

type Parser struct {
	toks       TokenStream
	gram       Grammar
	stateStack *stateStack
	semAct     SemanticActionSet
	logger     *zap.Logger
	onError    bool
	shiftCount int
	synErrs    []*SyntaxError
}

// errorSyncSize is the number of tokens the parser must shift after a syntax error to leave
// the error state.
const errorSyncSize = 3

func NewParser(toks TokenStream, gram Grammar, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		toks:       toks,
		gram:       gram,
		stateStack: &stateStack{},
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		err := opt(p)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Parse runs the parser until it accepts the input or gives up on a syntax error. On a syntax error,
// the parser pops the state stack until a state that can shift the error symbol appears, shifts the
// error symbol, and discards tokens until it can continue. Syntax errors are not returned but
// recorded; see SyntaxErrors.
func (p *Parser) Parse() error {
	p.stateStack.push(p.gram.InitialState())
	tok, err := p.nextToken()
	if err != nil {
		return err
	}

ACTION_LOOP:
	for {
		term := p.tokenToTerminal(tok)
		act := p.gram.Action(p.stateStack.top(), term)
		switch {
		case act < 0: // Shift
			nextState := act * -1

			recovered := false
			if p.onError {
				p.shiftCount++

				// When the parser performs shift three times, the parser recovers from the error state.
				if p.shiftCount >= errorSyncSize {
					p.onError = false
					p.shiftCount = 0
					recovered = true
					p.logger.Debug("recover", zap.String("by", "shift"))
				}
			}

			p.logger.Debug("shift", zap.Int("state", nextState), zap.String("terminal", p.gram.Terminal(term)))
			p.stateStack.push(nextState)
			if p.semAct != nil {
				p.semAct.Shift(tok, recovered)
			}

			tok, err = p.nextToken()
			if err != nil {
				return err
			}
		case act > 0: // Reduce
			prodNum := act

			recovered := false
			if p.onError && p.gram.RecoverProduction(prodNum) {
				p.onError = false
				p.shiftCount = 0
				recovered = true
				p.logger.Debug("recover", zap.String("by", "reduce"), zap.Int("production", prodNum))
			}

			accepted := p.reduce(prodNum)
			if accepted {
				p.logger.Debug("accept")
				if p.semAct != nil {
					p.semAct.Accept()
				}

				return nil
			}

			p.logger.Debug("reduce", zap.Int("production", prodNum), zap.String("lhs", p.gram.NonTerminal(p.gram.LHS(prodNum))))
			if p.semAct != nil {
				p.semAct.Reduce(prodNum, recovered)
			}
		default: // Error
			if p.onError {
				if tok.EOF() {
					if p.semAct != nil {
						p.semAct.MissError(tok)
					}

					return nil
				}

				p.logger.Debug("discard", zap.String("lexeme", string(tok.Lexeme())))
				tok, err = p.nextToken()
				if err != nil {
					return err
				}

				continue ACTION_LOOP
			}

			msg := "unexpected token"
			if p.gram.NonAssoc(p.stateStack.top(), term) {
				msg = "non-associative operator"
			} else if tok.Invalid() {
				msg = "invalid token"
			}
			row, col := tok.Position()
			p.synErrs = append(p.synErrs, &SyntaxError{
				Row:               row,
				Col:               col,
				Message:           msg,
				Token:             tok,
				ExpectedTerminals: p.searchLookahead(p.stateStack.top()),
			})

			count, ok := p.trapError()
			if !ok {
				if p.semAct != nil {
					p.semAct.MissError(tok)
				}

				return nil
			}

			p.onError = true
			p.shiftCount = 0

			act, err := p.lookupActionOnError()
			if err != nil {
				return err
			}

			p.logger.Debug("trap error", zap.Int("popped", count), zap.Int("state", act*-1))
			p.stateStack.push(act * -1)
			if p.semAct != nil {
				p.semAct.TrapAndShiftError(tok, count)
			}
		}
	}
}

func (p *Parser) nextToken() (VToken, error) {
	tok, err := p.toks.Next()
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (p *Parser) tokenToTerminal(tok VToken) int {
	if tok.EOF() {
		return p.gram.EOF()
	}

	return tok.TerminalID()
}

func (p *Parser) reduce(prodNum int) bool {
	if prodNum == p.gram.StartProduction() {
		return true
	}

	lhs := p.gram.LHS(prodNum)
	n := p.gram.AlternativeSymbolCount(prodNum)
	p.stateStack.pop(n)
	nextState := p.gram.GoTo(p.stateStack.top(), lhs)
	p.stateStack.push(nextState)
	return false
}

// trapError pops the state stack until the top state can shift the error symbol. It returns the
// number of popped states.
func (p *Parser) trapError() (int, bool) {
	count := 0
	for {
		if p.gram.ErrorTrapperState(p.stateStack.top()) {
			return count, true
		}

		if p.stateStack.top() == p.gram.InitialState() {
			return 0, false
		}
		p.stateStack.pop(1)
		count++
	}
}

func (p *Parser) lookupActionOnError() (int, error) {
	errSym := p.gram.Error()
	act := p.gram.Action(p.stateStack.top(), errSym)
	if act >= 0 {
		return 0, fmt.Errorf("an entry must be a shift action by the error symbol; entry: %v, state: %v, symbol: %v", act, p.stateStack.top(), p.gram.Terminal(errSym))
	}

	return act, nil
}

func (p *Parser) SyntaxErrors() []*SyntaxError {
	return p.synErrs
}

func (p *Parser) searchLookahead(state int) []string {
	kinds := []string{}
	termCount := p.gram.TerminalCount()
	for term := 0; term < termCount; term++ {
		if p.gram.Action(state, term) == 0 {
			continue
		}

		// We don't add the error symbol to the look-ahead symbols because users cannot input the error symbol
		// intentionally.
		if term == p.gram.Error() {
			continue
		}

		if term == p.gram.EOF() {
			kinds = append(kinds, "<eof>")
			continue
		}

		if alias := p.gram.TerminalAlias(term); alias != "" {
			kinds = append(kinds, alias)
		} else {
			kinds = append(kinds, p.gram.Terminal(term))
		}
	}

	return kinds
}

type stateStack struct {
	items []int
}

func (s *stateStack) top() int {
	return s.items[len(s.items)-1]
}

func (s *stateStack) push(state int) {
	s.items = append(s.items, state)
}

func (s *stateStack) pop(n int) {
	s.items = s.items[:len(s.items)-n]
}
