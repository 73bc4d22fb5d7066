package driver

import (
	"fmt"
	"io"

	spec "github.com/nihei9/lalrgen/spec/grammar"
	mldriver "github.com/nihei9/maleeni/driver"
)

type vToken struct {
	terminalID int
	tok        *mldriver.Token
}

func (t *vToken) TerminalID() int {
	return t.terminalID
}

func (t *vToken) Lexeme() []byte {
	return t.tok.Lexeme
}

func (t *vToken) EOF() bool {
	return t.tok.EOF
}

func (t *vToken) Invalid() bool {
	return t.tok.Invalid
}

func (t *vToken) Position() (int, int) {
	return t.tok.Row, t.tok.Col
}

type tokenStream struct {
	lex            *mldriver.Lexer
	kindToTerminal []int
	skip           []int
}

// NewTokenStream returns a token stream that reads src with the lexer embedded in a compiled grammar.
// Tokens of kinds marked as skipped never reach a parser.
func NewTokenStream(g *spec.CompiledGrammar, src io.Reader) (TokenStream, error) {
	if g.LexicalSpecification == nil || g.LexicalSpecification.Maleeni == nil {
		return nil, fmt.Errorf("grammar %v has no lexical specification", g.Name)
	}
	ml := g.LexicalSpecification.Maleeni

	lex, err := mldriver.NewLexer(mldriver.NewLexSpec(ml.Spec), src)
	if err != nil {
		return nil, err
	}

	return &tokenStream{
		lex:            lex,
		kindToTerminal: ml.KindToTerminal,
		skip:           ml.Skip,
	}, nil
}

func (l *tokenStream) Next() (VToken, error) {
	for {
		tok, err := l.lex.Next()
		if err != nil {
			return nil, err
		}
		if !tok.EOF && !tok.Invalid && l.skip[tok.KindID] == 1 {
			continue
		}
		return &vToken{
			terminalID: l.kindToTerminal[tok.KindID],
			tok:        tok,
		}, nil
	}
}
