package driver

import (
	"fmt"
	"strings"
	"testing"

	spec "github.com/nihei9/lalrgen/spec/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSemAct struct {
	gram   *spec.CompiledGrammar
	actLog []string
}

func (a *testSemAct) Shift(tok VToken, recovered bool) {
	t := a.gram.ParsingTable.Terminals[tok.TerminalID()]
	if recovered {
		a.actLog = append(a.actLog, fmt.Sprintf("shift/%v/recovered", t))
	} else {
		a.actLog = append(a.actLog, fmt.Sprintf("shift/%v", t))
	}
}

func (a *testSemAct) Reduce(prodNum int, recovered bool) {
	lhsSym := a.gram.ParsingTable.LHSSymbols[prodNum]
	lhsText := a.gram.ParsingTable.NonTerminals[lhsSym]
	if recovered {
		a.actLog = append(a.actLog, fmt.Sprintf("reduce/%v/recovered", lhsText))
	} else {
		a.actLog = append(a.actLog, fmt.Sprintf("reduce/%v", lhsText))
	}
}

func (a *testSemAct) Accept() {
	a.actLog = append(a.actLog, "accept")
}

func (a *testSemAct) TrapAndShiftError(cause VToken, popped int) {
	a.actLog = append(a.actLog, fmt.Sprintf("trap/%v", popped))
}

func (a *testSemAct) MissError(cause VToken) {
	a.actLog = append(a.actLog, "miss")
}

func TestParserWithSemanticAction(t *testing.T) {
	specSrc := `
name = "seq"

[[terminal]]
name    = "char"
pattern = "[a-z]"
[[terminal]]
name    = "semicolon"
literal = ";"
[[terminal]]
name    = "ws"
pattern = "[ \t\n]+"
skip    = true

[[production]]
lhs = "seq"
rhs = ["seq", "elem", "semicolon"]
[[production]]
lhs = "seq"
rhs = ["elem", "semicolon"]
[[production]]
lhs = "elem"
rhs = ["char", "{ open }", "char", "char"]
`

	tests := []struct {
		caption string
		src     string
		actLog  []string
		synErr  bool
	}{
		{
			caption: "the parser calls the semantic actions in the order of shifts and reductions",
			src:     `abc; def;`,
			actLog: []string{
				"shift/char",
				"reduce/NT$1",
				"shift/char",
				"shift/char",
				"reduce/elem",
				"shift/semicolon",
				"reduce/seq",

				"shift/char",
				"reduce/NT$1",
				"shift/char",
				"shift/char",
				"reduce/elem",
				"shift/semicolon",
				"reduce/seq",

				"accept",
			},
		},
		{
			caption: "the parser gives up a syntax error no state can trap",
			src:     `ab;`,
			actLog: []string{
				"shift/char",
				"reduce/NT$1",
				"shift/char",
				"miss",
			},
			synErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			cg := compileTestGrammar(t, specSrc)

			toks, err := NewTokenStream(cg, strings.NewReader(tt.src))
			require.NoError(t, err)

			semAct := &testSemAct{
				gram: cg,
			}
			p, err := NewParser(toks, NewGrammar(cg), SemanticAction(semAct))
			require.NoError(t, err)
			require.NoError(t, p.Parse())

			assert.Equal(t, tt.synErr, len(p.SyntaxErrors()) > 0)
			assert.Equal(t, tt.actLog, semAct.actLog)
		})
	}
}

func TestSyntaxTreeActionSet_EmbeddedAction(t *testing.T) {
	cg := compileTestGrammar(t, `
name = "mid"

[[terminal]]
name    = "a"
literal = "a"
[[terminal]]
name    = "b"
literal = "b"

[[production]]
lhs    = "s"
rhs    = ["a", "{ mid }", "b"]
action = "done"
`)
	gram := NewGrammar(cg)
	toks, err := NewTokenStream(cg, strings.NewReader(`ab`))
	require.NoError(t, err)
	treeAct := NewSyntaxTreeActionSet(gram)
	p, err := NewParser(toks, gram, SemanticAction(treeAct))
	require.NoError(t, err)
	require.NoError(t, p.Parse())
	require.Empty(t, p.SyntaxErrors())

	cst := treeAct.CST()
	testTree(t, cst, nonTermNode("s",
		termNode("a", "a"),
		nonTermNode("NT$1"),
		termNode("b", "b"),
	))
	assert.Equal(t, "done", cst.Action)
	assert.Equal(t, "mid", cst.Children[1].Action)
}
