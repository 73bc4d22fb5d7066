package driver

import (
	"fmt"
	"io"
)

// SemanticActionSet is a set of semantic actions a parser calls.
type SemanticActionSet interface {
	// Shift runs when the parser shifts a symbol onto a state stack. `tok` is a token corresponding to
	// the symbol. When the parser recovered from an error state by shifting the token, `recovered` is true.
	Shift(tok VToken, recovered bool)

	// Reduce runs when the parser reduces an RHS of a production to its LHS. `prodNum` is a number of
	// the production. When the parser recovered from an error state by reducing the production,
	// `recovered` is true.
	Reduce(prodNum int, recovered bool)

	// Accept runs when the parser accepts an input.
	Accept()

	// TrapAndShiftError runs when the parser traps a syntax error and shifts the error symbol onto the
	// state stack. `cause` is a token that caused the syntax error. `popped` is the number of frames
	// that the parser discards from the state stack.
	TrapAndShiftError(cause VToken, popped int)

	// MissError runs when the parser fails to trap a syntax error. `cause` is a token that caused the
	// syntax error.
	MissError(cause VToken)
}

var _ SemanticActionSet = &SyntaxTreeActionSet{}

// Node is a node of a concrete syntax tree. A terminal node has Text and a position, and a non-terminal
// node has children and the action text of the production that built it. A node standing for the
// error symbol has only KindName.
type Node struct {
	KindName string
	Text     string
	Row      int
	Col      int
	Action   string
	Children []*Node
}

// PrintTree prints a syntax tree whose root is `node`.
func PrintTree(w io.Writer, node *Node) {
	printTree(w, node, "", "")
}

func printTree(w io.Writer, node *Node, ruledLine string, childRuledLinePrefix string) {
	if node == nil {
		return
	}

	if node.Text != "" {
		fmt.Fprintf(w, "%v%v %#v\n", ruledLine, node.KindName, node.Text)
	} else {
		fmt.Fprintf(w, "%v%v\n", ruledLine, node.KindName)
	}

	num := len(node.Children)
	for i, child := range node.Children {
		var line string
		if num > 1 && i < num-1 {
			line = "├─ "
		} else {
			line = "└─ "
		}

		var prefix string
		if i >= num-1 {
			prefix = "   "
		} else {
			prefix = "│  "
		}

		printTree(w, child, childRuledLinePrefix+line, childRuledLinePrefix+prefix)
	}
}

// SyntaxTreeActionSet builds a concrete syntax tree.
type SyntaxTreeActionSet struct {
	gram     Grammar
	semStack *semanticStack
	cst      *Node
}

func NewSyntaxTreeActionSet(gram Grammar) *SyntaxTreeActionSet {
	return &SyntaxTreeActionSet{
		gram:     gram,
		semStack: newSemanticStack(),
	}
}

func (a *SyntaxTreeActionSet) Shift(tok VToken, recovered bool) {
	term := a.tokenToTerminal(tok)
	row, col := tok.Position()
	a.semStack.push(&Node{
		KindName: a.gram.Terminal(term),
		Text:     string(tok.Lexeme()),
		Row:      row,
		Col:      col,
	})
}

func (a *SyntaxTreeActionSet) Reduce(prodNum int, recovered bool) {
	lhs := a.gram.LHS(prodNum)

	// When an alternative is empty, `n` will be 0, and `handle` will be empty slice.
	n := a.gram.AlternativeSymbolCount(prodNum)
	handle := a.semStack.pop(n)

	children := make([]*Node, len(handle))
	copy(children, handle)

	a.semStack.push(&Node{
		KindName: a.gram.NonTerminal(lhs),
		Action:   a.gram.SemanticAction(prodNum),
		Children: children,
	})
}

func (a *SyntaxTreeActionSet) Accept() {
	top := a.semStack.pop(1)
	a.cst = top[0]
}

// TrapAndShiftError replaces the discarded frames with a node of the error symbol.
func (a *SyntaxTreeActionSet) TrapAndShiftError(cause VToken, popped int) {
	a.semStack.pop(popped)
	a.semStack.push(&Node{
		KindName: a.gram.Terminal(a.gram.Error()),
	})
}

func (a *SyntaxTreeActionSet) MissError(cause VToken) {
}

// CST returns the tree when the parser has accepted an input. Otherwise, it returns nil.
func (a *SyntaxTreeActionSet) CST() *Node {
	return a.cst
}

func (a *SyntaxTreeActionSet) tokenToTerminal(tok VToken) int {
	if tok.EOF() {
		return a.gram.EOF()
	}

	return tok.TerminalID()
}

type semanticStack struct {
	frames []*Node
}

func newSemanticStack() *semanticStack {
	return &semanticStack{}
}

func (s *semanticStack) push(f *Node) {
	s.frames = append(s.frames, f)
}

func (s *semanticStack) pop(n int) []*Node {
	fs := s.frames[len(s.frames)-n:]
	s.frames = s.frames[:len(s.frames)-n]

	return fs
}
