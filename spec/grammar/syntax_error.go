package grammar

import "fmt"

type SyntaxError struct {
	message string
}

func newSyntaxError(message string) *SyntaxError {
	return &SyntaxError{
		message: message,
	}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: %s", e.message)
}

var (
	synErrInvalidTOML    = newSyntaxError("invalid TOML")
	synErrUnknownKey     = newSyntaxError("unknown key")
	synErrEmptyElement   = newSyntaxError("an element of RHS must not be empty")
	synErrUnclosedAction = newSyntaxError("unclosed action")
	synErrNoLabel        = newSyntaxError("a label is missing after the colon")
	synErrInvalidSymbol  = newSyntaxError("a symbol name must not contain spaces, colons, or braces")
)
