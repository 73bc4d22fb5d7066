package grammar

type SemanticError struct {
	message string
}

func newSemanticError(message string) *SemanticError {
	return &SemanticError{
		message: message,
	}
}

func (e *SemanticError) Error() string {
	return e.message
}

var (
	semErrNoGrammarName       = newSemanticError("name is missing")
	semErrInvalidGrammarName  = newSemanticError("a grammar name must be a snake_case identifier like `expr` or `json_value`")
	semErrInvalidKindName     = newSemanticError("a terminal having a pattern or a literal must be named by a snake_case identifier")
	semErrNoName              = newSemanticError("a name is missing")
	semErrNoProduction        = newSemanticError("a grammar needs at least one production")
	semErrUndefinedSym        = newSemanticError("undefined symbol")
	semErrUndefinedStart      = newSemanticError("the start symbol must be a non-terminal having productions")
	semErrDuplicateProduction = newSemanticError("duplicate production")
	semErrDuplicateTerminal   = newSemanticError("duplicate terminal")
	semErrDuplicateName       = newSemanticError("duplicate names are not allowed between terminals and non-terminals")
	semErrDuplicateLabel      = newSemanticError("a label must be unique within a production")
	semErrReservedName        = newSemanticError("the name is reserved")
	semErrInvalidTerminal     = newSemanticError("a terminal can have either a pattern or a literal")
	semErrTermCannotBeSkipped = newSemanticError("a terminal used in productions cannot be skipped")
	semErrSkipNoPattern       = newSemanticError("a skipped terminal needs a pattern or a literal")
	semErrInvalidAssoc        = newSemanticError("associativity must be one of left, right, or nonassoc")
	semErrPrecNotTerminal     = newSemanticError("precedence can be given only to terminals")
	semErrDuplicatePrec       = newSemanticError("a terminal can appear in precedence declarations only once")
	semErrEmptyPrec           = newSemanticError("a precedence declaration needs at least one symbol")
)
