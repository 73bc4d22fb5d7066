package grammar

import "fmt"

// InternalError means an invariant of the generator broke. It is not caused by a grammar, and
// a grammar author cannot fix it.
type InternalError struct {
	message string
}

func newInternalError(format string, a ...interface{}) *InternalError {
	return &InternalError{
		message: fmt.Sprintf(format, a...),
	}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.message)
}
