package error

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
)

// SpecError is an error a grammar author can act on. Row is 1-origin and zero when unknown.
type SpecError struct {
	Cause      error
	Detail     string
	FilePath   string
	SourceName string
	Row        int
}

func (e *SpecError) Error() string {
	var b strings.Builder
	if e.SourceName != "" {
		fmt.Fprintf(&b, "%v: ", e.SourceName)
	}
	if e.Row != 0 {
		fmt.Fprintf(&b, "%v: ", e.Row)
	}
	fmt.Fprintf(&b, "error: %v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %v", e.Detail)
	}

	line := readLine(e.FilePath, e.Row)
	if line != "" {
		fmt.Fprintf(&b, "\n    %v", line)
	}

	return b.String()
}

func (e *SpecError) Unwrap() error {
	return e.Cause
}

// SpecErrors extracts the *SpecError values from an error combined with multierr.
// Errors of other types are dropped.
func SpecErrors(err error) []*SpecError {
	var specErrs []*SpecError
	for _, e := range multierr.Errors(err) {
		if specErr, ok := e.(*SpecError); ok {
			specErrs = append(specErrs, specErr)
		}
	}
	return specErrs
}

// SetSource fills in the source name and the file path of every *SpecError combined in err.
func SetSource(err error, sourceName string, filePath string) {
	for _, e := range SpecErrors(err) {
		e.SourceName = sourceName
		e.FilePath = filePath
	}
}

func readLine(filePath string, row int) string {
	if filePath == "" || row <= 0 {
		return ""
	}

	f, err := os.Open(filePath)
	if err != nil {
		return ""
	}
	defer f.Close()

	i := 1
	s := bufio.NewScanner(f)
	for s.Scan() {
		if i == row {
			return s.Text()
		}
		i++
	}

	return ""
}
