package grammar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	verr "github.com/nihei9/lalrgen/error"
	"go.uber.org/multierr"
)

// GrammarSpec is a grammar source written in TOML.
//
//	name  = "expr"
//	start = "expr"
//
//	[[terminal]]
//	name    = "add"
//	literal = "+"
//
//	[[precedence]]
//	assoc   = "left"
//	symbols = ["add"]
//
//	[[production]]
//	lhs = "expr"
//	rhs = ["expr:l", "add", "expr:r"]
//
// Later [[precedence]] entries bind tighter.
type GrammarSpec struct {
	Name        string            `toml:"name"`
	Start       string            `toml:"start"`
	Terminals   []*TerminalSpec   `toml:"terminal"`
	Precedences []*PrecedenceSpec `toml:"precedence"`
	Productions []*ProductionSpec `toml:"production"`

	// NameRow and StartRow are the rows of the `name` and `start` keys, or zero when they are absent.
	NameRow  int `toml:"-"`
	StartRow int `toml:"-"`
}

type TerminalSpec struct {
	Name    string `toml:"name"`
	Pattern string `toml:"pattern"`
	Literal string `toml:"literal"`
	Skip    bool   `toml:"skip"`
	Row     int    `toml:"-"`
}

type PrecedenceSpec struct {
	Assoc   string   `toml:"assoc"`
	Symbols []string `toml:"symbols"`
	Row     int      `toml:"-"`
}

type ProductionSpec struct {
	LHS    string   `toml:"lhs"`
	RHS    []string `toml:"rhs"`
	Prec   string   `toml:"prec"`
	Action string   `toml:"action"`
	// Recover makes the driver leave the error state as soon as it reduces the production.
	Recover bool `toml:"recover"`
	Row     int  `toml:"-"`
}

// RHSElement is a parsed element of a RHS. It is either a symbol with an optional label or an action.
type RHSElement struct {
	Symbol string
	Label  string
	Action string
}

func (e *RHSElement) IsAction() bool {
	return e.Symbol == ""
}

// ParseRHSElement parses `symbol`, `symbol:label`, or `{action}`.
func ParseRHSElement(s string) (*RHSElement, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, synErrEmptyElement
	}
	if strings.HasPrefix(s, "{") {
		if !strings.HasSuffix(s, "}") {
			return nil, synErrUnclosedAction
		}
		return &RHSElement{
			Action: strings.TrimSpace(s[1 : len(s)-1]),
		}, nil
	}

	sym := s
	label := ""
	if i := strings.Index(s, ":"); i >= 0 {
		sym = s[:i]
		label = s[i+1:]
		if label == "" {
			return nil, synErrNoLabel
		}
	}
	if sym == "" || strings.ContainsAny(sym, " \t\n{}") || strings.ContainsAny(label, " \t\n:{}") {
		return nil, synErrInvalidSymbol
	}
	return &RHSElement{
		Symbol: sym,
		Label:  label,
	}, nil
}

// Elements parses all elements of the RHS.
func (p *ProductionSpec) Elements() ([]*RHSElement, error) {
	elems := make([]*RHSElement, 0, len(p.RHS))
	for _, s := range p.RHS {
		e, err := ParseRHSElement(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, s)
		}
		elems = append(elems, e)
	}
	return elems, nil
}

func Parse(src io.Reader) (*GrammarSpec, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	gram := &GrammarSpec{}
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(gram)
	if err != nil {
		var pErr toml.ParseError
		if errors.As(err, &pErr) {
			return nil, &verr.SpecError{
				Cause:  synErrInvalidTOML,
				Detail: pErr.Message,
				Row:    pErr.Position.Line,
			}
		}
		return nil, &verr.SpecError{
			Cause:  synErrInvalidTOML,
			Detail: err.Error(),
		}
	}

	rows := locateRows(data)
	gram.NameRow = rows.keys["name"]
	gram.StartRow = rows.keys["start"]
	for i, t := range gram.Terminals {
		t.Row = rows.table("terminal", i)
	}
	for i, p := range gram.Precedences {
		p.Row = rows.table("precedence", i)
	}
	for i, p := range gram.Productions {
		p.Row = rows.table("production", i)
	}

	var errs error
	for _, key := range md.Undecoded() {
		errs = multierr.Append(errs, &verr.SpecError{
			Cause:  synErrUnknownKey,
			Detail: key.String(),
			Row:    rows.keys[key.String()],
		})
	}
	for i, prod := range gram.Productions {
		for _, s := range prod.RHS {
			_, err := ParseRHSElement(s)
			if err != nil {
				errs = multierr.Append(errs, &verr.SpecError{
					Cause:  err,
					Detail: fmt.Sprintf("production #%v (%v): %q", i+1, prod.LHS, s),
					Row:    prod.Row,
				})
			}
		}
	}
	if errs != nil {
		return nil, errs
	}

	return gram, nil
}

var tableHeaderRE = regexp.MustCompile(`^\[(\[?)\s*([A-Za-z0-9_.\-]+)\s*\]`)

// sourceRows holds the 1-origin rows of the table headers and the keys of a TOML source.
type sourceRows struct {
	headers map[string][]int
	// keys maps a dotted key to the row where it appears first.
	keys map[string]int
}

// locateRows scans a TOML source that has already been decoded successfully.
func locateRows(src []byte) *sourceRows {
	rows := &sourceRows{
		headers: map[string][]int{},
		keys:    map[string]int{},
	}
	table := ""
	for i, line := range strings.Split(string(src), "\n") {
		l := strings.TrimSpace(line)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		if m := tableHeaderRE.FindStringSubmatch(l); m != nil {
			table = m[2]
			if m[1] != "" {
				rows.headers[table] = append(rows.headers[table], i+1)
			}
			continue
		}
		k, _, ok := strings.Cut(l, "=")
		if !ok {
			continue
		}
		key := strings.Trim(strings.TrimSpace(k), `"'`)
		if table != "" {
			key = table + "." + key
		}
		if _, ok := rows.keys[key]; !ok {
			rows.keys[key] = i + 1
		}
	}
	return rows
}

// table returns the row of the n-th header of an array of tables.
func (r *sourceRows) table(name string, n int) int {
	hs := r.headers[name]
	if n >= len(hs) {
		return 0
	}
	return hs[n]
}
