package grammar

import (
	"fmt"
	"regexp"
	"strings"

	verr "github.com/nihei9/lalrgen/error"
	"github.com/nihei9/lalrgen/grammar/symbol"
	spec "github.com/nihei9/lalrgen/spec/grammar"
	mlspec "github.com/nihei9/maleeni/spec"
	"go.uber.org/multierr"
)

// actionSymbolPrefix prefixes the names of non-terminals generated for embedded actions.
const actionSymbolPrefix = "NT$"

type Grammar struct {
	name                 string
	lexSpec              *mlspec.LexSpec
	skipLexKinds         []mlspec.LexKindName
	kindAliases          map[symbol.Symbol]string
	patterns             map[symbol.Symbol]string
	skipSymbols          map[symbol.Symbol]struct{}
	productionSet        *productionSet
	augmentedStartSymbol symbol.Symbol
	startSymbol          symbol.Symbol
	symbolTable          *symbol.SymbolTable
}

type GrammarBuilder struct {
	Spec *spec.GrammarSpec

	errs error
}

func (b *GrammarBuilder) addError(cause error, format string, a ...interface{}) {
	b.addErrorAt(0, cause, format, a...)
}

// addErrorAt records an error found in the source row `row`. Zero means the row is unknown.
func (b *GrammarBuilder) addErrorAt(row int, cause error, format string, a ...interface{}) {
	b.errs = multierr.Append(b.errs, &verr.SpecError{
		Cause:  cause,
		Detail: fmt.Sprintf(format, a...),
		Row:    row,
	})
}

// Build validates a grammar source and populates the symbol table and the production set.
// All errors a grammar author can fix are reported together as *verr.SpecError values combined
// by multierr.
func (b *GrammarBuilder) Build() (*Grammar, error) {
	if b.Spec == nil {
		return nil, fmt.Errorf("a grammar source is missing")
	}

	if strings.TrimSpace(b.Spec.Name) == "" {
		b.addError(semErrNoGrammarName, "")
	} else if !isIdentifier(b.Spec.Name) {
		b.addErrorAt(b.Spec.NameRow, semErrInvalidGrammarName, "%q", b.Spec.Name)
	}

	symTab := symbol.NewSymbolTable()
	w := symTab.Writer()
	r := symTab.Reader()

	patterns, aliases, skipSyms, err := b.registerTerminals(w, r)
	if err != nil {
		return nil, err
	}
	b.registerNonTerminals(w, r)
	if b.errs != nil {
		return nil, b.errs
	}

	var startSym symbol.Symbol
	startName := b.Spec.Start
	if startName == "" {
		startName = b.Spec.Productions[0].LHS
	}
	{
		sym, ok := r.ToSymbol(startName)
		if !ok || !sym.IsNonTerminal() {
			b.addErrorAt(b.Spec.StartRow, semErrUndefinedStart, "%v", startName)
		}
		startSym = sym
	}

	b.declarePrecedences(w, r)

	var augStartSym symbol.Symbol
	{
		name := startName + "'"
		for {
			if _, ok := r.ToSymbol(name); !ok {
				break
			}
			name += "'"
		}
		augStartSym, err = w.RegisterStartSymbol(name)
		if err != nil {
			return nil, err
		}
	}

	prods, err := b.genProductionSet(w, r, augStartSym, startSym, skipSyms)
	if err != nil {
		return nil, err
	}
	if b.errs != nil {
		return nil, b.errs
	}

	w.Freeze()

	var lexSpec *mlspec.LexSpec
	var skipKinds []mlspec.LexKindName
	{
		var entries []*mlspec.LexEntry
		for _, sym := range r.TerminalSymbols() {
			pat, ok := patterns[sym]
			if !ok {
				continue
			}
			name, _ := r.ToText(sym)
			entries = append(entries, &mlspec.LexEntry{
				Kind:    mlspec.LexKindName(name),
				Pattern: mlspec.LexPattern(pat),
			})
			if _, ok := skipSyms[sym]; ok {
				skipKinds = append(skipKinds, mlspec.LexKindName(name))
			}
		}
		if len(entries) > 0 {
			lexSpec = &mlspec.LexSpec{
				Name:    b.Spec.Name,
				Entries: entries,
			}
		}
	}

	return &Grammar{
		name:                 b.Spec.Name,
		lexSpec:              lexSpec,
		skipLexKinds:         skipKinds,
		kindAliases:          aliases,
		patterns:             patterns,
		skipSymbols:          skipSyms,
		productionSet:        prods,
		augmentedStartSymbol: augStartSym,
		startSymbol:          startSym,
		symbolTable:          symTab,
	}, nil
}

func (b *GrammarBuilder) registerTerminals(w *symbol.SymbolTableWriter, r *symbol.SymbolTableReader) (map[symbol.Symbol]string, map[symbol.Symbol]string, map[symbol.Symbol]struct{}, error) {
	patterns := map[symbol.Symbol]string{}
	aliases := map[symbol.Symbol]string{}
	skipSyms := map[symbol.Symbol]struct{}{}
	for i, t := range b.Spec.Terminals {
		if t.Name == "" {
			b.addErrorAt(t.Row, semErrNoName, "terminal #%v", i+1)
			continue
		}
		if isReservedName(t.Name) {
			b.addErrorAt(t.Row, semErrReservedName, "terminal #%v: %q", i+1, t.Name)
			continue
		}
		if _, ok := r.ToSymbol(t.Name); ok {
			b.addErrorAt(t.Row, semErrDuplicateTerminal, "terminal #%v: %v", i+1, t.Name)
			continue
		}
		if t.Pattern != "" && t.Literal != "" {
			b.addErrorAt(t.Row, semErrInvalidTerminal, "terminal #%v: %v", i+1, t.Name)
			continue
		}
		if (t.Pattern != "" || t.Literal != "") && !isIdentifier(t.Name) {
			b.addErrorAt(t.Row, semErrInvalidKindName, "terminal #%v: %q", i+1, t.Name)
			continue
		}
		if t.Skip && t.Pattern == "" && t.Literal == "" {
			b.addErrorAt(t.Row, semErrSkipNoPattern, "terminal #%v: %v", i+1, t.Name)
			continue
		}

		sym, err := w.RegisterTerminalSymbol(t.Name)
		if err != nil {
			return nil, nil, nil, err
		}
		switch {
		case t.Pattern != "":
			patterns[sym] = t.Pattern
		case t.Literal != "":
			patterns[sym] = mlspec.EscapePattern(t.Literal)
			aliases[sym] = t.Literal
		}
		if t.Skip {
			skipSyms[sym] = struct{}{}
		}
	}
	return patterns, aliases, skipSyms, nil
}

// registerNonTerminals numbers non-terminals in order of their first appearance as a LHS.
func (b *GrammarBuilder) registerNonTerminals(w *symbol.SymbolTableWriter, r *symbol.SymbolTableReader) {
	if len(b.Spec.Productions) == 0 {
		b.addError(semErrNoProduction, "")
		return
	}
	for i, p := range b.Spec.Productions {
		if p.LHS == "" {
			b.addErrorAt(p.Row, semErrNoName, "production #%v", i+1)
			continue
		}
		if isReservedName(p.LHS) {
			b.addErrorAt(p.Row, semErrReservedName, "production #%v: %q", i+1, p.LHS)
			continue
		}
		if sym, ok := r.ToSymbol(p.LHS); ok && sym.IsTerminal() {
			b.addErrorAt(p.Row, semErrDuplicateName, "production #%v: %v", i+1, p.LHS)
			continue
		}
		_, err := w.RegisterNonTerminalSymbol(p.LHS)
		if err != nil {
			b.addErrorAt(p.Row, semErrDuplicateName, "production #%v: %v", i+1, p.LHS)
		}
	}
}

// declarePrecedences gives precedences to terminals. The n-th declaration has precedence n, so
// later declarations bind tighter.
func (b *GrammarBuilder) declarePrecedences(w *symbol.SymbolTableWriter, r *symbol.SymbolTableReader) {
	for i, p := range b.Spec.Precedences {
		var assoc symbol.Assoc
		switch p.Assoc {
		case "left":
			assoc = symbol.AssocLeft
		case "right":
			assoc = symbol.AssocRight
		case "nonassoc":
			assoc = symbol.AssocNonAssoc
		default:
			b.addErrorAt(p.Row, semErrInvalidAssoc, "precedence #%v: %q", i+1, p.Assoc)
			continue
		}
		if len(p.Symbols) == 0 {
			b.addErrorAt(p.Row, semErrEmptyPrec, "precedence #%v", i+1)
			continue
		}
		for _, name := range p.Symbols {
			sym, ok := r.ToSymbol(name)
			if !ok {
				b.addErrorAt(p.Row, semErrUndefinedSym, "precedence #%v: %v", i+1, name)
				continue
			}
			if !sym.IsTerminal() || sym == symbol.SymbolEOF {
				b.addErrorAt(p.Row, semErrPrecNotTerminal, "precedence #%v: %v", i+1, name)
				continue
			}
			err := w.SetPrecedence(sym, symbol.PrecMin+i, assoc)
			if err != nil {
				b.addErrorAt(p.Row, semErrDuplicatePrec, "precedence #%v: %v", i+1, name)
			}
		}
	}
}

func (b *GrammarBuilder) genProductionSet(w *symbol.SymbolTableWriter, r *symbol.SymbolTableReader, augStartSym, startSym symbol.Symbol, skipSyms map[symbol.Symbol]struct{}) (*productionSet, error) {
	prods := newProductionSet()

	if startSym.IsNonTerminal() {
		p, err := newProduction(augStartSym, []symbol.Symbol{startSym})
		if err != nil {
			return nil, err
		}
		prods.append(p)
		w.CountUse(startSym)
	}

	actionNum := 0
	for i, p := range b.Spec.Productions {
		lhs, ok := r.ToSymbol(p.LHS)
		if !ok || !lhs.IsNonTerminal() {
			continue
		}

		elems, err := p.Elements()
		if err != nil {
			b.addErrorAt(p.Row, err, "production #%v: %v", i+1, p.LHS)
			continue
		}

		action := p.Action
		if action == "" && len(elems) > 0 && elems[len(elems)-1].IsAction() {
			action = elems[len(elems)-1].Action
			elems = elems[:len(elems)-1]
		}

		var rhs []symbol.Symbol
		var labels []string
		var embedded []*production
		valid := true
		{
			knownLabels := map[string]struct{}{}
			for _, e := range elems {
				if e.IsAction() {
					actionNum++
					sym, err := w.RegisterNonTerminalSymbol(fmt.Sprintf("%v%v", actionSymbolPrefix, actionNum))
					if err != nil {
						return nil, err
					}
					ap, err := newProduction(sym, nil)
					if err != nil {
						return nil, err
					}
					ap.action = e.Action
					embedded = append(embedded, ap)
					rhs = append(rhs, sym)
					labels = append(labels, "")
					continue
				}

				sym, ok := r.ToSymbol(e.Symbol)
				if !ok || sym.IsStart() || sym == symbol.SymbolEOF {
					b.addErrorAt(p.Row, semErrUndefinedSym, "production #%v: %v", i+1, e.Symbol)
					valid = false
					continue
				}
				if _, ok := skipSyms[sym]; ok {
					b.addErrorAt(p.Row, semErrTermCannotBeSkipped, "production #%v: %v", i+1, e.Symbol)
					valid = false
					continue
				}
				if e.Label != "" {
					if _, ok := knownLabels[e.Label]; ok {
						b.addErrorAt(p.Row, semErrDuplicateLabel, "production #%v: %v", i+1, e.Label)
						valid = false
						continue
					}
					knownLabels[e.Label] = struct{}{}
				}
				rhs = append(rhs, sym)
				labels = append(labels, e.Label)
			}
		}
		if !valid {
			continue
		}

		prod, err := newProduction(lhs, rhs)
		if err != nil {
			return nil, err
		}
		prod.labels = labels
		prod.action = action
		prod.recover = p.Recover

		if p.Prec != "" {
			sym, ok := r.ToSymbol(p.Prec)
			switch {
			case !ok:
				b.addErrorAt(p.Row, semErrUndefinedSym, "production #%v: prec %v", i+1, p.Prec)
				continue
			case !sym.IsTerminal():
				b.addErrorAt(p.Row, semErrPrecNotTerminal, "production #%v: prec %v", i+1, p.Prec)
				continue
			}
			prod.prec, prod.assoc = r.Precedence(sym)
		} else if term, ok := prod.rightmostTerminal(r); ok {
			prod.prec, prod.assoc = r.Precedence(term)
		}

		if _, exist := prods.findByID(prod.id); exist {
			b.addErrorAt(p.Row, semErrDuplicateProduction, "production #%v: %v", i+1, p.LHS)
			continue
		}

		// Productions of embedded actions precede their origin.
		for _, ap := range embedded {
			prods.append(ap)
		}
		prods.append(prod)
		for _, ap := range embedded {
			ap.origin = prod.num
		}
		for _, sym := range rhs {
			w.CountUse(sym)
		}
	}

	return prods, nil
}

// identifierRE is the form maleeni accepts for a lexical specification name and kind names.
var identifierRE = regexp.MustCompile(`^[a-z](_?[0-9a-z]+)*$`)

func isIdentifier(name string) bool {
	return identifierRE.MatchString(name)
}

func isReservedName(name string) bool {
	return name == symbol.SymbolNameEOF ||
		name == symbol.SymbolNameError ||
		strings.HasPrefix(name, actionSymbolPrefix)
}
