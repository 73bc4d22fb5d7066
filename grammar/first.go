package grammar

import (
	"github.com/nihei9/lalrgen/grammar/symbol"
	"github.com/nihei9/lalrgen/grammar/termset"
)

// firstSet holds the nullability and the FIRST set of every non-terminal, indexed by its number.
type firstSet struct {
	nullable  []bool
	symbols   []*termset.Set
	termCount int
}

func newFirstSet(nonTermCount, termCount int) *firstSet {
	fst := &firstSet{
		nullable:  make([]bool, nonTermCount),
		symbols:   make([]*termset.Set, nonTermCount),
		termCount: termCount,
	}
	for i := range fst.symbols {
		fst.symbols[i] = termset.New(termCount)
	}
	return fst
}

// isNullable reports whether sym derives the empty string. A terminal is never nullable.
func (fst *firstSet) isNullable(sym symbol.Symbol) bool {
	if !sym.IsNonTerminal() {
		return false
	}
	return fst.nullable[sym.Num()]
}

func (fst *firstSet) findBySymbol(sym symbol.Symbol) *termset.Set {
	if !sym.IsNonTerminal() || sym.Num().Int() >= len(fst.symbols) {
		return nil
	}
	return fst.symbols[sym.Num()]
}

// find returns the FIRST set of prod.rhs[head:] and whether the whole suffix is nullable.
// The caller supplies the downstream look-ahead when the suffix is nullable.
func (fst *firstSet) find(prod *production, head int) (*termset.Set, bool, error) {
	entry := termset.New(fst.termCount)
	if prod.rhsLen <= head {
		return entry, true, nil
	}
	for _, sym := range prod.rhs[head:] {
		if sym.IsTerminal() {
			entry.Add(sym.Num())
			return entry, false, nil
		}

		e := fst.findBySymbol(sym)
		if e == nil {
			return nil, false, newInternalError("an entry of FIRST was not found; symbol: %s", sym)
		}
		entry.Union(e)
		if !fst.isNullable(sym) {
			return entry, false, nil
		}
	}
	return entry, true, nil
}

func genFirstSet(prods *productionSet, nonTermCount, termCount int) (*firstSet, error) {
	fst := newFirstSet(nonTermCount, termCount)
	for _, prod := range prods.getAllProductions() {
		if prod.lhs.Num().Int() >= nonTermCount {
			return nil, newInternalError("a non-terminal is out of range; symbol: %v, count: %v", prod.lhs, nonTermCount)
		}
		for _, sym := range prod.rhs {
			if sym.IsNonTerminal() && sym.Num().Int() >= nonTermCount {
				return nil, newInternalError("a non-terminal is out of range; symbol: %v, count: %v", sym, nonTermCount)
			}
		}
	}

	genNullable(fst, prods)

	for {
		more := false
		for _, prod := range prods.getAllProductions() {
			changed, err := genProdFirstEntry(fst, fst.symbols[prod.lhs.Num()], prod)
			if err != nil {
				return nil, err
			}
			if changed {
				more = true
			}
		}
		if !more {
			break
		}
	}
	return fst, nil
}

// genNullable marks non-terminals having a production whose RHS consists of nullable symbols only.
// It repeats full passes until nothing changes.
func genNullable(fst *firstSet, prods *productionSet) {
	for {
		more := false
		for _, prod := range prods.getAllProductions() {
			if fst.nullable[prod.lhs.Num()] {
				continue
			}
			nullable := true
			for _, sym := range prod.rhs {
				if !fst.isNullable(sym) {
					nullable = false
					break
				}
			}
			if nullable {
				fst.nullable[prod.lhs.Num()] = true
				more = true
			}
		}
		if !more {
			return
		}
	}
}

func genProdFirstEntry(fst *firstSet, acc *termset.Set, prod *production) (bool, error) {
	e, _, err := fst.find(prod, 0)
	if err != nil {
		return false, err
	}
	return acc.Union(e), nil
}
