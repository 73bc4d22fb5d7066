package grammar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/nihei9/lalrgen/grammar/symbol"
)

type productionID [32]byte

func (id productionID) String() string {
	return hex.EncodeToString(id[:])
}

func genProductionID(lhs symbol.Symbol, rhs []symbol.Symbol) productionID {
	seq := lhs.Byte()
	for _, sym := range rhs {
		seq = append(seq, sym.Byte()...)
	}
	return productionID(sha256.Sum256(seq))
}

type productionNum uint16

const (
	productionNumNil   = productionNum(0)
	productionNumStart = productionNum(1)
	productionNumMin   = productionNum(2)
)

func (n productionNum) Int() int {
	return int(n)
}

type production struct {
	id     productionID
	num    productionNum
	lhs    symbol.Symbol
	rhs    []symbol.Symbol
	rhsLen int

	// labels[i] names rhs[i] in the action. An empty string means no label.
	labels []string
	action string

	prec  int
	assoc symbol.Assoc

	// origin is the production an embedded action was split out of. Other productions have productionNumNil.
	origin productionNum

	// reductions counts the action table entries reducing by this production.
	reductions int

	// recover ends the error state of a driver when the driver reduces by this production.
	recover bool
}

func newProduction(lhs symbol.Symbol, rhs []symbol.Symbol) (*production, error) {
	if lhs.IsNil() {
		return nil, fmt.Errorf("LHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	if !lhs.IsNonTerminal() {
		return nil, fmt.Errorf("LHS must be a non-terminal symbol; LHS: %v, RHS: %v", lhs, rhs)
	}
	for _, sym := range rhs {
		if sym.IsNil() {
			return nil, fmt.Errorf("a symbol of RHS must be a non-nil symbol; LHS: %v, RHS: %v", lhs, rhs)
		}
	}

	return &production{
		id:     genProductionID(lhs, rhs),
		lhs:    lhs,
		rhs:    rhs,
		rhsLen: len(rhs),
		labels: make([]string, len(rhs)),
		assoc:  symbol.AssocNone,
	}, nil
}

func (p *production) isEmpty() bool {
	return p.rhsLen == 0
}

// rightmostTerminal returns the last terminal of the RHS that has a precedence.
func (p *production) rightmostTerminal(symTab *symbol.SymbolTableReader) (symbol.Symbol, bool) {
	for i := p.rhsLen - 1; i >= 0; i-- {
		sym := p.rhs[i]
		if !sym.IsTerminal() {
			continue
		}
		if prec, _ := symTab.Precedence(sym); prec != symbol.PrecNil {
			return sym, true
		}
	}
	return symbol.SymbolNil, false
}

// productionSet is the arena of productions. A production number is its slot.
type productionSet struct {
	prods     []*production
	lhs2Prods map[symbol.Symbol][]*production
	id2Prod   map[productionID]*production
	num       productionNum
}

func newProductionSet() *productionSet {
	return &productionSet{
		prods:     []*production{nil, nil},
		lhs2Prods: map[symbol.Symbol][]*production{},
		id2Prod:   map[productionID]*production{},
		num:       productionNumMin,
	}
}

// append numbers a production and stores it. It returns false when the same production already exists.
func (ps *productionSet) append(prod *production) bool {
	if _, ok := ps.id2Prod[prod.id]; ok {
		return false
	}

	if prod.lhs.IsStart() {
		prod.num = productionNumStart
		ps.prods[productionNumStart] = prod
	} else {
		prod.num = ps.num
		ps.num++
		ps.prods = append(ps.prods, prod)
	}

	ps.lhs2Prods[prod.lhs] = append(ps.lhs2Prods[prod.lhs], prod)
	ps.id2Prod[prod.id] = prod

	return true
}

func (ps *productionSet) findByID(id productionID) (*production, bool) {
	prod, ok := ps.id2Prod[id]
	return prod, ok
}

func (ps *productionSet) findByNum(num productionNum) (*production, bool) {
	if num == productionNumNil || num.Int() >= len(ps.prods) {
		return nil, false
	}
	prod := ps.prods[num]
	return prod, prod != nil
}

func (ps *productionSet) findByLHS(lhs symbol.Symbol) ([]*production, bool) {
	if lhs.IsNil() {
		return nil, false
	}

	prods, ok := ps.lhs2Prods[lhs]
	return prods, ok
}

// getAllProductions returns the productions in ascending order of their numbers.
func (ps *productionSet) getAllProductions() []*production {
	prods := make([]*production, 0, len(ps.prods))
	for _, p := range ps.prods {
		if p == nil {
			continue
		}
		prods = append(prods, p)
	}
	return prods
}

// count returns the number of slots including the nil slot 0.
func (ps *productionSet) count() int {
	return len(ps.prods)
}
