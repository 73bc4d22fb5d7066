package grammar

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/cnf/structhash"
	"github.com/nihei9/lalrgen/grammar/symbol"
	"github.com/nihei9/lalrgen/grammar/termset"
)

// lrItemCore identifies an item. Look-ahead symbols are not a part of the identity, so two items
// having the same core are always merged.
//
// E → E + T
//
// Dot | Dotted Symbol | Item
// ----+---------------+------------
// 0   | E             | E →・E + T
// 1   | +             | E → E・+ T
// 2   | T             | E → E +・T
// 3   | Nil           | E → E + T・
type lrItemCore struct {
	Prod int
	Dot  int
}

func (c lrItemCore) less(d lrItemCore) bool {
	if c.Prod != d.Prod {
		return c.Prod < d.Prod
	}
	return c.Dot < d.Dot
}

// lrItemIndex is a slot of the item arena. Items are never removed, so an index stays valid for
// the whole generation run.
type lrItemIndex int

type lrItem struct {
	core         lrItemCore
	prod         *production
	dottedSymbol symbol.Symbol

	// lookAhead only grows.
	lookAhead *termset.Set

	// propagateTo lists the items that receive the look-ahead symbols of this item.
	propagateTo []lrItemIndex
}

// reducible reports whether the item looks like E → E + T・.
func (item *lrItem) reducible() bool {
	return item.core.Dot == item.prod.rhsLen
}

// kernel reports whether the item is a kernel item. The initial item S' →・S is a kernel item too.
func (item *lrItem) kernel() bool {
	return item.core.Dot > 0 || item.prod.lhs.IsStart()
}

type itemArena struct {
	items     []*lrItem
	termCount int
}

func newItemArena(termCount int) *itemArena {
	return &itemArena{
		termCount: termCount,
	}
}

func (a *itemArena) newItem(prod *production, dot int, lookAhead *termset.Set) (lrItemIndex, error) {
	if prod == nil {
		return 0, newInternalError("production must be non-nil")
	}
	if dot < 0 || dot > prod.rhsLen {
		return 0, newInternalError("dot must be between 0 and %v; production: %v, dot: %v", prod.rhsLen, prod.num, dot)
	}

	la := termset.New(a.termCount)
	if lookAhead != nil {
		la.Union(lookAhead)
	}

	dottedSymbol := symbol.SymbolNil
	if dot < prod.rhsLen {
		dottedSymbol = prod.rhs[dot]
	}

	a.items = append(a.items, &lrItem{
		core: lrItemCore{
			Prod: prod.num.Int(),
			Dot:  dot,
		},
		prod:         prod,
		dottedSymbol: dottedSymbol,
		lookAhead:    la,
	})
	return lrItemIndex(len(a.items) - 1), nil
}

func (a *itemArena) get(idx lrItemIndex) *lrItem {
	return a.items[idx]
}

func (a *itemArena) addPropagation(from, to lrItemIndex) {
	item := a.items[from]
	for _, i := range item.propagateTo {
		if i == to {
			return
		}
	}
	item.propagateTo = append(item.propagateTo, to)
}

func (a *itemArena) size() int {
	return len(a.items)
}

// lrItemSet is a set of items deduplicated by their cores. The order of items is the order they
// were added in.
type lrItemSet struct {
	arena  *itemArena
	byCore map[lrItemCore]lrItemIndex
	order  []lrItemIndex
}

func newItemSet(arena *itemArena) *lrItemSet {
	return &lrItemSet{
		arena:  arena,
		byCore: map[lrItemCore]lrItemIndex{},
	}
}

// add adds an item or, when the set already has an item having the same core, merges the
// look-ahead symbols into the existing one. It returns the index of the item in the set and
// whether a new item was added.
func (s *lrItemSet) add(prod *production, dot int, lookAhead *termset.Set) (lrItemIndex, bool, error) {
	if prod == nil {
		return 0, false, newInternalError("production must be non-nil")
	}
	if idx, ok := s.byCore[lrItemCore{Prod: prod.num.Int(), Dot: dot}]; ok {
		if lookAhead != nil {
			s.arena.get(idx).lookAhead.Union(lookAhead)
		}
		return idx, false, nil
	}
	idx, err := s.arena.newItem(prod, dot, lookAhead)
	if err != nil {
		return 0, false, err
	}
	s.byCore[s.arena.get(idx).core] = idx
	s.order = append(s.order, idx)
	return idx, true, nil
}

func (s *lrItemSet) find(core lrItemCore) (lrItemIndex, bool) {
	idx, ok := s.byCore[core]
	return idx, ok
}

func (s *lrItemSet) items() []lrItemIndex {
	return s.order
}

func (s *lrItemSet) size() int {
	return len(s.order)
}

// isSubsetOf reports whether every item of s has a counterpart in t whose look-ahead symbols
// include the ones of the item.
func (s *lrItemSet) isSubsetOf(t *lrItemSet) bool {
	for _, idx := range s.order {
		item := s.arena.get(idx)
		tIdx, ok := t.byCore[item.core]
		if !ok {
			return false
		}
		if !item.lookAhead.IsSubsetOf(t.arena.get(tIdx).lookAhead) {
			return false
		}
	}
	return true
}

func (s *lrItemSet) isSupersetOf(t *lrItemSet) bool {
	return t.isSubsetOf(s)
}

func (s *lrItemSet) equals(t *lrItemSet) bool {
	return s.size() == t.size() && s.isSubsetOf(t)
}

// cores returns a sorted snapshot of the cores.
func (s *lrItemSet) cores() []lrItemCore {
	cores := make([]lrItemCore, 0, len(s.order))
	for _, idx := range s.order {
		cores = append(cores, s.arena.get(idx).core)
	}
	sort.Slice(cores, func(i, j int) bool {
		return cores[i].less(cores[j])
	})
	return cores
}

type kernelID string

type kernelKey struct {
	Items []lrItemCore
}

// genKernelID computes the identity of a kernel from its cores. The cores must be sorted.
func genKernelID(cores []lrItemCore) (kernelID, error) {
	if len(cores) == 0 {
		return "", newInternalError("a kernel needs at least one item")
	}
	return kernelID(hex.EncodeToString(structhash.Sha1(kernelKey{Items: cores}, 1))), nil
}

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return strconv.Itoa(int(n))
}

func (n stateNum) next() stateNum {
	return stateNum(n + 1)
}

type lrTransition struct {
	symbol symbol.Symbol
	to     *lrState
}

type lrState struct {
	num    stateNum
	id     kernelID
	kernel []lrItemCore
	items  *lrItemSet

	// transitions are sorted by their symbols.
	transitions []*lrTransition
}

func (s *lrState) addTransition(sym symbol.Symbol, to *lrState) error {
	if to == nil {
		return newInternalError("a transition needs a destination state; state: %v, symbol: %v", s.num, sym)
	}
	if sym.IsNil() {
		return newInternalError("a transition needs a symbol; state: %v", s.num)
	}
	s.transitions = append(s.transitions, &lrTransition{
		symbol: sym,
		to:     to,
	})
	return nil
}

func (s *lrState) String() string {
	return fmt.Sprintf("state %v", s.num)
}
