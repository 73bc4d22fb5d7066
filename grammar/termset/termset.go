// Package termset provides a fixed-width set of terminal symbols.
//
// Every set of one generation run has the same width: the number of terminal columns,
// fixed once the terminal registry is frozen. Combining sets of different widths or
// touching a terminal outside the universe is a bug in the caller, so these operations
// panic instead of returning an error.
package termset

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/nihei9/lalrgen/grammar/symbol"
)

type Set struct {
	width uint
	bits  *bitset.BitSet
}

func New(width int) *Set {
	if width < 0 {
		panic(fmt.Sprintf("internal error: a terminal set width must be non-negative; width: %v", width))
	}
	return &Set{
		width: uint(width),
		bits:  bitset.New(uint(width)),
	}
}

// Of returns a set containing terms.
func Of(width int, terms ...symbol.SymbolNum) *Set {
	s := New(width)
	for _, t := range terms {
		s.Add(t)
	}
	return s
}

func (s *Set) Width() int {
	return int(s.width)
}

// Add adds a terminal and reports whether the set changed.
func (s *Set) Add(term symbol.SymbolNum) bool {
	s.checkTerm(term)
	if s.bits.Test(uint(term)) {
		return false
	}
	s.bits.Set(uint(term))
	return true
}

func (s *Set) Contains(term symbol.SymbolNum) bool {
	s.checkTerm(term)
	return s.bits.Test(uint(term))
}

// Union adds all terminals of other to s and reports whether s changed.
func (s *Set) Union(other *Set) bool {
	s.checkWidth(other)
	before := s.bits.Count()
	s.bits.InPlaceUnion(other.bits)
	return s.bits.Count() != before
}

func (s *Set) IsSubsetOf(other *Set) bool {
	s.checkWidth(other)
	return other.bits.IsSuperSet(s.bits)
}

func (s *Set) Intersects(other *Set) bool {
	s.checkWidth(other)
	return s.bits.IntersectionCardinality(other.bits) > 0
}

func (s *Set) Equal(other *Set) bool {
	s.checkWidth(other)
	return s.bits.Equal(other.bits)
}

func (s *Set) Empty() bool {
	return s.bits.None()
}

func (s *Set) Len() int {
	return int(s.bits.Count())
}

func (s *Set) Clone() *Set {
	return &Set{
		width: s.width,
		bits:  s.bits.Clone(),
	}
}

// Terminals returns the members in ascending order.
func (s *Set) Terminals() []symbol.SymbolNum {
	terms := make([]symbol.SymbolNum, 0, s.bits.Count())
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		terms = append(terms, symbol.SymbolNum(i))
	}
	return terms
}

func (s *Set) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "{")
	for i, t := range s.Terminals() {
		if i > 0 {
			fmt.Fprintf(&b, ", ")
		}
		fmt.Fprintf(&b, "%v", t)
	}
	fmt.Fprintf(&b, "}")
	return b.String()
}

func (s *Set) checkTerm(term symbol.SymbolNum) {
	if uint(term) >= s.width {
		panic(fmt.Sprintf("internal error: a terminal is out of the universe; terminal: %v, width: %v", term, s.width))
	}
}

func (s *Set) checkWidth(other *Set) {
	if other == nil || other.width != s.width {
		var w interface{} = "nil"
		if other != nil {
			w = other.width
		}
		panic(fmt.Sprintf("internal error: terminal sets have different widths; %v and %v", s.width, w))
	}
}
