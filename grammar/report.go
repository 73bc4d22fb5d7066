package grammar

import (
	"fmt"
	"sort"

	"github.com/nihei9/lalrgen/grammar/symbol"
	spec "github.com/nihei9/lalrgen/spec/grammar"
)

func genReport(b *lrTableBuilder, tab *ParsingTable, gram *Grammar, fst *firstSet, unreduced []*production, unusedTerms, unusedNonTerms []symbol.Symbol) (*spec.Report, error) {
	var terms []*spec.Terminal
	{
		termSyms := b.symTab.TerminalSymbols()
		terms = make([]*spec.Terminal, len(termSyms)+1)

		for _, sym := range termSyms {
			name, ok := b.symTab.ToText(sym)
			if !ok {
				return nil, fmt.Errorf("failed to generate terminals: symbol not found: %v", sym)
			}

			term := &spec.Terminal{
				Number:   sym.Num().Int(),
				Name:     name,
				Alias:    gram.kindAliases[sym],
				Pattern:  gram.patterns[sym],
				UseCount: b.symTab.UseCount(sym),
			}
			if _, ok := gram.skipSymbols[sym]; ok {
				term.Skip = true
			}
			if prec, assoc := b.symTab.Precedence(sym); prec != symbol.PrecNil {
				term.Precedence = prec
				term.Associativity = assoc.String()
			}

			terms[sym.Num()] = term
		}
	}

	var nonTerms []*spec.NonTerminal
	{
		nonTermSyms := b.symTab.NonTerminalSymbols()
		nonTerms = make([]*spec.NonTerminal, len(nonTermSyms)+1)
		for _, sym := range nonTermSyms {
			name, ok := b.symTab.ToText(sym)
			if !ok {
				return nil, fmt.Errorf("failed to generate non-terminals: symbol not found: %v", sym)
			}

			var first []int
			if f := fst.findBySymbol(sym); f != nil {
				for _, t := range f.Terminals() {
					first = append(first, t.Int())
				}
			}

			nonTerms[sym.Num()] = &spec.NonTerminal{
				Number:   sym.Num().Int(),
				Name:     name,
				Nullable: fst.isNullable(sym),
				First:    first,
				UseCount: b.symTab.UseCount(sym),
			}
		}
	}

	var prods []*spec.Production
	{
		prods = make([]*spec.Production, gram.productionSet.count())
		for _, p := range gram.productionSet.getAllProductions() {
			// Non-terminals are negative in RHS.
			rhs := make([]int, len(p.rhs))
			for i, e := range p.rhs {
				if e.IsTerminal() {
					rhs[i] = e.Num().Int()
				} else {
					rhs[i] = e.Num().Int() * -1
				}
			}

			prod := &spec.Production{
				Number:     p.num.Int(),
				LHS:        p.lhs.Num().Int(),
				RHS:        rhs,
				Action:     p.action,
				Origin:     p.origin.Int(),
				Reductions: p.reductions,
			}
			if p.prec != symbol.PrecNil {
				prod.Precedence = p.prec
				prod.Associativity = p.assoc.String()
			}

			prods[p.num.Int()] = prod
		}
	}

	var states []*spec.State
	{
		srConflicts := map[stateNum][]*shiftReduceConflict{}
		rrConflicts := map[stateNum][]*reduceReduceConflict{}
		for _, con := range b.conflicts {
			switch c := con.(type) {
			case *shiftReduceConflict:
				srConflicts[c.state] = append(srConflicts[c.state], c)
			case *reduceReduceConflict:
				rrConflicts[c.state] = append(rrConflicts[c.state], c)
			}
		}

		states = make([]*spec.State, len(b.automaton.states))
		for _, s := range b.automaton.states {
			var kernel []*spec.Item
			for _, core := range s.kernel {
				idx, ok := s.items.find(core)
				if !ok {
					return nil, fmt.Errorf("failed to generate states: kernel item not found: %v", core)
				}
				var la []int
				for _, t := range b.automaton.arena.get(idx).lookAhead.Terminals() {
					la = append(la, t.Int())
				}
				kernel = append(kernel, &spec.Item{
					Production: core.Prod,
					Dot:        core.Dot,
					LookAhead:  la,
				})
			}

			var shift []*spec.Transition
			var reduce []*spec.Reduce
			var goTo []*spec.Transition
			var nonAssoc []int
			{
			TERMINALS_LOOP:
				for _, t := range b.symTab.TerminalSymbols() {
					act := tab.getAction(s.num, t.Num())
					switch act.kind() {
					case ActionTypeShift:
						shift = append(shift, &spec.Transition{
							Symbol: t.Num().Int(),
							State:  act.state.Int(),
						})
					case ActionTypeReduce:
						for _, r := range reduce {
							if r.Production == act.prod.Int() {
								r.LookAhead = append(r.LookAhead, t.Num().Int())
								continue TERMINALS_LOOP
							}
						}
						reduce = append(reduce, &spec.Reduce{
							LookAhead:  []int{t.Num().Int()},
							Production: act.prod.Int(),
						})
					case ActionTypeNonAssoc:
						nonAssoc = append(nonAssoc, t.Num().Int())
					}
				}

				for _, n := range b.symTab.NonTerminalSymbols() {
					ty, next := tab.getGoTo(s.num, n.Num())
					if ty == GoToTypeRegistered {
						goTo = append(goTo, &spec.Transition{
							Symbol: n.Num().Int(),
							State:  next.Int(),
						})
					}
				}

				sort.Slice(shift, func(i, j int) bool {
					return shift[i].State < shift[j].State
				})
				sort.Slice(reduce, func(i, j int) bool {
					return reduce[i].Production < reduce[j].Production
				})
				sort.Slice(goTo, func(i, j int) bool {
					return goTo[i].State < goTo[j].State
				})
			}

			sr := []*spec.SRConflict{}
			rr := []*spec.RRConflict{}
			{
				for _, c := range srConflicts[s.num] {
					conflict := &spec.SRConflict{
						Symbol:     c.sym.Int(),
						State:      c.nextState.Int(),
						Production: c.prodNum.Int(),
						ResolvedBy: c.resolvedBy.Int(),
					}

					switch c.adopted {
					case ActionTypeShift:
						n := c.nextState.Int()
						conflict.AdoptedState = &n
					case ActionTypeReduce:
						n := c.prodNum.Int()
						conflict.AdoptedProduction = &n
					case ActionTypeNonAssoc:
						conflict.AdoptedNonAssoc = true
					}

					sr = append(sr, conflict)
				}

				sort.SliceStable(sr, func(i, j int) bool {
					return sr[i].Symbol < sr[j].Symbol
				})

				for _, c := range rrConflicts[s.num] {
					rr = append(rr, &spec.RRConflict{
						Symbol:            c.sym.Int(),
						Production1:       c.prodNum1.Int(),
						Production2:       c.prodNum2.Int(),
						AdoptedProduction: c.prodNum1.Int(),
						ResolvedBy:        c.resolvedBy.Int(),
					})
				}

				sort.SliceStable(rr, func(i, j int) bool {
					return rr[i].Symbol < rr[j].Symbol
				})
			}

			states[s.num.Int()] = &spec.State{
				Number:     s.num.Int(),
				Kernel:     kernel,
				Shift:      shift,
				Reduce:     reduce,
				GoTo:       goTo,
				NonAssoc:   nonAssoc,
				SRConflict: sr,
				RRConflict: rr,
			}
		}
	}

	var unreducedNums []int
	for _, p := range unreduced {
		unreducedNums = append(unreducedNums, p.num.Int())
	}
	var unusedTermNums []int
	for _, sym := range unusedTerms {
		unusedTermNums = append(unusedTermNums, sym.Num().Int())
	}
	var unusedNonTermNums []int
	for _, sym := range unusedNonTerms {
		unusedNonTermNums = append(unusedNonTermNums, sym.Num().Int())
	}

	return &spec.Report{
		Terminals:            terms,
		NonTerminals:         nonTerms,
		Productions:          prods,
		States:               states,
		ConflictCount:        b.conflictCount,
		UnreducedProductions: unreducedNums,
		UnusedTerminals:      unusedTermNums,
		UnusedNonTerminals:   unusedNonTermNums,
	}, nil
}
