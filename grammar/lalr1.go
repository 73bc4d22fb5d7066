package grammar

import (
	"sort"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/nihei9/lalrgen/grammar/symbol"
	"github.com/nihei9/lalrgen/grammar/termset"
	"go.uber.org/zap"
)

type lalr1Automaton struct {
	states       []*lrState
	initialState stateNum
	arena        *itemArena
}

type lalr1Builder struct {
	prods     *productionSet
	first     *firstSet
	termCount int
	arena     *itemArena
	kernels   map[kernelID]*lrState
	states    []*lrState
	logger    *zap.Logger
}

func genLALR1Automaton(prods *productionSet, first *firstSet, termCount int, logger *zap.Logger) (*lalr1Automaton, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &lalr1Builder{
		prods:     prods,
		first:     first,
		termCount: termCount,
		arena:     newItemArena(termCount),
		kernels:   map[kernelID]*lrState{},
		logger:    logger,
	}
	return b.build()
}

func (b *lalr1Builder) build() (*lalr1Automaton, error) {
	startProd, ok := b.prods.findByNum(productionNumStart)
	if !ok {
		return nil, newInternalError("the start production was not found")
	}

	// The initial item looks like [S' → ・S, $].
	iniKernel := newItemSet(b.arena)
	_, _, err := iniKernel.add(startProd, 0, termset.Of(b.termCount, symbol.SymbolEOF.Num()))
	if err != nil {
		return nil, err
	}
	iniState, err := b.newState(iniKernel)
	if err != nil {
		return nil, err
	}

	queue := linkedlistqueue.New()
	queue.Enqueue(iniState)
	for !queue.Empty() {
		v, ok := queue.Dequeue()
		if !ok {
			return nil, newInternalError("the state queue is empty")
		}
		err := b.genTransitions(v.(*lrState), queue)
		if err != nil {
			return nil, err
		}
	}

	b.logger.Debug("built a state machine", zap.Int("states", len(b.states)), zap.Int("items", b.arena.size()))

	err = propagateLookAhead(b.arena)
	if err != nil {
		return nil, err
	}

	return &lalr1Automaton{
		states:       b.states,
		initialState: iniState.num,
		arena:        b.arena,
	}, nil
}

// newState closes a kernel and registers the closure as a new state. The kernel must not be known yet.
func (b *lalr1Builder) newState(kernel *lrItemSet) (*lrState, error) {
	cores := kernel.cores()
	id, err := genKernelID(cores)
	if err != nil {
		return nil, err
	}
	if s, ok := b.kernels[id]; ok {
		return nil, newInternalError("a state having the same kernel already exists; state: %v", s.num)
	}

	err = b.closure(kernel)
	if err != nil {
		return nil, err
	}

	state := &lrState{
		num:    stateNum(len(b.states)),
		id:     id,
		kernel: cores,
		items:  kernel,
	}
	b.states = append(b.states, state)
	b.kernels[id] = state
	return state, nil
}

// genTransitions builds the successors of a state. A successor whose kernel is already known is
// reused, and the shifting items get propagation links to the items of that state.
func (b *lalr1Builder) genTransitions(state *lrState, queue *linkedlistqueue.Queue) error {
	var syms []symbol.Symbol
	shifting := map[symbol.Symbol][]lrItemIndex{}
	for _, idx := range state.items.items() {
		item := b.arena.get(idx)
		if item.dottedSymbol.IsNil() {
			continue
		}
		if _, ok := shifting[item.dottedSymbol]; !ok {
			syms = append(syms, item.dottedSymbol)
		}
		shifting[item.dottedSymbol] = append(shifting[item.dottedSymbol], idx)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})

	for _, sym := range syms {
		idxs := shifting[sym]

		cores := make([]lrItemCore, 0, len(idxs))
		for _, idx := range idxs {
			c := b.arena.get(idx).core
			cores = append(cores, lrItemCore{Prod: c.Prod, Dot: c.Dot + 1})
		}
		sort.Slice(cores, func(i, j int) bool {
			return cores[i].less(cores[j])
		})
		id, err := genKernelID(cores)
		if err != nil {
			return err
		}

		if dest, ok := b.kernels[id]; ok {
			if !equalCores(dest.kernel, cores) {
				return newInternalError("kernels collided; state: %v", dest.num)
			}
			for _, idx := range idxs {
				c := b.arena.get(idx).core
				destIdx, ok := dest.items.find(lrItemCore{Prod: c.Prod, Dot: c.Dot + 1})
				if !ok {
					return newInternalError("a kernel item was not found; state: %v, production: %v, dot: %v", dest.num, c.Prod, c.Dot+1)
				}
				b.arena.addPropagation(idx, destIdx)
			}
			err := state.addTransition(sym, dest)
			if err != nil {
				return err
			}
			continue
		}

		kernel := newItemSet(b.arena)
		for _, idx := range idxs {
			item := b.arena.get(idx)
			newIdx, _, err := kernel.add(item.prod, item.core.Dot+1, item.lookAhead)
			if err != nil {
				return err
			}
			b.arena.addPropagation(idx, newIdx)
		}
		dest, err := b.newState(kernel)
		if err != nil {
			return err
		}
		queue.Enqueue(dest)
		err = state.addTransition(sym, dest)
		if err != nil {
			return err
		}
	}

	return nil
}

// closure expands an item set in place. An item whose look-ahead is visible to the items it
// generates gets propagation links to them.
func (b *lalr1Builder) closure(set *lrItemSet) error {
	stack := arraystack.New()
	for _, idx := range set.items() {
		stack.Push(idx)
	}
	for !stack.Empty() {
		v, ok := stack.Pop()
		if !ok {
			return newInternalError("the closure stack is empty")
		}
		idx := v.(lrItemIndex)
		item := b.arena.get(idx)
		if !item.dottedSymbol.IsNonTerminal() {
			continue
		}

		lookAhead, visible, err := b.calcLookAhead(item)
		if err != nil {
			return err
		}

		prods, ok := b.prods.findByLHS(item.dottedSymbol)
		if !ok {
			return newInternalError("a non-terminal has no production; symbol: %v", item.dottedSymbol)
		}
		for _, prod := range prods {
			newIdx, added, err := set.add(prod, 0, lookAhead)
			if err != nil {
				return err
			}
			if visible {
				b.arena.addPropagation(idx, newIdx)
			}
			if added {
				stack.Push(newIdx)
			}
		}
	}
	return nil
}

// calcLookAhead returns the look-ahead symbols of the items generated from an item like
// A → α・B β. They are FIRST(β), and when β is nullable, the look-ahead of the item too.
// The second result reports whether β is nullable.
func (b *lalr1Builder) calcLookAhead(item *lrItem) (*termset.Set, bool, error) {
	fst, nullable, err := b.first.find(item.prod, item.core.Dot+1)
	if err != nil {
		return nil, false, err
	}
	if nullable {
		fst.Union(item.lookAhead)
	}
	return fst, nullable, nil
}

// propagateLookAhead distributes look-ahead symbols along the propagation links until nothing
// changes. Every item is visited at least once.
func propagateLookAhead(arena *itemArena) error {
	queue := linkedlistqueue.New()
	queued := make([]bool, arena.size())
	for i := 0; i < arena.size(); i++ {
		queue.Enqueue(lrItemIndex(i))
		queued[i] = true
	}
	for !queue.Empty() {
		v, ok := queue.Dequeue()
		if !ok {
			return newInternalError("the propagation queue is empty")
		}
		idx := v.(lrItemIndex)
		queued[idx] = false

		item := arena.get(idx)
		for _, to := range item.propagateTo {
			if !arena.get(to).lookAhead.Union(item.lookAhead) || queued[to] {
				continue
			}
			queued[to] = true
			queue.Enqueue(to)
		}
	}
	return nil
}

func equalCores(a, b []lrItemCore) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
