package grammar

type Terminal struct {
	Number        int    `json:"number"`
	Name          string `json:"name"`
	Alias         string `json:"alias"`
	Pattern       string `json:"pattern"`
	Skip          bool   `json:"skip"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
	UseCount      int    `json:"use_count"`
}

type NonTerminal struct {
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Nullable bool   `json:"nullable"`
	First    []int  `json:"first"`
	UseCount int    `json:"use_count"`
}

type Production struct {
	Number        int    `json:"number"`
	LHS           int    `json:"lhs"`
	RHS           []int  `json:"rhs"`
	Precedence    int    `json:"prec"`
	Associativity string `json:"assoc"`
	Action        string `json:"action"`
	Origin        int    `json:"origin"`
	Reductions    int    `json:"reductions"`
}

type Item struct {
	Production int   `json:"production"`
	Dot        int   `json:"dot"`
	LookAhead  []int `json:"look_ahead"`
}

type Transition struct {
	Symbol int `json:"symbol"`
	State  int `json:"state"`
}

type Reduce struct {
	LookAhead  []int `json:"look_ahead"`
	Production int   `json:"production"`
}

// Conflict resolution methods.
const (
	ResolvedByPrec      = 1
	ResolvedByAssoc     = 2
	ResolvedByShift     = 3
	ResolvedByProdOrder = 4
)

type SRConflict struct {
	Symbol            int  `json:"symbol"`
	State             int  `json:"state"`
	Production        int  `json:"production"`
	AdoptedState      *int `json:"adopted_state"`
	AdoptedProduction *int `json:"adopted_production"`
	AdoptedNonAssoc   bool `json:"adopted_non_assoc"`
	ResolvedBy        int  `json:"resolved_by"`
}

type RRConflict struct {
	Symbol            int `json:"symbol"`
	Production1       int `json:"production_1"`
	Production2       int `json:"production_2"`
	AdoptedProduction int `json:"adopted_production"`
	ResolvedBy        int `json:"resolved_by"`
}

type State struct {
	Number     int           `json:"number"`
	Kernel     []*Item       `json:"kernel"`
	Shift      []*Transition `json:"shift"`
	Reduce     []*Reduce     `json:"reduce"`
	GoTo       []*Transition `json:"goto"`
	NonAssoc   []int         `json:"non_assoc"`
	SRConflict []*SRConflict `json:"sr_conflict"`
	RRConflict []*RRConflict `json:"rr_conflict"`
}

type Report struct {
	Terminals            []*Terminal    `json:"terminals"`
	NonTerminals         []*NonTerminal `json:"non_terminals"`
	Productions          []*Production  `json:"productions"`
	States               []*State       `json:"states"`
	ConflictCount        int            `json:"conflict_count"`
	UnreducedProductions []int          `json:"unreduced_productions"`
	UnusedTerminals      []int          `json:"unused_terminals"`
	UnusedNonTerminals   []int          `json:"unused_non_terminals"`
}
