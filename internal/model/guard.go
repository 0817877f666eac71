package model

// GuardKind discriminates the Guard tagged union.
type GuardKind int

const (
	// GuardNone means no guard: the transition is always enabled.
	GuardNone GuardKind = iota
	GuardPredicate
	GuardNamed
)

// GuardMeta is passed to guard predicates alongside context and event
// data, giving guards read access to the state value they are being
// evaluated against (needed for in_state-flavored guards).
type GuardMeta struct {
	Value   *StateValue
	SourceID string
}

// PredicateFn evaluates a guard inline.
type PredicateFn func(ctx Context, eventData any, meta GuardMeta) bool

// Guard is a tagged union: either an inline predicate or a symbolic
// name+params resolved through the machine's guard options table.
type Guard struct {
	Kind      GuardKind
	Predicate PredicateFn
	Type      string
	Params    map[string]any
}

// Eval evaluates the guard. Named guards are resolved by the caller
// (internal/selector) through the options table; Eval only handles the
// inline-predicate case and the trivial "no guard" case.
func (g Guard) Eval(ctx Context, eventData any, meta GuardMeta) (bool, bool) {
	switch g.Kind {
	case GuardNone:
		return true, true
	case GuardPredicate:
		if g.Predicate == nil {
			return true, true
		}
		return g.Predicate(ctx, eventData, meta), true
	case GuardNamed:
		return false, false // caller must resolve by name
	default:
		return true, true
	}
}
