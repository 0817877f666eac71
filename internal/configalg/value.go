package configalg

import "github.com/arborio/statecraft/internal/model"

// ValueOf derives the observable StateValue for n given cfg, matching
// the Core API contract's State.value shape: a compound node whose
// active child is itself atomic/final collapses to that child's key as
// a bare leaf string; a compound node whose active child is itself
// compound/parallel nests one level under the child's key; a parallel
// node always produces a map keyed by region.
func ValueOf(cfg *Configuration, n *model.StateNode) *model.StateValue {
	switch n.Type {
	case model.Parallel:
		children := map[string]*model.StateValue{}
		for _, c := range n.ChildNodes() {
			if c.IsHistory() {
				continue
			}
			children[c.Key] = ValueOf(cfg, c)
		}
		return model.NewCompoundValue(children)
	case model.Compound:
		for _, c := range n.ChildNodes() {
			if c.IsHistory() || !cfg.Has(c) {
				continue
			}
			if c.IsAtomicLeaf() {
				return model.NewLeafValue(c.Key)
			}
			return model.NewCompoundValue(map[string]*model.StateValue{c.Key: ValueOf(cfg, c)})
		}
		return model.NewLeafValue(n.Key)
	default: // Atomic, Final, History
		return model.NewLeafValue(n.Key)
	}
}
