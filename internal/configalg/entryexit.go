package configalg

import "github.com/arborio/statecraft/internal/model"

// TransitionDomain returns the domain node used to compute a
// transition's exit/entry sets: the source itself for a
// genuinely internal transition (internal, compound source, every
// target a proper descendant of source); otherwise the LCCA of source
// and all targets.
func TransitionDomain(root *model.StateNode, t *model.TransitionDef) *model.StateNode {
	if t.Internal && t.Source.IsCompound() && t.TargetsAreDescendants() {
		return t.Source
	}
	nodes := append([]*model.StateNode{t.Source}, t.Targets...)
	return LCCA(root, nodes)
}

// pathBelow returns the nodes strictly below domain down to and
// including n, root-first (domain excluded).
func pathBelow(domain, n *model.StateNode) []*model.StateNode {
	full := AncestorsIncl(n)
	idx := -1
	for i, a := range full {
		if a == domain {
			idx = i
			break
		}
	}
	if idx == -1 {
		return full
	}
	return full[idx+1:]
}

// ExitSet computes the exit set for a single selected transition: every
// proper descendant of the domain that is active in cfg, including the
// active nodes of sibling parallel regions under the domain. Sorted by
// Order descending.
func ExitSet(cfg *Configuration, domain *model.StateNode, t *model.TransitionDef) []*model.StateNode {
	// A targetless transition (the empty-targets no-op case, internal or
	// not) exits nothing: nothing will be re-entered, so exiting the
	// source or its active child here would leave them without a
	// replacement.
	if len(t.Targets) == 0 {
		return nil
	}
	var out []*model.StateNode
	for _, n := range Descendants(domain) {
		if cfg.Has(n) {
			out = append(out, n)
		}
	}
	SortDesc(out)
	return out
}

// EntrySet computes the entry set for a single selected transition:
// for each target, the path from the domain down to the target, plus
// initial/history descendants beneath the target. A target that is
// itself a history pseudostate resolves in place of being entered
// directly. Sorted by Order ascending.
func EntrySet(domain *model.StateNode, t *model.TransitionDef, resolver HistoryResolver) []*model.StateNode {
	seen := map[*model.StateNode]bool{}
	var out []*model.StateNode
	add := func(n *model.StateNode) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	resolve := func(h *model.StateNode) (resolved []*model.StateNode, expand bool) {
		if resolver != nil {
			return resolver(h)
		}
		if h.HistoryTarget == nil {
			return nil, false
		}
		return []*model.StateNode{h.HistoryTarget}, true
	}
	for _, target := range t.Targets {
		if target.IsHistory() {
			for _, n := range pathBelow(domain, target.Parent) {
				add(n)
			}
			resolved, expand := resolve(target)
			for _, r := range resolved {
				add(r)
				if expand {
					for _, n := range InitialDescendants(r, resolve) {
						add(n)
					}
				}
			}
			continue
		}
		for _, n := range pathBelow(domain, target) {
			add(n)
		}
		for _, n := range InitialDescendants(target, resolve) {
			add(n)
		}
	}
	SortAsc(out)
	return out
}
