package configalg

import "github.com/arborio/statecraft/internal/model"

// Ancestors returns the proper ancestors of n, root-first.
func Ancestors(n *model.StateNode) []*model.StateNode {
	var rev []*model.StateNode
	for p := n.Parent; p != nil; p = p.Parent {
		rev = append(rev, p)
	}
	out := make([]*model.StateNode, len(rev))
	for i, a := range rev {
		out[len(rev)-1-i] = a
	}
	return out
}

// AncestorsIncl is Ancestors plus n itself, root-first.
func AncestorsIncl(n *model.StateNode) []*model.StateNode {
	return append(Ancestors(n), n)
}

// IsProperDescendant reports whether n is strictly below ancestor.
func IsProperDescendant(n, ancestor *model.StateNode) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Descendants returns every proper descendant of n, document order
// (parent before child, children in document order).
func Descendants(n *model.StateNode) []*model.StateNode {
	var out []*model.StateNode
	var walk func(*model.StateNode)
	walk = func(cur *model.StateNode) {
		for _, c := range cur.ChildNodes() {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

// Children returns n's direct children in document order.
func Children(n *model.StateNode) []*model.StateNode {
	return n.ChildNodes()
}

// LeafDescendants returns every atomic/final leaf reachable under n
// (including n itself if it is already a leaf).
func LeafDescendants(n *model.StateNode) []*model.StateNode {
	if n.IsAtomicLeaf() {
		return []*model.StateNode{n}
	}
	var out []*model.StateNode
	for _, c := range n.ChildNodes() {
		out = append(out, LeafDescendants(c)...)
	}
	return out
}

// LCCA returns the least common compound ancestor of a set of nodes:
// the closest ancestor common to all of them whose type is Compound,
// or the Definition root.
func LCCA(root *model.StateNode, nodes []*model.StateNode) *model.StateNode {
	if len(nodes) == 0 {
		return root
	}
	candidates := AncestorsIncl(nodes[0])
	// keep only compound ancestors (or root) as candidates, root-first.
	var compoundCandidates []*model.StateNode
	for _, c := range candidates {
		if c == root || c.IsCompound() {
			compoundCandidates = append(compoundCandidates, c)
		}
	}
	best := root
	for i := len(compoundCandidates) - 1; i >= 0; i-- {
		cand := compoundCandidates[i]
		ok := true
		for _, n := range nodes {
			if n != cand && !IsProperDescendant(n, cand) {
				ok = false
				break
			}
		}
		if ok {
			best = cand
			break
		}
	}
	return best
}

// IsInFinalState reports whether n is "in final" within cfg: a
// compound node is in final iff its active child is a Final node; a
// parallel node is in final iff every region is in final.
func IsInFinalState(cfg *Configuration, n *model.StateNode) bool {
	switch n.Type {
	case model.Final:
		return true
	case model.Compound:
		for _, c := range n.ChildNodes() {
			if cfg.Has(c) {
				return c.IsFinal()
			}
		}
		return false
	case model.Parallel:
		for _, region := range n.ChildNodes() {
			if region.IsHistory() {
				continue
			}
			if !IsInFinalState(cfg, region) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// HistoryResolver resolves a history pseudostate h to the concrete
// node(s) it currently restores to. expandInitial tells the caller
// whether each returned node still needs its own InitialDescendants
// computed (true for shallow restoration, where nested compounds
// re-enter their own initial state; false for deep restoration, which
// already names a full leaf-level set).
type HistoryResolver func(h *model.StateNode) (resolved []*model.StateNode, expandInitial bool)

// InitialDescendants returns the nodes that must be added beneath n to
// reach a legal leaf configuration: for Compound, the initial (or
// history-resolved) child recursively; for Parallel, every
// non-history region recursively, in document order. n itself is not included.
func InitialDescendants(n *model.StateNode, historyResolver HistoryResolver) []*model.StateNode {
	var out []*model.StateNode
	switch n.Type {
	case model.Compound:
		child := n.InitialChild()
		if child == nil {
			return out
		}
		out = append(out, resolveAndExpand(child, historyResolver)...)
	case model.Parallel:
		for _, region := range n.ChildNodes() {
			if region.IsHistory() {
				continue
			}
			out = append(out, region)
			out = append(out, InitialDescendants(region, historyResolver)...)
		}
	}
	return out
}

// resolveAndExpand appends child (or its history resolution) plus
// whatever further initial descendants are still required below it.
func resolveAndExpand(child *model.StateNode, historyResolver HistoryResolver) []*model.StateNode {
	if !child.IsHistory() {
		return append([]*model.StateNode{child}, InitialDescendants(child, historyResolver)...)
	}
	if historyResolver == nil {
		return nil
	}
	resolved, expand := historyResolver(child)
	var out []*model.StateNode
	for _, r := range resolved {
		out = append(out, r)
		if expand {
			out = append(out, InitialDescendants(r, historyResolver)...)
		}
	}
	return out
}

// AddDescendants adds n and its InitialDescendants to cfg.
func AddDescendants(cfg *Configuration, n *model.StateNode, historyResolver HistoryResolver) {
	cfg.Add(n)
	for _, d := range InitialDescendants(n, historyResolver) {
		cfg.Add(d)
	}
}

// GetConfiguration extends transitionTargets with every required
// ancestor and the initial descendants beneath each target, returning
// a new legal Configuration.
func GetConfiguration(def *model.Definition, targets []*model.StateNode, historyResolver HistoryResolver) *Configuration {
	cfg := NewConfiguration(def)
	for _, t := range targets {
		for _, a := range AncestorsIncl(t) {
			cfg.Add(a)
		}
		AddDescendants(cfg, t, historyResolver)
	}
	return cfg
}
