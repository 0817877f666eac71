// Package selector implements the Transition Selector: given
// a configuration, an event, and a context, it selects the enabled
// transition set for one microstep.
package selector

import (
	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/internal/scerr"
)

// GuardResolver evaluates a named (symbolic) guard; it is the
// selector's hook into the machine's options table of registered
// guard implementations. Inline predicate guards never reach this.
type GuardResolver func(g model.Guard, ctx model.Context, eventData any, meta model.GuardMeta) (bool, error)

// Input bundles everything SelectMicrostep needs to pick a transition
// set without depending on the step engine's internal representation.
type Input struct {
	Def           *model.Definition
	Config        *configalg.Configuration
	Value         *model.StateValue
	Context       model.Context
	Event         model.Event
	GuardResolver GuardResolver
}

// SelectMicrostep walks, for every active atomic/final leaf, the chain
// of ancestors from innermost to outermost, taking the first
// document-order transition whose pattern matches the event and whose
// guard/in_state condition passes (preemption: once a leaf's walk
// selects a transition, it stops searching further out). The result is
// deduplicated by transition identity and then filtered for
// cross-region conflicts: when two selected
// transitions would exit overlapping nodes, the one whose source has
// the lower Order wins.
func SelectMicrostep(in Input) ([]*model.TransitionDef, error) {
	leaves := activeLeaves(in.Config)

	seen := map[*model.TransitionDef]bool{}
	var selected []*model.TransitionDef

	for _, leaf := range leaves {
		t, err := selectForLeaf(in, leaf)
		if err != nil {
			return nil, err
		}
		if t == nil || seen[t] {
			continue
		}
		seen[t] = true
		selected = append(selected, t)
	}

	return resolveConflicts(in.Def, in.Config, selected), nil
}

func activeLeaves(cfg *configalg.Configuration) []*model.StateNode {
	var out []*model.StateNode
	for _, n := range cfg.NodesAsc() {
		if n.IsAtomicLeaf() {
			out = append(out, n)
		}
	}
	return out
}

// selectForLeaf performs the inner-to-outer walk for a single active
// leaf and returns the first enabled transition, or nil.
func selectForLeaf(in Input, leaf *model.StateNode) (*model.TransitionDef, error) {
	chain := innermostFirst(leaf)

	for _, node := range chain {
		for _, t := range node.Transitions {
			if !t.Matches(in.Event.Name) {
				continue
			}
			ok, err := evalGuard(in, t, leaf)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if t.InState != nil && !in.Config.Has(t.InState) {
				continue
			}
			return t, nil
		}
	}
	return nil, nil
}

func innermostFirst(leaf *model.StateNode) []*model.StateNode {
	anc := configalg.Ancestors(leaf) // root-first
	out := make([]*model.StateNode, 0, len(anc)+1)
	out = append(out, leaf)
	for i := len(anc) - 1; i >= 0; i-- {
		out = append(out, anc[i])
	}
	return out
}

func evalGuard(in Input, t *model.TransitionDef, leaf *model.StateNode) (bool, error) {
	meta := model.GuardMeta{Value: in.Value, SourceID: t.Source.ID}
	if ok, handled := t.Guard.Eval(in.Context, in.Event.Data, meta); handled {
		return ok, nil
	}
	if in.GuardResolver == nil {
		return false, scerr.Wrapf(scerr.ErrUnknownGuardRef, "guard %q on state %q", t.Guard.Type, t.Source.ID)
	}
	ok, err := in.GuardResolver(t.Guard, in.Context, in.Event.Data, meta)
	if err != nil {
		return false, &scerr.GuardFailure{
			GuardType: t.Guard.Type,
			EventName: in.Event.Name,
			SourceID:  t.Source.ID,
			Cause:     err,
		}
	}
	return ok, nil
}

// resolveConflicts discards transitions whose exit set intersects the
// exit set of an already-accepted transition with a lower source
// Order.
func resolveConflicts(def *model.Definition, cfg *configalg.Configuration, candidates []*model.TransitionDef) []*model.TransitionDef {
	ordered := append([]*model.TransitionDef{}, candidates...)
	configalg.SortTransitionsBySourceOrder(ordered)

	var accepted []*model.TransitionDef
	var acceptedExits [][]*model.StateNode

	for _, t := range ordered {
		domain := configalg.TransitionDomain(def.Root, t)
		exitSet := configalg.ExitSet(cfg, domain, t)
		conflict := false
		for _, prevExit := range acceptedExits {
			if intersects(exitSet, prevExit) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		accepted = append(accepted, t)
		acceptedExits = append(acceptedExits, exitSet)
	}
	return accepted
}

func intersects(a, b []*model.StateNode) bool {
	set := map[*model.StateNode]bool{}
	for _, n := range a {
		set[n] = true
	}
	for _, n := range b {
		if set[n] {
			return true
		}
	}
	return false
}
