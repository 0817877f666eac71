// Package resolve implements the Action Resolver:
// given the transition set a microstep selected, it computes the
// exit/entry sets, folds the canonical exit-then-transition-then-entry
// action list down to context mutations and an emittable action list,
// partitions Raise actions and done events into the internal event
// queue, and returns the next configuration, context and value.
package resolve

import (
	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/history"
	"github.com/arborio/statecraft/internal/model"
)

// Result is everything one microstep produced.
type Result struct {
	Context     model.Context
	Config      *configalg.Configuration
	Value       *model.StateValue
	Actions     []model.Action // emitted, Pure-expanded, Assign/Raise already removed
	Internal    []model.Event  // Raise and done-event targets, FIFO order
	ExitSet     []*model.StateNode
	EntrySet    []*model.StateNode
	Transitions []*model.TransitionDef
}

// Microstep computes one microstep from an already-selected,
// conflict-resolved transition set (selector.SelectMicrostep's
// output). transitions must be in source-Order ascending order, the
// order the selector returns them in.
func Microstep(
	def *model.Definition,
	cfg *configalg.Configuration,
	ctx model.Context,
	ev model.Event,
	transitions []*model.TransitionDef,
	hist *history.Store,
) *Result {
	if len(transitions) == 0 {
		return nil
	}

	resolver := hist.Resolver()

	exitSet := unionExit(cfg, def, transitions)
	entrySet := unionEntry(def, transitions, resolver)

	hist.RecordExit(cfg, exitSet)

	newCfg := cfg.Clone()
	for _, n := range exitSet {
		newCfg.Remove(n)
	}
	for _, n := range entrySet {
		newCfg.Add(n)
	}

	raw := assembleActions(exitSet, transitions, entrySet)
	expanded := expandPureOnce(raw, ctx, ev)

	nextCtx, emitted, internal := foldActions(expanded, ctx, ev)
	internal = append(internal, doneEvents(newCfg, entrySet)...)

	return &Result{
		Context:     nextCtx,
		Config:      newCfg,
		Value:       configalg.ValueOf(newCfg, def.Root),
		Actions:     emitted,
		Internal:    internal,
		ExitSet:     exitSet,
		EntrySet:    entrySet,
		Transitions: transitions,
	}
}

func unionExit(cfg *configalg.Configuration, def *model.Definition, transitions []*model.TransitionDef) []*model.StateNode {
	seen := map[*model.StateNode]bool{}
	var out []*model.StateNode
	for _, t := range transitions {
		domain := configalg.TransitionDomain(def.Root, t)
		for _, n := range configalg.ExitSet(cfg, domain, t) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	configalg.SortDesc(out)
	return out
}

func unionEntry(def *model.Definition, transitions []*model.TransitionDef, resolver configalg.HistoryResolver) []*model.StateNode {
	seen := map[*model.StateNode]bool{}
	var out []*model.StateNode
	for _, t := range transitions {
		domain := configalg.TransitionDomain(def.Root, t)
		for _, n := range configalg.EntrySet(domain, t, resolver) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	configalg.SortAsc(out)
	return out
}

// assembleActions builds the canonical ordering: every
// exited node's Exit actions (in exit order), then every selected
// transition's own Actions (in source-Order order), then every
// entered node's Entry actions (in entry order).
func assembleActions(exitSet []*model.StateNode, transitions []*model.TransitionDef, entrySet []*model.StateNode) []model.Action {
	var out []model.Action
	for _, n := range exitSet {
		out = append(out, n.Exit...)
	}
	for _, t := range transitions {
		out = append(out, t.Actions...)
	}
	for _, n := range entrySet {
		out = append(out, n.Entry...)
	}
	return out
}

// expandPureOnce splices each Pure action's result in place of itself.
// The substitution happens exactly once per original Pure action;
// actions a Pure call returns are not themselves re-expanded even if
// they are also Pure.
func expandPureOnce(actions []model.Action, ctx model.Context, ev model.Event) []model.Action {
	var out []model.Action
	for _, a := range actions {
		if a.Kind == model.ActionPure && a.Pure != nil {
			out = append(out, a.Pure(ctx, ev)...)
			continue
		}
		out = append(out, a)
	}
	return out
}

// foldActions sequentially folds Assign actions into context and
// splits Raise actions into the internal queue, leaving every other
// action kind (Send, Cancel, Log, Start, Stop, Invoke, Custom) in
// emitted order for the caller's ActionRunner.
func foldActions(actions []model.Action, ctx model.Context, ev model.Event) (model.Context, []model.Action, []model.Event) {
	var emitted []model.Action
	var internal []model.Event
	cur := ctx
	for _, a := range actions {
		switch a.Kind {
		case model.ActionAssign:
			if a.Assign != nil {
				cur = a.Assign(cur, ev)
			}
		case model.ActionRaise:
			internal = append(internal, model.Event{Name: a.RaiseEvent})
		default:
			emitted = append(emitted, a)
		}
	}
	return cur, emitted, internal
}

// doneEvents emits done.state.<parentID> for every Final node just
// entered, and cascades done.state.<parallelID> up through any chain
// of enclosing Parallel ancestors that are now fully in final as a
// result.
func doneEvents(cfg *configalg.Configuration, entrySet []*model.StateNode) []model.Event {
	var out []model.Event
	for _, n := range entrySet {
		if !n.IsFinal() || n.Parent == nil {
			continue
		}
		out = append(out, model.Event{Name: "done.state." + n.Parent.ID})
		p := n.Parent
		for p.Parent != nil && p.Parent.IsParallel() {
			parallel := p.Parent
			if !configalg.IsInFinalState(cfg, parallel) {
				break
			}
			out = append(out, model.Event{Name: "done.state." + parallel.ID})
			p = parallel
		}
	}
	return out
}
