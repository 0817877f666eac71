package statecraft

import (
	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/model"
)

// State is the observable snapshot returned by InitialState and
// Transition: the resolved value, the context at rest, the event that
// produced it, and whether anything actually changed, plus the rest of
// the persisted-state record (history_value, actions, activities, meta,
// children, transitions).
type State struct {
	Value        *model.StateValue
	Context      model.Context
	Event        model.Event
	Changed      bool
	HistoryValue map[string]*model.HistoryValue // history node id -> recorded value
	Actions      []model.Action                 // emitted during the macrostep that produced this state
	Activities   map[string]bool                // activity id -> running
	Meta         map[string]any                 // state node id -> its Meta, for every active node that declares one
	Children     map[string]string              // invocation id -> src, for every active node's invocations
	Transitions  []*model.TransitionDef          // transitions fired during the macrostep that produced this state

	def *model.Definition
	cfg *configalg.Configuration
}

// Matches reports whether the state's value satisfies a dot-delimited
// partial path, e.g. "light.red" matches a value whose "light" region
// is currently in "red".
func (s *State) Matches(path string) bool {
	return s.Value.Matches(parsePartialValue(path, s.def.Delimiter))
}

// ToStrings flattens the value into one dot-path string per active
// leaf, sorted.
func (s *State) ToStrings() []string {
	return s.Value.ToStrings(s.def.Delimiter)
}

// NextEvents lists the distinct event names any currently active state
// (or one of its ancestors) declares a transition for. The result is a
// syntactic listing only: a guard may still reject the event at
// Transition time.
func (s *State) NextEvents() []string {
	seen := map[string]bool{}
	var out []string
	for _, leaf := range activeLeaves(s.cfg) {
		chain := append([]*model.StateNode{leaf}, configalg.Ancestors(leaf)...)
		for _, n := range chain {
			for _, t := range n.Transitions {
				if t.EventPattern == model.Null || seen[t.EventPattern] {
					continue
				}
				seen[t.EventPattern] = true
				out = append(out, t.EventPattern)
			}
		}
	}
	return out
}

// Can reports whether eventName appears in NextEvents.
func (s *State) Can(eventName string) bool {
	for _, e := range s.NextEvents() {
		if e == eventName || e == model.Wildcard {
			return true
		}
	}
	return false
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

// metaOf collects the Meta of every active node that declares one,
// keyed by state id, matching the persisted-state "meta" map.
func metaOf(cfg *configalg.Configuration) map[string]any {
	out := map[string]any{}
	for _, n := range cfg.NodesAsc() {
		if len(n.Meta) > 0 {
			out[n.ID] = n.Meta
		}
	}
	return out
}

// childrenOf collects every active node's invocations, keyed by
// invocation id, matching the persisted-state "children" map.
func childrenOf(cfg *configalg.Configuration) map[string]string {
	out := map[string]string{}
	for _, n := range cfg.NodesAsc() {
		for _, inv := range n.Invocations {
			out[inv.ID] = inv.Src
		}
	}
	return out
}

// parsePartialValue turns a dot-path like "light.red" into the nested
// StateValue {Children: {"light": {Leaf: "red"}}} that StateValue.Matches
// expects.
func parsePartialValue(path, delimiter string) *model.StateValue {
	return model.ParseDotPath(path, delimiter)
}

// ToStateValue reconstructs s.Value from its flattened ToStrings form,
// the round-trip counterpart `to_strings(value)` must reparse to an
// equivalent value through.
func (s *State) ToStateValue() *model.StateValue {
	return model.StateValueFromStrings(s.ToStrings(), s.def.Delimiter)
}
