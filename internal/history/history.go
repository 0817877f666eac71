// Package history implements shallow and deep history-state recording
// and restoration. A Store records, for every history
// pseudostate whose containing compound or parallel region is
// exited, the configuration that was active beneath that region just
// before the exit — and hands back a configalg.HistoryResolver bound
// to those recordings for the Configuration Algebra to consult on the
// next entry into that region.
package history

import (
	"sync"

	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/model"
)

// Store is safe for concurrent reads alongside a single writer per
// macrostep, matching how the interpreter serializes Transition calls
// but still allows a Visualizer or Persister to read history snapshots
// between macrosteps.
type Store struct {
	mu      sync.RWMutex
	def     *model.Definition
	shallow map[string]string   // history node ID -> recorded direct child ID
	deep    map[string][]string // history node ID -> recorded leaf IDs under the region
}

// NewStore creates an empty history store over def.
func NewStore(def *model.Definition) *Store {
	return &Store{
		def:     def,
		shallow: make(map[string]string),
		deep:    make(map[string][]string),
	}
}

// RecordExit inspects every node in exiting (the exit set of the
// microstep just performed, in whatever order) and, for each one that
// has a History child, records the configuration cfg held active
// beneath it just before these exits were applied. cfg must be read
// before the exit set is removed from the live configuration.
func (s *Store) RecordExit(cfg *configalg.Configuration, exiting []*model.StateNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range exiting {
		for _, child := range n.ChildNodes() {
			if !child.IsHistory() {
				continue
			}
			if child.HistoryKind == model.HistoryKindDeep {
				var leaves []string
				for _, leaf := range configalg.LeafDescendants(n) {
					if cfg.Has(leaf) {
						leaves = append(leaves, leaf.ID)
					}
				}
				if len(leaves) > 0 {
					s.deep[child.ID] = leaves
				}
				continue
			}
			for _, c := range n.ChildNodes() {
				if c.IsHistory() {
					continue
				}
				if cfg.Has(c) {
					s.shallow[child.ID] = c.ID
					break
				}
			}
		}
	}
}

// Clear discards any recorded configuration for the given history
// node id, reverting it to its default target on the next entry.
func (s *Store) Clear(historyNodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shallow, historyNodeID)
	delete(s.deep, historyNodeID)
}

// Resolver returns a configalg.HistoryResolver bound to this store.
// Shallow history resolves to the recorded direct child, which still
// needs its own InitialDescendants expanded if it is itself compound
// or parallel. Deep history resolves to the full recorded leaf set
// together with the ancestor chain down to each leaf, already
// complete and needing no further expansion. A history node with
// nothing recorded yet falls back to its default target.
func (s *Store) Resolver() configalg.HistoryResolver {
	return func(h *model.StateNode) ([]*model.StateNode, bool) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		if h.HistoryKind == model.HistoryKindDeep {
			if ids, ok := s.deep[h.ID]; ok && len(ids) > 0 {
				return s.deepChain(h, ids), false
			}
		} else {
			if id, ok := s.shallow[h.ID]; ok {
				if n, err := s.def.NodeByID(id); err == nil {
					return []*model.StateNode{n}, true
				}
			}
		}
		if h.HistoryTarget != nil {
			return []*model.StateNode{h.HistoryTarget}, true
		}
		return nil, false
	}
}

// Value snapshots every currently recorded history entry as a map
// keyed by history node id, matching the persisted-state
// "history_value" field. A shallow entry's Current is the restored
// child's leaf value; a deep entry's Current is the full subtree value
// reconstructed from the recorded leaf set.
func (s *Store) Value() map[string]*model.HistoryValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]*model.HistoryValue{}
	for id, childID := range s.shallow {
		if n, err := s.def.NodeByID(childID); err == nil {
			out[id] = &model.HistoryValue{Current: model.NewLeafValue(n.Key)}
		}
	}
	for id, leafIDs := range s.deep {
		h, err := s.def.NodeByID(id)
		if err != nil {
			continue
		}
		out[id] = &model.HistoryValue{Current: s.leafSetValue(h, leafIDs)}
	}
	return out
}

// leafSetValue reconstructs the StateValue of h's parent region from a
// recorded deep leaf-id set, by re-adding each leaf's ancestor chain
// (down to h's parent) into a scratch Configuration and reading it back
// with configalg.ValueOf.
func (s *Store) leafSetValue(h *model.StateNode, leafIDs []string) *model.StateValue {
	cfg := configalg.NewConfiguration(s.def)
	for _, id := range leafIDs {
		leaf, err := s.def.NodeByID(id)
		if err != nil {
			continue
		}
		for _, a := range configalg.AncestorsIncl(leaf) {
			if a == h.Parent || configalg.IsProperDescendant(a, h.Parent) {
				cfg.Add(a)
			}
		}
	}
	return configalg.ValueOf(cfg, h.Parent)
}

// Resolve expands a partial StateValue into one fully consistent with
// def: a missing compound child fills in with the compound's initial
// child, recursively; a missing parallel region fills in with that
// region's own initial subtree. This is the counterpart to
// configalg.GetConfiguration, operating on the observable StateValue
// instead of a live Configuration.
func Resolve(def *model.Definition, partial *model.StateValue) *model.StateValue {
	return resolveValue(def.Root, partial)
}

func resolveValue(n *model.StateNode, partial *model.StateValue) *model.StateValue {
	switch n.Type {
	case model.Parallel:
		children := map[string]*model.StateValue{}
		for _, region := range n.ChildNodes() {
			if region.IsHistory() {
				continue
			}
			var sub *model.StateValue
			if partial != nil && !partial.IsLeaf() {
				sub = partial.Children[region.Key]
			}
			children[region.Key] = resolveValue(region, sub)
		}
		return model.NewCompoundValue(children)
	case model.Compound:
		child, childPartial := resolveCompoundChild(n, partial)
		if child == nil {
			return model.NewLeafValue(n.Key)
		}
		if child.IsAtomicLeaf() {
			return model.NewLeafValue(child.Key)
		}
		return model.NewCompoundValue(map[string]*model.StateValue{child.Key: resolveValue(child, childPartial)})
	default:
		return model.NewLeafValue(n.Key)
	}
}

// resolveCompoundChild picks the child partial names (as a bare leaf
// key, or as the sole key of a nested partial) when it actually exists
// among n's children, falling back to n's initial child otherwise.
func resolveCompoundChild(n *model.StateNode, partial *model.StateValue) (*model.StateNode, *model.StateValue) {
	if partial != nil {
		if partial.IsLeaf() {
			if c, ok := n.ChildByKey(partial.Leaf); ok {
				return c, nil
			}
		} else if len(partial.Children) == 1 {
			for k, v := range partial.Children {
				if c, ok := n.ChildByKey(k); ok {
					return c, v
				}
			}
		}
	}
	return n.InitialChild(), nil
}

// deepChain expands a recorded leaf-id set into every node strictly
// between h's parent and each leaf, inclusive of the leaf, in
// document order, deduplicated by the caller's entry-set builder.
func (s *Store) deepChain(h *model.StateNode, ids []string) []*model.StateNode {
	var out []*model.StateNode
	for _, id := range ids {
		leaf, err := s.def.NodeByID(id)
		if err != nil {
			continue
		}
		for _, a := range configalg.AncestorsIncl(leaf) {
			if configalg.IsProperDescendant(a, h.Parent) {
				out = append(out, a)
			}
		}
	}
	configalg.SortAsc(out)
	return out
}
