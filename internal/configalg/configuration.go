// Package configalg implements the Configuration Algebra:
// operations on sets of active state nodes — ancestors, descendants,
// LCCA, entry/exit computation — all expressed over a Configuration
// backed by a bitset indexed by StateNode.Order for cheap membership
// tests and ordered iteration.
package configalg

import (
	"sort"

	"github.com/willf/bitset"

	"github.com/arborio/statecraft/internal/model"
)

// Configuration is the unordered set of active StateNodes, with a
// deterministic ordered view derived from StateNode.Order.
type Configuration struct {
	def  *model.Definition
	bits *bitset.BitSet
}

// NewConfiguration creates an empty configuration over def.
func NewConfiguration(def *model.Definition) *Configuration {
	return &Configuration{def: def, bits: bitset.New(uint(len(def.Nodes)))}
}

// Clone returns an independent copy.
func (c *Configuration) Clone() *Configuration {
	return &Configuration{def: c.def, bits: c.bits.Clone()}
}

// Has reports whether n is active.
func (c *Configuration) Has(n *model.StateNode) bool {
	return c.bits.Test(uint(n.Order))
}

// Add marks n active.
func (c *Configuration) Add(n *model.StateNode) {
	c.bits.Set(uint(n.Order))
}

// Remove marks n inactive.
func (c *Configuration) Remove(n *model.StateNode) {
	c.bits.Clear(uint(n.Order))
}

// Len returns the number of active nodes.
func (c *Configuration) Len() int {
	return int(c.bits.Count())
}

// NodesAsc returns active nodes ordered by Order ascending.
func (c *Configuration) NodesAsc() []*model.StateNode {
	out := make([]*model.StateNode, 0, c.Len())
	for i, e := c.bits.NextSet(0); e; i, e = c.bits.NextSet(i + 1) {
		out = append(out, c.def.Nodes[i])
	}
	return out
}

// NodesDesc returns active nodes ordered by Order descending.
func (c *Configuration) NodesDesc() []*model.StateNode {
	asc := c.NodesAsc()
	out := make([]*model.StateNode, len(asc))
	for i, n := range asc {
		out[len(asc)-1-i] = n
	}
	return out
}

// SortAsc sorts an arbitrary node slice by Order ascending (entry-set order).
func SortAsc(nodes []*model.StateNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
}

// SortDesc sorts an arbitrary node slice by Order descending (exit-set order).
func SortDesc(nodes []*model.StateNode) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Order > nodes[j].Order })
}

// SortTransitionsBySourceOrder sorts transitions by their Source
// node's Order ascending, the tie-break used for cross-region
// conflict resolution.
func SortTransitionsBySourceOrder(ts []*model.TransitionDef) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Source.Order < ts[j].Source.Order })
}
