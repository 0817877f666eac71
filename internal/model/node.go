// Package model implements the Definition Model: the
// immutable tree of state nodes, transitions, and actions shared
// read-only by every running instance of a machine.
package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// StateType enumerates the kinds a StateNode can be.
type StateType string

const (
	Atomic   StateType = "atomic"
	Compound StateType = "compound"
	Parallel StateType = "parallel"
	History  StateType = "history"
	Final    StateType = "final"
)

// HistoryKind distinguishes shallow vs deep history nodes.
type HistoryKind string

const (
	HistoryKindNone    HistoryKind = ""
	HistoryKindShallow HistoryKind = "shallow"
	HistoryKindDeep    HistoryKind = "deep"
)

// InvocationDef is an opaque invoked-service definition; the transport
// and lifecycle of the invoked service are an external collaborator
// — the core only needs the id to emit done.invoke.<id> and
// error.platform.<id>.
type InvocationDef struct {
	ID  string
	Src string
}

// StateNode is an immutable node in the definition tree. Children are
// kept in an OrderedMap so that definition-time iteration (cache
// construction, DefinitionDocument export) is already in document
// order; the authoritative tie-break for runtime algorithms remains
// the Order field, assigned by a single pre-order DFS pass at build
// time (see build.go).
type StateNode struct {
	ID   string
	Key  string
	Path []string
	Type StateType
	Order int

	Initial string // child key, compound only

	HistoryKind   HistoryKind
	HistoryTarget *StateNode // default history target, history nodes only

	Entry []Action
	Exit  []Action

	Transitions []*TransitionDef // document order

	Invocations []InvocationDef

	Meta map[string]any
	Data any // final states only

	Parent   *StateNode
	Children *orderedmap.OrderedMap[string, *StateNode]
}

func newStateNode(key string, typ StateType) *StateNode {
	return &StateNode{
		Key:      key,
		Type:     typ,
		Children: orderedmap.New[string, *StateNode](),
	}
}

func (n *StateNode) IsAtomic() bool   { return n.Type == Atomic }
func (n *StateNode) IsCompound() bool { return n.Type == Compound }
func (n *StateNode) IsParallel() bool { return n.Type == Parallel }
func (n *StateNode) IsHistory() bool  { return n.Type == History }
func (n *StateNode) IsFinal() bool    { return n.Type == Final }

// IsAtomicLeaf reports whether n has no children at all — atomic and
// final nodes are always leaves; compound/parallel nodes never are.
func (n *StateNode) IsAtomicLeaf() bool {
	return n.Children == nil || n.Children.Len() == 0
}

// ChildKeys returns child keys in document order.
func (n *StateNode) ChildKeys() []string {
	if n.Children == nil {
		return nil
	}
	keys := make([]string, 0, n.Children.Len())
	for pair := n.Children.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// ChildNodes returns children in document order.
func (n *StateNode) ChildNodes() []*StateNode {
	if n.Children == nil {
		return nil
	}
	nodes := make([]*StateNode, 0, n.Children.Len())
	for pair := n.Children.Oldest(); pair != nil; pair = pair.Next() {
		nodes = append(nodes, pair.Value)
	}
	return nodes
}

// ChildByKey looks up a direct child by its local key.
func (n *StateNode) ChildByKey(key string) (*StateNode, bool) {
	if n.Children == nil {
		return nil, false
	}
	return n.Children.Get(key)
}

// InitialChild resolves the node's declared initial child, falling
// back to the first child in document order when Initial is unset.
// A compound node with no declared initial is not rejected at build
// time; it simply enters its first child.
func (n *StateNode) InitialChild() *StateNode {
	if n.Initial != "" {
		if c, ok := n.ChildByKey(n.Initial); ok {
			return c
		}
	}
	nodes := n.ChildNodes()
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (n *StateNode) addChild(c *StateNode) {
	c.Parent = n
	n.Children.Set(c.Key, c)
}

// DefinitionDocument is the normalized, JSON/YAML-serializable
// projection of a StateNode subtree: just enough structure for an
// embedder to reconstruct or display the machine's shape without
// access to the live, function-valued Definition tree.
type DefinitionDocument struct {
	ID          string                         `json:"id" yaml:"id"`
	Key         string                         `json:"key" yaml:"key"`
	Type        StateType                      `json:"type" yaml:"type"`
	Order       int                            `json:"order" yaml:"order"`
	Initial     string                         `json:"initial,omitempty" yaml:"initial,omitempty"`
	HistoryKind HistoryKind                    `json:"historyKind,omitempty" yaml:"historyKind,omitempty"`
	Events      []string                       `json:"events,omitempty" yaml:"events,omitempty"`
	Meta        map[string]any                 `json:"meta,omitempty" yaml:"meta,omitempty"`
	States      map[string]*DefinitionDocument `json:"states,omitempty" yaml:"states,omitempty"`
}

// Definition projects n and its descendants into a DefinitionDocument,
// the serializable form named by the Core API contract. Distinct from a
// Visualizer, which renders a live Configuration alongside the
// definition; this is definition shape only.
func (n *StateNode) Definition() *DefinitionDocument {
	doc := &DefinitionDocument{
		ID:          n.ID,
		Key:         n.Key,
		Type:        n.Type,
		Order:       n.Order,
		Initial:     n.Initial,
		HistoryKind: n.HistoryKind,
		Meta:        n.Meta,
	}
	seenEvent := map[string]bool{}
	for _, t := range n.Transitions {
		if t.EventPattern == Null || seenEvent[t.EventPattern] {
			continue
		}
		seenEvent[t.EventPattern] = true
		doc.Events = append(doc.Events, t.EventPattern)
	}
	for _, c := range n.ChildNodes() {
		if doc.States == nil {
			doc.States = map[string]*DefinitionDocument{}
		}
		doc.States[c.Key] = c.Definition()
	}
	return doc
}
