package model

import (
	"fmt"

	"github.com/arborio/statecraft/internal/scerr"
)

// Definition is the fully built, validated, immutable definition tree
// plus the lookup caches every other component treats as a pure
// function of this value.
type Definition struct {
	Root      *StateNode
	ByID      map[string]*StateNode
	Nodes     []*StateNode // indexed by Order
	Delimiter string
	Strict    bool
	Events    map[string]struct{} // declared event set, strict mode only
}

// NodeByID resolves an id to its node.
func (d *Definition) NodeByID(id string) (*StateNode, error) {
	n, ok := d.ByID[id]
	if !ok {
		return nil, scerr.Wrapf(scerr.ErrUnknownState, "state id %q", id)
	}
	return n, nil
}

// Finalize assigns document order and ids, validates the tree, and
// gives every history node without a default target its parent's
// initial child. Delayed (`after`) transitions are already desugared
// by the builder into plain transitions and Send/Cancel actions before
// Finalize runs. It is called once by
// the public Builder.Build and must not be invoked again afterward;
// the resulting Definition is shared read-only by every machine
// instance.
func Finalize(root *StateNode, delimiter string, strict bool, declaredEvents map[string]struct{}) (*Definition, error) {
	if delimiter == "" {
		delimiter = "."
	}
	d := &Definition{
		Root:      root,
		ByID:      make(map[string]*StateNode),
		Delimiter: delimiter,
		Strict:    strict,
		Events:    declaredEvents,
	}

	order := 0
	var walk func(n *StateNode) error
	walk = func(n *StateNode) error {
		n.Order = order
		order++
		if n.ID == "" {
			n.ID = joinPath(n.Path, delimiter)
		}
		if _, dup := d.ByID[n.ID]; dup {
			return scerr.Wrapf(scerr.ErrInvalidTarget, "duplicate state id %q", n.ID)
		}
		d.ByID[n.ID] = n

		switch n.Type {
		case Compound:
			if len(n.ChildNodes()) == 0 {
				return scerr.Wrapf(scerr.ErrInvalidInitial, "compound state %q has no children", n.ID)
			}
			if n.Initial != "" {
				if _, ok := n.ChildByKey(n.Initial); !ok {
					return scerr.Wrapf(scerr.ErrInvalidInitial, "compound state %q: initial %q not found among children", n.ID, n.Initial)
				}
			}
			// initial-less compound: accepted without error or warning; InitialChild falls back to the first child.
		case Parallel:
			if len(n.ChildNodes()) == 0 {
				return scerr.Wrapf(scerr.ErrInvalidInitial, "parallel state %q has no regions", n.ID)
			}
		}

		for _, t := range n.Transitions {
			t.Source = n
			for _, target := range t.Targets {
				if target == nil {
					return scerr.Wrapf(scerr.ErrInvalidTarget, "nil transition target on state %q", n.ID)
				}
			}
		}

		for _, child := range n.ChildNodes() {
			child.Path = append(append([]string{}, n.Path...), child.Key)
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	root.Path = []string{root.Key}
	if err := walk(root); err != nil {
		return nil, err
	}

	for _, n := range d.ByID {
		if n.IsHistory() && n.HistoryTarget == nil && n.Parent != nil {
			if def := n.Parent.InitialChild(); def != nil {
				n.HistoryTarget = def
			}
		}
	}

	d.Nodes = make([]*StateNode, order)
	for _, n := range d.ByID {
		d.Nodes[n.Order] = n
	}

	return d, nil
}

func joinPath(path []string, delimiter string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += delimiter
		}
		out += p
	}
	return out
}

// NewRoot creates the root StateNode of a definition under construction.
func NewRoot(key string, typ StateType) *StateNode {
	return newStateNode(key, typ)
}

// AddChild appends a new child node of the given type under parent and
// returns it, for use by the public fluent builder.
func AddChild(parent *StateNode, key string, typ StateType) *StateNode {
	c := newStateNode(key, typ)
	parent.addChild(c)
	return c
}

// String renders a node for debugging.
func (n *StateNode) String() string {
	return fmt.Sprintf("StateNode{id=%s type=%s order=%d}", n.ID, n.Type, n.Order)
}
