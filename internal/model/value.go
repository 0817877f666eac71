package model

import (
	"sort"
	"strings"
)

// StateValue is the recursive observable shape of a configuration
//: either a single leaf key, or a mapping from
// child key to StateValue for compound/parallel nodes.
type StateValue struct {
	Leaf     string
	Children map[string]*StateValue // nil when Leaf is set
}

// NewLeafValue builds a leaf StateValue.
func NewLeafValue(key string) *StateValue {
	return &StateValue{Leaf: key}
}

// NewCompoundValue builds a compound/parallel StateValue from named
// children.
func NewCompoundValue(children map[string]*StateValue) *StateValue {
	return &StateValue{Children: children}
}

// IsLeaf reports whether v is a single-key leaf value.
func (v *StateValue) IsLeaf() bool {
	return v != nil && v.Children == nil
}

// Equal performs a structural comparison.
func (v *StateValue) Equal(o *StateValue) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.IsLeaf() != o.IsLeaf() {
		return false
	}
	if v.IsLeaf() {
		return v.Leaf == o.Leaf
	}
	if len(v.Children) != len(o.Children) {
		return false
	}
	for k, cv := range v.Children {
		ov, ok := o.Children[k]
		if !ok || !cv.Equal(ov) {
			return false
		}
	}
	return true
}

// ToStrings flattens the value into dot-path strings per leaf,
// matching the Core API contract's State.to_strings(delimiter).
func (v *StateValue) ToStrings(delimiter string) []string {
	if v == nil {
		return nil
	}
	var out []string
	v.collectStrings(nil, delimiter, &out)
	sort.Strings(out)
	return out
}

func (v *StateValue) collectStrings(prefix []string, delimiter string, out *[]string) {
	if v.IsLeaf() {
		path := append(append([]string{}, prefix...), v.Leaf)
		*out = append(*out, strings.Join(path, delimiter))
		return
	}
	for key, child := range v.Children {
		child.collectStrings(append(prefix, key), delimiter, out)
	}
}

// Matches reports whether v satisfies the partial value `partial`:
// every key present in partial must be present in v with a matching
// (recursively partial) sub-value. A leaf partial matches if v's
// top-level leaf equals it, or if partial names a key path that
// resolves within v's nested children.
func (v *StateValue) Matches(partial *StateValue) bool {
	if partial == nil {
		return true
	}
	if partial.IsLeaf() {
		if v.IsLeaf() {
			return v.Leaf == partial.Leaf
		}
		// leaf partial against a compound value: true if any region is in that state,
		// or if the compound's single relevant region's leaf equals it.
		for _, child := range v.Children {
			if child.Matches(partial) {
				return true
			}
		}
		return false
	}
	if v.IsLeaf() {
		return false
	}
	for key, psub := range partial.Children {
		cv, ok := v.Children[key]
		if !ok || !cv.Matches(psub) {
			return false
		}
	}
	return true
}

// HistoryValue records, per node, what was last active beneath it
//.
type HistoryValue struct {
	Current  *StateValue
	Children map[string]*HistoryValue
}

// ParseDotPath turns a single delimiter-joined path like "light.red"
// into the nested StateValue {Children: {"light": {Leaf: "red"}}} that
// StateValue.Matches expects as a partial value.
func ParseDotPath(path, delimiter string) *StateValue {
	parts := strings.Split(path, delimiter)
	v := NewLeafValue(parts[len(parts)-1])
	for i := len(parts) - 2; i >= 0; i-- {
		v = NewCompoundValue(map[string]*StateValue{parts[i]: v})
	}
	return v
}

// StateValueFromStrings reconstructs a StateValue from the flattened
// per-leaf dot-paths ToStrings produces — the inverse of ToStrings,
// needed to round-trip a value through its string form. A single path
// parses the same as ParseDotPath; multiple paths (one per active leaf
// of a parallel configuration) are merged, with paths sharing a prefix
// collapsing into siblings under that prefix.
func StateValueFromStrings(paths []string, delimiter string) *StateValue {
	if len(paths) == 0 {
		return nil
	}
	var merged *StateValue
	for _, p := range paths {
		merged = mergeStateValues(merged, ParseDotPath(p, delimiter))
	}
	return merged
}

// mergeStateValues unions two StateValues built from disjoint per-leaf
// paths of the same overall value: compound children maps are merged
// key-wise, recursing where both sides name the same key (a shared
// parallel-region prefix). A leaf on either side is returned as-is.
func mergeStateValues(a, b *StateValue) *StateValue {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.IsLeaf() || b.IsLeaf() {
		return a
	}
	children := make(map[string]*StateValue, len(a.Children)+len(b.Children))
	for k, v := range a.Children {
		children[k] = v
	}
	for k, v := range b.Children {
		if existing, ok := children[k]; ok {
			children[k] = mergeStateValues(existing, v)
		} else {
			children[k] = v
		}
	}
	return NewCompoundValue(children)
}
