package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/model"
)

// DefaultVisualizer renders a Definition as Graphviz DOT, clustering
// compound and parallel states and highlighting the active
// configuration, or as an indented JSON tree for tooling that wants
// the raw shape.
type DefaultVisualizer struct{}

func (v *DefaultVisualizer) ExportDOT(def *model.Definition, cfg *configalg.Configuration) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Statechart {\n  rankdir=LR;\n  node [shape=box, fontsize=10, style=rounded];\n  edge [fontsize=9];\n")
	renderNode(&buf, def.Root, cfg)
	renderTransitions(&buf, def.Root)
	buf.WriteString("}\n")
	return buf.String()
}

func (v *DefaultVisualizer) ExportJSON(def *model.Definition) ([]byte, error) {
	return json.MarshalIndent(docNodeOf(def.Root), "", "  ")
}

func renderNode(buf *bytes.Buffer, n *model.StateNode, cfg *configalg.Configuration) {
	active := cfg != nil && cfg.Has(n)
	if n.IsAtomicLeaf() {
		style := ""
		if active {
			style = " style=filled fillcolor=lightgreen"
		}
		fmt.Fprintf(buf, "  %q [label=%q%s];\n", n.ID, n.Key, style)
		return
	}
	clusterID := "cluster_" + n.ID
	style := ""
	if active {
		style = " style=filled fillcolor=lightyellow"
	}
	fmt.Fprintf(buf, "  subgraph %q {\n    label=%q;%s\n", clusterID, fmt.Sprintf("%s (%s)", n.Key, n.Type), style)
	for _, c := range n.ChildNodes() {
		renderNode(buf, c, cfg)
	}
	buf.WriteString("  }\n")
}

func renderTransitions(buf *bytes.Buffer, n *model.StateNode) {
	for _, t := range n.Transitions {
		for _, target := range t.Targets {
			fmt.Fprintf(buf, "  %q -> %q [label=%q];\n", n.ID, target.ID, t.EventPattern)
		}
	}
	for _, c := range n.ChildNodes() {
		renderTransitions(buf, c)
	}
}

// docNode is the JSON-friendly projection of a StateNode tree.
type docNode struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Initial  string     `json:"initial,omitempty"`
	Children []*docNode `json:"children,omitempty"`
}

func docNodeOf(n *model.StateNode) *docNode {
	d := &docNode{ID: n.ID, Type: string(n.Type), Initial: n.Initial}
	for _, c := range n.ChildNodes() {
		d.Children = append(d.Children, docNodeOf(c))
	}
	return d
}
