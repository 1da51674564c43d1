package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/comalice/pumpchart/internal/primitives"
)

// DefaultVisualizer renders chart descriptions for Graphviz.
type DefaultVisualizer struct{}

// ExportDOT generates Graphviz DOT source for the chart. States on the
// path to any of the current leaf paths are highlighted.
func (v *DefaultVisualizer) ExportDOT(config primitives.MachineConfig, current []string) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `digraph %q {
  rankdir=LR;
  compound=true;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`, config.ID)

	if config.Root != nil {
		renderState(&buf, config.Root, activeStates(config.Root.ID, current), "  ")
	}

	for _, edge := range collectEdges(config) {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", edge.From, edge.To, edge.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the chart description to JSON.
func (v *DefaultVisualizer) ExportJSON(config primitives.MachineConfig) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

// activeStates returns every current path and all of its ancestors,
// including the root.
func activeStates(root string, current []string) map[string]bool {
	active := make(map[string]bool)
	if len(current) > 0 {
		active[root] = true
	}
	for _, path := range current {
		for i := range path {
			if path[i] == '.' {
				active[path[:i]] = true
			}
		}
		active[path] = true
	}
	return active
}

// Edge is one transition between two state paths.
type Edge struct {
	From  string
	To    string
	Label string
}

// collectEdges collects every transition in pre-order.
func collectEdges(config primitives.MachineConfig) []Edge {
	var edges []Edge
	if config.Root == nil {
		return edges
	}
	config.Root.Walk(func(s *primitives.StateConfig) bool {
		for _, t := range s.Transitions {
			edges = append(edges, Edge{From: s.ID, To: t.Target, Label: t.Label()})
		}
		return true
	})
	return edges
}

func clusterName(id string) string {
	return "cluster_" + strings.NewReplacer(".", "_", "-", "_").Replace(id)
}

// renderState recursively renders composite states as clusters and leaves
// as nodes.
func renderState(buf *bytes.Buffer, state *primitives.StateConfig, active map[string]bool, indent string) {
	if len(state.Children) == 0 {
		style := ""
		if active[state.ID] {
			style = " style=\"rounded,filled\" fillcolor=lightgreen"
		}
		fmt.Fprintf(buf, "%s%q [label=%q%s];\n", indent, state.ID, state.Name, style)
		return
	}

	fmt.Fprintf(buf, "%ssubgraph %s {\n", indent, clusterName(state.ID))
	inner := indent + "  "
	fmt.Fprintf(buf, "%slabel=%q;\n", inner, fmt.Sprintf("%s (%s)", state.Name, state.Type))
	if state.Type == primitives.And {
		fmt.Fprintf(buf, "%sstyle=dashed;\n", inner)
	}
	if active[state.ID] {
		fmt.Fprintf(buf, "%scolor=orange;\n", inner)
	}

	// Anchor node so transitions can start and end at the composite.
	fmt.Fprintf(buf, "%s%q [label=%q shape=ellipse];\n", inner, state.ID, state.Name)

	for _, child := range state.Children {
		renderState(buf, child, active, inner)
	}

	fmt.Fprintf(buf, "%s}\n", indent)
}
