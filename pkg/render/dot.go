package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/skilltree/pkg/graph"
)

// pointsPerInch converts canvas pixels to Graphviz inches.
const pointsPerInch = 72.0

// Options configures DOT generation.
type Options struct {
	// Dark selects the dark theme.
	Dark bool
	// Selected nodes are drawn with a highlighted border.
	Selected []graph.NodeID
	// ShowIDs appends the node id to every label.
	ShowIDs bool
}

// ToDOT converts a store to Graphviz DOT with pinned node positions.
// Connections become undirected edges. Output is deterministic: nodes in
// store order, edges in creation order.
func ToDOT(s *graph.Store, opts Options) string {
	theme := ThemeFor(opts.Dark)
	selected := make(map[graph.NodeID]bool, len(opts.Selected))
	for _, id := range opts.Selected {
		selected[id] = true
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	fmt.Fprintf(&buf, "  bgcolor=%s;\n", quote(theme.Background))
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	fmt.Fprintf(&buf, "  node [shape=box, style=\"rounded,filled\", fixedsize=true, fontsize=12, fontname=\"Helvetica\", fillcolor=%s, color=%s, fontcolor=%s];\n",
		quote(theme.NodeFill), quote(theme.NodeBorder), quote(theme.Font))
	fmt.Fprintf(&buf, "  edge [color=%s, penwidth=2];\n", quote(theme.Edge))
	buf.WriteString("\n")

	for _, n := range s.Nodes() {
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeName(n.ID), strings.Join(nodeAttrs(n, theme, selected[n.ID], opts.ShowIDs), ", "))
	}

	buf.WriteString("\n")
	for _, c := range s.Connections() {
		fmt.Fprintf(&buf, "  %s -- %s;\n", nodeName(c.A), nodeName(c.B))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeName(id graph.NodeID) string {
	return "n" + id.String()
}

func nodeAttrs(n graph.Node, theme Theme, selected, showIDs bool) []string {
	label := n.Label
	if showIDs {
		label = fmt.Sprintf("%s\n#%d", label, n.ID)
	}
	c := n.Center()
	attrs := []string{
		"label=" + quote(label),
		fmt.Sprintf("pos=\"%g,%g!\"", c.X, -c.Y),
		fmt.Sprintf("width=%g", n.Size.Width/pointsPerInch),
		fmt.Sprintf("height=%g", n.Size.Height/pointsPerInch),
	}
	if n.Central {
		attrs = append(attrs, "fillcolor="+quote(theme.CentralFill), "fontsize=14")
	}
	if selected {
		attrs = append(attrs, "color="+quote(theme.Selected), "penwidth=3")
	}
	return attrs
}

// quote produces a DOT double-quoted string.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")
	return `"` + r.Replace(s) + `"`
}
