// Package viz renders a graph as a Graphviz dot document, the external
// collaborator named in §1/§6 of the specification. Grounded on
// rflow/viz.py's dag2dot.
package viz

import (
	"fmt"

	"github.com/emicklei/dot"

	"github.com/otaviog/rflow/internal/core"
)

// idGen produces unique synthetic node IDs for auxiliary boxes (e.g.
// measurement nodes) that have no corresponding graph node, mirroring
// rflow/viz.py's _LinkIDGen counter-based generator.
type idGen struct{ n int }

func (g *idGen) next() string {
	g.n++
	return fmt.Sprintf("__viz%d", g.n)
}

// Render builds a dot.Graph for g: one box per node, a solid edge per
// argument binding labeled with the argument name (selector and
// resource links point at their underlying node's box), a dashed
// placeholder box for an upstream outside g, and a bold-dotted,
// arrowless edge to a "measurement" note box for each node. Explicit
// dependencies added with Node.Require are not drawn. Adapted from
// rflow/viz.py's dag2dot/_put_measurement.
func Render(g *core.Graph) *dot.Graph {
	out := dot.NewGraph(dot.Directed)
	out.Attr("rankdir", "LR")

	gen := &idGen{}
	dotNodes := make(map[string]dot.Node, len(g.NodeNames(false)))

	for _, name := range g.NodeNames(false) {
		n := g.Lookup(name)
		dn := out.Node(name).Box()
		dotNodes[name] = dn

		measID := gen.next()
		measNode := out.Node(measID).Attr("shape", "note").Label("measurement")
		out.Edge(dn, measNode).Attr("style", "bold,dotted").Attr("arrowhead", "none")
		_ = n
	}

	for _, name := range g.NodeNames(false) {
		n := g.Lookup(name)
		dn := dotNodes[name]
		for _, argName := range n.Args().Names() {
			val := n.Args().Get(argName)
			up, ok := val.(interface{ Name() string })
			if !ok {
				continue
			}
			upName := baseName(up.Name())
			upDot, known := dotNodes[upName]
			if !known {
				// Cross-graph edge: render a synthetic placeholder box,
				// mirroring the original's outgraph_nodes handling.
				upDot = out.Node(gen.next()).Attr("shape", "box").Attr("style", "dashed").Label(upName)
			}
			out.Edge(upDot, dn).Label(argName)
		}
	}

	return out
}

// baseName strips a return-selector or resource-link suffix
// ("name[0]"/"name.resource") down to the underlying node's name, so
// edges point at the real graph node box rather than a synthetic one.
func baseName(name string) string {
	for i, r := range name {
		if r == '[' || r == '.' {
			return name[:i]
		}
	}
	return name
}
