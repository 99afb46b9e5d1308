package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/otaviog/rflow/internal/argstore"
	"github.com/otaviog/rflow/internal/rerrors"
)

// Graph is a named ordered collection of nodes rooted at a working
// directory, owning a signature store keyed by (graph_name, node_name).
// Grounded on rflow/core.py's Graph class.
type Graph struct {
	name    string
	workDir string
	store   *argstore.Store

	nodes    []*Node
	byName   map[string]*Node
	inFlight map[string]bool // defensive DFS cycle check, see checkNoCycle
}

// NewGraph constructs a graph rooted at workDir that uses the given,
// already opened signature store (Registry.GetOrCreate opens it at
// "<workDir>/.rflow.db" unless a cache DB path override is set).
func NewGraph(name, workDir string, store *argstore.Store) *Graph {
	return &Graph{
		name:     name,
		workDir:  workDir,
		store:    store,
		byName:   make(map[string]*Node),
		inFlight: make(map[string]bool),
	}
}

func (g *Graph) Name() string           { return g.name }
func (g *Graph) WorkDir() string        { return g.workDir }
func (g *Graph) Store() *argstore.Store { return g.store }

// Attach adds a node to the graph under name. Attaching is one-time:
// the node's graph/name are set on first assignment only, mirroring the
// original's "_add_node dedups by identity" behavior — attaching the
// same *Node pointer under the same name again is a no-op, but a
// different node under an already-used name, or a node already attached
// elsewhere, is a SchemaError.
func (g *Graph) Attach(name string, n *Node) error {
	if existing, ok := g.byName[name]; ok {
		if existing == n {
			return nil
		}
		return &rerrors.SchemaError{Field: name, Msg: "duplicate node name in graph", Line: n.line}
	}
	if n.graph != nil {
		return &rerrors.SchemaError{Field: name, Msg: fmt.Sprintf("node already attached as %q", n.name), Line: n.line}
	}
	n.setGraph(g, name)
	g.byName[name] = n
	g.nodes = append(g.nodes, n)
	return nil
}

// Lookup returns the node registered under name, or nil.
func (g *Graph) Lookup(name string) *Node { return g.byName[name] }

// NodeNames returns node names in attachment order. When filterShow is
// true, only nodes with Show()==true and names not starting with "_"
// are included, mirroring get_node_names(filter_show=True).
func (g *Graph) NodeNames(filterShow bool) []string {
	out := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		if filterShow && (!n.show || strings.HasPrefix(n.name, "_")) {
			continue
		}
		out = append(out, n.name)
	}
	return out
}

// Nodes returns every attached node, in attachment order, unfiltered by
// name or Show() — used by internal/cli to apply a process-wide Shell
// to a freshly opened graph.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// ClearCache resets every node's in-memory value to the uninitialized
// sentinel; persisted state is untouched. Used between CLI invocations
// when the process reuses a graph.
func (g *Graph) ClearCache() {
	for _, n := range g.nodes {
		n.ClearCacheValue()
	}
}

// Subgraph is a scoped view over a parent graph that prefixes every
// attached node's name. Grounded on rflow/core.py's Subgraph class.
type Subgraph struct {
	parent *Graph
	prefix string
}

// Prefix returns a scoped view whose Attach delegates to the parent
// graph with prefix+name.
func (g *Graph) Prefix(prefix string) *Subgraph { return &Subgraph{parent: g, prefix: prefix} }

func (s *Subgraph) Attach(name string, n *Node) error { return s.parent.Attach(s.prefix+name, n) }

func (s *Subgraph) Lookup(name string) *Node { return s.parent.Lookup(s.prefix + name) }

// checkNoCycle performs the defensive mark-in-progress DFS recommended
// by §9 of the specification (the graph is acyclic by construction, so
// this only guards against programmer error wiring a node's own
// upstream chain back into itself before a Call). Grounded on the
// teacher's internal/graph/validate.go white/gray/black coloring.
func (g *Graph) checkNoCycle(n *Node) error {
	if g.inFlight[n.name] {
		return &rerrors.SchemaError{Field: n.name, Msg: "cycle detected in node dependency graph"}
	}
	g.inFlight[n.name] = true
	defer delete(g.inFlight, n.name)

	for _, name := range n.args.Names() {
		val := n.args.Get(name)
		if up, ok := val.(*Node); ok {
			if err := g.checkNoCycle(up); err != nil {
				return err
			}
		}
	}
	for _, dep := range n.dependencies {
		if up, ok := dep.(*Node); ok {
			if err := g.checkNoCycle(up); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckAcyclic runs the defensive cycle check from every attached node.
func (g *Graph) CheckAcyclic() error {
	for _, n := range g.nodes {
		if err := g.checkNoCycle(n); err != nil {
			return err
		}
	}
	return nil
}

// Hash computes a structural hash of the graph's current node/edge
// shape, used by the "rflow <graph> hash" CLI surface. Grounded on the
// teacher's internal/graph/hash.go ComputeHash, generalized from
// hashing a normalized JSON document to hashing the live node/edge
// structure directly since there is no JSON document in this design.
func (g *Graph) Hash() (string, error) {
	names := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		names = append(names, n.name)
	}
	sort.Strings(names)

	type edgeDesc struct {
		From, Name string
	}
	edges := make([]edgeDesc, 0)
	for _, n := range g.nodes {
		for _, argName := range n.args.Names() {
			val := n.args.Get(argName)
			if up, ok := val.(edge); ok {
				edges = append(edges, edgeDesc{From: n.name, Name: argName + "->" + up.Name()})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].Name < edges[j].Name
	})

	h, err := hashstructure.Hash(struct {
		Name  string
		Nodes []string
		Edges []edgeDesc
	}{Name: g.name, Nodes: names, Edges: edges}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h), nil
}
