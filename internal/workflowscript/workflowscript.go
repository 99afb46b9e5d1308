// Package workflowscript discovers user-authored graph-definition
// procedures, the external collaborator described in §6 of the
// specification. Since Go has no dynamic source import the way Python's
// imp.load_source does (rflow/command.py's _importdir), graph-defining
// procedures register themselves explicitly via func init() in the
// user's workflow package, the direct analogue of the original's
// "@graph decorator scanned via inspect.getmembers" scheme.
package workflowscript

import (
	"fmt"
	"sort"
	"sync"

	"github.com/otaviog/rflow/internal/core"
	"github.com/otaviog/rflow/internal/rerrors"
)

// Definition is a named graph-building procedure: it populates an
// empty *core.Graph with nodes when invoked.
type Definition struct {
	Name string
	Func func(g *core.Graph)
}

var (
	mu          sync.Mutex
	definitions = map[string]Definition{}
)

// Register adds a graph definition to the process-wide registry. Meant
// to be called from a workflow package's func init(), mirroring the
// original's "@graph()" decorator marking a procedure for discovery.
func Register(name string, fn func(g *core.Graph)) {
	mu.Lock()
	defer mu.Unlock()
	definitions[name] = Definition{Name: name, Func: fn}
}

// Names returns all registered graph definition names, sorted.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(definitions))
	for n := range definitions {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Open returns the named graph, rooted at dir, building it from its
// registered definition if the registry (internal/core.Global) does not
// already hold a graph for (dir, name). Grounded on rflow/command.py's
// open_graph.
func Open(dir, name string) (*core.Graph, error) {
	if ok, err := core.Global.Exists(name, dir); err != nil {
		return nil, err
	} else if ok {
		return core.Global.GetOrCreate(name, dir, true, false)
	}

	mu.Lock()
	def, ok := definitions[name]
	mu.Unlock()
	if !ok {
		return nil, &rerrors.BindingError{
			Node: name,
			Msg:  fmt.Sprintf("graph %q not found in directory %q; available: %v", name, dir, Names()),
		}
	}

	g, err := core.Global.GetOrCreate(name, dir, false, false)
	if err != nil {
		return nil, err
	}
	def.Func(g)
	if err := g.CheckAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}
