package core

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/otaviog/rflow/internal/argstore"
	"github.com/otaviog/rflow/internal/rerrors"
	"github.com/otaviog/rflow/internal/wd"
)

// signatureDBName is the on-disk database directory name, the Go
// successor of the original's ".workflow.lmdb" (Badger requires a
// directory, not a single file — see SPEC_FULL.md §6).
const signatureDBName = ".rflow.db"

// registryKey is (absolute_directory, graph_name), the registry's key
// shape. Grounded on rflow/core.py's UID class.
type registryKey struct {
	dir  string
	name string
}

// Registry is the process-wide map of (directory, name) -> Graph.
// Grounded on rflow/core.py's module-level _GRAPH_DICT and get_graph.
type Registry struct {
	mu             sync.Mutex
	graphs         map[registryKey]*Graph
	log            hclog.Logger
	dbPathOverride string
}

// Global is the default process-wide registry, analogous to the
// original's module-level _GRAPH_DICT.
var Global = NewRegistry(nil)

func NewRegistry(log hclog.Logger) *Registry {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Registry{graphs: make(map[registryKey]*Graph), log: log}
}

// SetCacheDBPath overrides the signature-store path used by every
// graph opened after this call, in place of the default
// "<workDir>/.rflow.db" layout. An empty path restores the default.
// Wired from internal/rconfig.Config.CacheDBPath (the --cache-db flag
// / RFLOW_CACHE_DB env fallback).
func (r *Registry) SetCacheDBPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dbPathOverride = path
}

// Exists reports whether (dir, name) is already registered.
func (r *Registry) Exists(name, dir string) (bool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.graphs[registryKey{dir: abs, name: name}]
	return ok, nil
}

// GetOrCreate returns the graph for (name, dir), honoring existing/
// overwrite semantics. existing=true and absent is an error.
// overwrite=true always replaces any prior entry.
func (r *Registry) GetOrCreate(name, dir string, existing, overwrite bool) (*Graph, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &rerrors.IOError{Op: "registry.GetOrCreate", Err: err}
	}
	key := registryKey{dir: abs, name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, found := r.graphs[key]
	if found && !overwrite {
		return g, nil
	}
	if existing && !found {
		return nil, &rerrors.BindingError{Node: name, Msg: fmt.Sprintf("graph %q not found in directory %q", name, abs)}
	}

	dbPath := filepath.Join(abs, signatureDBName)
	if r.dbPathOverride != "" {
		dbPath = r.dbPathOverride
	}
	store, err := argstore.Open(dbPath, r.log)
	if err != nil {
		return nil, err
	}
	g = NewGraph(name, abs, store)
	r.graphs[key] = g
	return g, nil
}

// Begin acquires the working directory for (name, dir), returning the
// graph and a restore function that must be deferred immediately so the
// previous working directory is restored on every exit path (success,
// error, or panic). Grounded on rflow/core.py's begin_graph
// contextmanager.
func (r *Registry) Begin(name, dir string) (*Graph, func() error, error) {
	g, err := r.GetOrCreate(name, dir, false, false)
	if err != nil {
		return nil, nil, err
	}
	restore, err := wd.Enter(g.WorkDir())
	if err != nil {
		return nil, nil, err
	}
	return g, restore, nil
}
