package core

import (
	"path/filepath"
	"testing"

	"github.com/otaviog/rflow/internal/argstore"
)

// newTestGraph builds an isolated graph rooted at a fresh temp directory,
// with its own signature store, so tests never share state.
func newTestGraph(t *testing.T, name string) *Graph {
	t.Helper()
	dir := t.TempDir()
	store, err := argstore.Open(filepath.Join(dir, ".rflow.db"), nil)
	if err != nil {
		t.Fatalf("argstore.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewGraph(name, dir, store)
}
