package viz

import (
	"context"
	"strings"
	"testing"

	"github.com/otaviog/rflow/internal/argstore"
	"github.com/otaviog/rflow/internal/core"
)

func TestRenderIncludesNodesAndArgumentEdges(t *testing.T) {
	dir := t.TempDir()
	store, err := argstore.Open(dir+"/.rflow.db", nil)
	if err != nil {
		t.Fatalf("argstore.Open: %v", err)
	}
	defer store.Close()
	g := core.NewGraph("viztest", dir, store)

	up, err := core.NewNode(core.NodeConfig{
		Evaluate: func(ctx context.Context, args core.Args) (any, error) { return 1, nil },
	})
	if err != nil {
		t.Fatalf("NewNode up: %v", err)
	}
	if err := g.Attach("up", up); err != nil {
		t.Fatalf("Attach up: %v", err)
	}

	down, err := core.NewNode(core.NodeConfig{
		ArgNames: []string{"x"},
		Evaluate: func(ctx context.Context, args core.Args) (any, error) { return args["x"], nil },
	})
	if err != nil {
		t.Fatalf("NewNode down: %v", err)
	}
	if err := g.Attach("down", down); err != nil {
		t.Fatalf("Attach down: %v", err)
	}
	if err := down.SetArg("x", up); err != nil {
		t.Fatalf("SetArg: %v", err)
	}

	dot := Render(g).String()
	for _, want := range []string{"up", "down", "x"} {
		if !strings.Contains(dot, want) {
			t.Errorf("expected rendered dot to mention %q, got:\n%s", want, dot)
		}
	}
}
