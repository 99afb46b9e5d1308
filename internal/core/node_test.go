package core

import (
	"context"
	"testing"

	"github.com/otaviog/rflow/internal/resource"
)

func mustAttach(t *testing.T, g *Graph, name string, n *Node) {
	t.Helper()
	if err := g.Attach(name, n); err != nil {
		t.Fatalf("Attach(%s): %v", name, err)
	}
}

func mustSetArg(t *testing.T, n *Node, name string, value any) {
	t.Helper()
	if err := n.SetArg(name, value); err != nil {
		t.Fatalf("SetArg(%s): %v", name, err)
	}
}

func TestCallIdempotentWithoutResource(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t, "idempotent")

	calls := 0
	n, err := NewNode(NodeConfig{
		ArgNames: []string{"x"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			calls++
			return args["x"].(int) * 2, nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	mustAttach(t, g, "double", n)
	mustSetArg(t, n, "x", 21)

	v1, err := n.Call(ctx, false)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v1 != 42 {
		t.Fatalf("expected 42, got %v", v1)
	}

	v2, err := n.Call(ctx, false)
	if err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if v2 != 42 {
		t.Fatalf("expected cached 42, got %v", v2)
	}
	if calls != 1 {
		t.Errorf("expected evaluate to run exactly once, ran %d times", calls)
	}
}

func TestCallRedoForcesReevaluation(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t, "redo")

	calls := 0
	n, err := NewNode(NodeConfig{
		ArgNames: []string{"x"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			calls++
			return args["x"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	mustAttach(t, g, "n", n)
	mustSetArg(t, n, "x", 1)

	if _, err := n.Call(ctx, false); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if _, err := n.Call(ctx, true); err != nil {
		t.Fatalf("Call redo: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 evaluations with redo=true, got %d", calls)
	}
}

func TestChangingArgumentDirtiesNode(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t, "dirty")

	calls := 0
	n, err := NewNode(NodeConfig{
		ArgNames: []string{"x"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			calls++
			return args["x"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	mustAttach(t, g, "n", n)
	mustSetArg(t, n, "x", 1)

	if _, err := n.Call(ctx, false); err != nil {
		t.Fatalf("Call: %v", err)
	}
	mustSetArg(t, n, "x", 2)
	if _, err := n.Call(ctx, false); err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected a changed argument to force re-evaluation, evaluated %d times", calls)
	}
}

func TestNonCollateralArgumentImmuneToDirtiness(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t, "noncollateral")

	calls := 0
	n, err := NewNode(NodeConfig{
		ArgNames:      []string{"x", "note"},
		NonCollateral: []string{"note"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			calls++
			return args["x"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	mustAttach(t, g, "n", n)
	mustSetArg(t, n, "x", 1)
	mustSetArg(t, n, "note", "v1")

	if _, err := n.Call(ctx, false); err != nil {
		t.Fatalf("Call: %v", err)
	}
	mustSetArg(t, n, "note", "v2")
	if _, err := n.Call(ctx, false); err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if calls != 1 {
		t.Errorf("changing a non_collateral argument should not dirty the node, evaluated %d times", calls)
	}
}

func TestUpstreamDirtyPropagatesToDownstream(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t, "upstream")

	upCalls, downCalls := 0, 0
	up, err := NewNode(NodeConfig{
		ArgNames: []string{"x"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			upCalls++
			return args["x"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode up: %v", err)
	}
	mustAttach(t, g, "up", up)
	mustSetArg(t, up, "x", 1)

	down, err := NewNode(NodeConfig{
		ArgNames: []string{"y"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			downCalls++
			return args["y"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode down: %v", err)
	}
	mustAttach(t, g, "down", down)
	mustSetArg(t, down, "y", up)

	if _, err := down.Call(ctx, false); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if upCalls != 1 || downCalls != 1 {
		t.Fatalf("expected one evaluation each on first call, got up=%d down=%d", upCalls, downCalls)
	}

	mustSetArg(t, up, "x", 2)
	if _, err := down.Call(ctx, false); err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if upCalls != 2 || downCalls != 2 {
		t.Errorf("upstream change should dirty downstream too, got up=%d down=%d", upCalls, downCalls)
	}
}

func TestClearErasesResourceAndSignature(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t, "clear")

	n, err := NewNode(NodeConfig{
		ArgNames: []string{"x"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			return args["x"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	mustAttach(t, g, "n", n)
	mustSetArg(t, n, "x", 1)
	if err := n.SetResource(resource.NewFSResource("out.bin", true)); err != nil {
		t.Fatalf("SetResource: %v", err)
	}

	if _, err := n.Call(ctx, false); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if err := n.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	blob, err := g.Store().GetSignature(ctx, g.Name(), "n")
	if err != nil {
		t.Fatalf("GetSignature: %v", err)
	}
	if len(blob) != 0 {
		t.Errorf("expected empty signature after Clear, got %+v", blob)
	}
}

func TestTouchPersistsSignatureWhenResourceMissing(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t, "touch-missing-resource")

	calls := 0
	n, err := NewNode(NodeConfig{
		ArgNames: []string{"x"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			calls++
			return args["x"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	mustAttach(t, g, "n", n)
	mustSetArg(t, n, "x", 1)
	if err := n.SetResource(resource.NewFSResource("out.bin", true)); err != nil {
		t.Fatalf("SetResource: %v", err)
	}

	// The resource has never been created, so Update's own-resource
	// check reports dirty and returns before building a signature.
	// Touch must still persist one instead of panicking.
	if err := n.Touch(ctx); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if calls != 0 {
		t.Errorf("Touch must not invoke evaluate, ran %d times", calls)
	}

	blob, err := g.Store().GetSignature(ctx, g.Name(), "n")
	if err != nil {
		t.Fatalf("GetSignature: %v", err)
	}
	if len(blob) == 0 {
		t.Error("expected Touch to persist a non-empty signature")
	}
}

func TestTouchPersistsSignatureWhenUpstreamDirty(t *testing.T) {
	ctx := context.Background()
	g := newTestGraph(t, "touch-upstream-dirty")

	up, err := NewNode(NodeConfig{
		ArgNames: []string{"x"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			return args["x"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode up: %v", err)
	}
	mustAttach(t, g, "up", up)
	mustSetArg(t, up, "x", 1)
	if err := up.SetResource(resource.NewFSResource("up.bin", true)); err != nil {
		t.Fatalf("SetResource: %v", err)
	}

	down, err := NewNode(NodeConfig{
		ArgNames: []string{"y"},
		Evaluate: func(ctx context.Context, args Args) (any, error) {
			return args["y"], nil
		},
	})
	if err != nil {
		t.Fatalf("NewNode down: %v", err)
	}
	mustAttach(t, g, "down", down)
	mustSetArg(t, down, "y", up)

	// down has never run, so its own signature is unset and its
	// upstream "up" is dirty — the other path through Update that
	// short-circuits before building a signature. Touching down runs
	// "up" (via bindCall); up's evaluate writes no up.bin, so down's
	// signature records a nil hash for "y", which still makes it
	// non-empty.
	if err := down.Touch(ctx); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	blob, err := g.Store().GetSignature(ctx, g.Name(), "down")
	if err != nil {
		t.Fatalf("GetSignature: %v", err)
	}
	if len(blob) == 0 {
		t.Error("expected Touch to persist a non-empty signature")
	}
}

func TestCallErrorsWhenNodeUnattached(t *testing.T) {
	ctx := context.Background()
	n, err := NewNode(NodeConfig{
		Evaluate: func(ctx context.Context, args Args) (any, error) { return nil, nil },
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	if _, err := n.Call(ctx, false); err == nil {
		t.Fatal("expected an error calling a node never attached to a graph")
	}
}
