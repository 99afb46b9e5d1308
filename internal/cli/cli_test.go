package cli_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/otaviog/rflow/internal/cli"
	"github.com/otaviog/rflow/internal/core"
	"github.com/otaviog/rflow/internal/workflowscript"
)

func TestHashCommandPrintsGraphStructuralHash(t *testing.T) {
	workflowscript.Register("cli-test-hash-graph", func(g *core.Graph) {
		n, err := core.NewNode(core.NodeConfig{
			Evaluate: func(ctx context.Context, args core.Args) (any, error) { return 1, nil },
		})
		if err != nil {
			t.Fatalf("NewNode: %v", err)
		}
		if err := g.Attach("n", n); err != nil {
			t.Fatalf("Attach: %v", err)
		}
	})

	var stdout bytes.Buffer
	root := cli.NewRootCommand(cli.Options{Stdout: &stdout})
	dir := t.TempDir()
	root.SetArgs([]string{"hash", "--graph", "cli-test-hash-graph", "--dir", dir})

	if err := root.Execute(); err != nil {
		t.Fatalf("hash: %v", err)
	}
	if stdout.Len() == 0 {
		t.Error("expected the hash command to print a non-empty hash")
	}
}

func TestHashCommandErrorsWithoutGraphFlag(t *testing.T) {
	var stdout bytes.Buffer
	root := cli.NewRootCommand(cli.Options{Stdout: &stdout})
	root.SetArgs([]string{"hash"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected hash without --graph to fail")
	}
}
