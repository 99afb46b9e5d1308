// Package nodes is a deliberately minimal illustration of third-party
// convenience nodes — shell commands, HTTP downloads, template
// expansion, archive extraction — which §1 of the specification names
// explicitly as out of scope for the core. Only ShellNode is built here,
// as a single runnable example that the node interface (internal/core)
// is usable by third parties without the core itself depending on
// process/HTTP/archive libraries it was never asked to support.
package nodes

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/otaviog/rflow/internal/core"
)

// NewShellNode builds a node whose evaluate runs an OS command and
// returns its combined stdout+stderr. Grounded on rflow/shell.py's
// Shell(Interface).
func NewShellNode(command string) (*core.Node, error) {
	return core.NewNode(core.NodeConfig{
		ArgNames: nil,
		Show:     true,
		Doc:      "Runs a shell command: " + command,
		Evaluate: func(ctx context.Context, _ core.Args) (any, error) {
			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			var buf bytes.Buffer
			cmd.Stdout = &buf
			cmd.Stderr = &buf
			if err := cmd.Run(); err != nil {
				return nil, err
			}
			return buf.String(), nil
		},
	})
}
