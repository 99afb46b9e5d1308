// Package hello is a minimal two-node workflow: one node produces a
// message, a second prints it. Grounded on rflow's doc/hello/workflow.py
// tutorial.
package hello

import (
	"context"
	"fmt"

	"github.com/otaviog/rflow/internal/core"
	"github.com/otaviog/rflow/internal/workflowscript"
)

func init() {
	workflowscript.Register("hello", build)
}

func build(g *core.Graph) {
	create, err := core.NewNode(core.NodeConfig{
		ArgNames: []string{"msg"},
		Doc:      "Returns its msg argument unchanged.",
		Evaluate: func(ctx context.Context, args core.Args) (any, error) {
			return args["msg"], nil
		},
	})
	if err != nil {
		panic(err)
	}
	if err := g.Attach("create", create); err != nil {
		panic(err)
	}
	if err := create.SetArg("msg", "Hello"); err != nil {
		panic(err)
	}

	print, err := core.NewNode(core.NodeConfig{
		ArgNames: []string{"msg"},
		Doc:      "Prints its msg argument.",
		Evaluate: func(ctx context.Context, args core.Args) (any, error) {
			fmt.Println(args["msg"])
			return nil, nil
		},
	})
	if err != nil {
		panic(err)
	}
	if err := g.Attach("print", print); err != nil {
		panic(err)
	}
	if err := print.SetArg("msg", create); err != nil {
		panic(err)
	}
}
