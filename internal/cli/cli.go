// Package cli implements the `rflow` command-line front end, the
// external collaborator described in §6 of the specification
// (subcommands run|clean|touch|help|viz-dag|hash over a named
// graph/node).
// Grounded on rflow/command.py's _run_main/_clean_main/_touch_main/
// _help_main/_viz_main for command semantics, and on the teacher's
// internal/cli/sw/cli.go for exit-code taxonomy and flag discipline —
// realized with cobra rather than the teacher's stdlib flag.FlagSet,
// since the dynamic per-graph user-argument flags (sourced from
// internal/userarg) need a flag set built per invocation, which cobra
// supports natively.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/otaviog/rflow/internal/core"
	"github.com/otaviog/rflow/internal/rconfig"
	"github.com/otaviog/rflow/internal/rerrors"
	"github.com/otaviog/rflow/internal/ui"
	"github.com/otaviog/rflow/internal/userarg"
	"github.com/otaviog/rflow/internal/viz"
	"github.com/otaviog/rflow/internal/workflowscript"
)

// Exit codes, adopted from the teacher's internal/cli/sw/cli.go taxonomy
// and mapped onto the specification's §7 error kinds.
const (
	ExitSuccess          = 0
	ExitSchemaOrBinding  = 1
	ExitArgOrSystemError = 2
	ExitUserError        = 3
)

// Options configures command construction: output streams and the
// shared user-argument context (userarg.Global unless overridden for
// tests).
type Options struct {
	Stdout  io.Writer
	Stderr  io.Writer
	UserCtx *userarg.Context
	Log     hclog.Logger
}

func (o *Options) fill() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.UserCtx == nil {
		o.UserCtx = userarg.Global
	}
	if o.Log == nil {
		o.Log = hclog.NewNullLogger()
	}
}

// NewRootCommand builds the `rflow` cobra command tree.
func NewRootCommand(opts Options) *cobra.Command {
	opts.fill()

	var graphName, workDir, cacheDBPath string
	var debug, color, quiet bool

	root := &cobra.Command{
		Use:           "rflow",
		Short:         "rflow workflow runner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&graphName, "graph", "", "graph name to operate on")
	root.PersistentFlags().StringVar(&workDir, "dir", ".", "directory containing the workflow definition")
	root.PersistentFlags().StringVar(&cacheDBPath, "cache-db", "", "override the signature store path (or set RFLOW_CACHE_DB)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "show full tracebacks (or set RFLOW_DEBUG=1)")
	root.PersistentFlags().BoolVar(&color, "color", false, "colorize progress output (or set RFLOW_COLOR=1)")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress progress output (or set RFLOW_QUIET=1)")

	openGraph := func() (*core.Graph, error) {
		if graphName == "" {
			return nil, fmt.Errorf("--graph is required")
		}
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return nil, err
		}
		cfg := rconfig.Load(cacheDBPath, debug, color, quiet)
		if cfg.CacheDBPath != "" {
			core.Global.SetCacheDBPath(cfg.CacheDBPath)
		}
		g, err := workflowscript.Open(abs, graphName)
		if err != nil {
			return nil, err
		}
		// A workflow definition has no access to CLI flags, so the
		// process-wide Shell built here from rconfig.Config is applied
		// after the fact onto every node the definition constructed.
		var shell *ui.Shell
		if !cfg.Quiet {
			shell = ui.NewShell(opts.Stdout, cfg.Color)
		}
		for _, n := range g.Nodes() {
			n.SetShell(shell)
		}
		return g, nil
	}

	root.AddCommand(
		newRunCmd(opts, openGraph),
		newCleanCmd(opts, openGraph),
		newTouchCmd(opts, openGraph),
		newHelpCmd(opts, openGraph),
		newVizCmd(opts, openGraph),
		newHashCmd(opts, openGraph),
	)
	return root
}

func newRunCmd(opts Options, openGraph func() (*core.Graph, error)) *cobra.Command {
	var redo bool
	cmd := &cobra.Command{
		Use:   "run <node>",
		Short: "Evaluate or load a node to produce its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph()
			if err != nil {
				return err
			}
			n := g.Lookup(args[0])
			if n == nil {
				return &rerrors.SchemaError{Field: args[0], Msg: "no such node"}
			}
			_, err = n.Call(context.Background(), redo)
			return err
		},
	}
	cmd.Flags().BoolVarP(&redo, "redo", "r", false, "redo the node whatever even if it's updated")
	registerUserArgFlags(cmd, opts.UserCtx)
	return cmd
}

func newCleanCmd(opts Options, openGraph func() (*core.Graph, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "clean <node>",
		Short: "Erase a node's resource and forget its persisted signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph()
			if err != nil {
				return err
			}
			n := g.Lookup(args[0])
			if n == nil {
				return &rerrors.SchemaError{Field: args[0], Msg: "no such node"}
			}
			return n.Clear(context.Background())
		},
	}
}

func newTouchCmd(opts Options, openGraph func() (*core.Graph, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "touch <node>",
		Short: "Mark a node clean without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph()
			if err != nil {
				return err
			}
			n := g.Lookup(args[0])
			if n == nil {
				return &rerrors.SchemaError{Field: args[0], Msg: "no such node"}
			}
			return n.Touch(context.Background())
		},
	}
	registerUserArgFlags(cmd, opts.UserCtx)
	return cmd
}

func newHelpCmd(opts Options, openGraph func() (*core.Graph, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "help <node>",
		Short: "Print a node's documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph()
			if err != nil {
				return err
			}
			n := g.Lookup(args[0])
			if n == nil {
				return &rerrors.SchemaError{Field: args[0], Msg: "no such node"}
			}
			fmt.Fprintln(opts.Stdout, n.Doc())
			return nil
		},
	}
}

func newVizCmd(opts Options, openGraph func() (*core.Graph, error)) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "viz-dag",
		Short: "Render the graph to a Graphviz dot file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph()
			if err != nil {
				return err
			}
			dotGraph := viz.Render(g)
			if output == "" {
				fmt.Fprintln(opts.Stdout, dotGraph.String())
				return nil
			}
			return os.WriteFile(output, []byte(dotGraph.String()), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write dot output to this path instead of stdout")
	return cmd
}

func newHashCmd(opts Options, openGraph func() (*core.Graph, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print a structural hash of the graph's current node/edge shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph()
			if err != nil {
				return err
			}
			h, err := g.Hash()
			if err != nil {
				return err
			}
			fmt.Fprintln(opts.Stdout, h)
			return nil
		},
	}
}

// registerUserArgFlags binds every descriptor currently registered with
// ctx as a cobra flag on cmd, and records parsed values back into ctx
// once the command runs — the Go realization of rflow/command.py's
// _run_main registering USER_ARGS_CONTEXT.user_arguments onto an
// argparse parser.
func registerUserArgFlags(cmd *cobra.Command, ctx *userarg.Context) {
	values := map[string]*string{}
	for _, d := range ctx.Descriptors() {
		def := ""
		if s, ok := d.Default.(string); ok {
			def = s
		}
		p := new(string)
		cmd.Flags().StringVar(p, d.Name, def, d.Help)
		values[d.Name] = p
	}
	prevRunE := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		parsed := make(map[string]any, len(values))
		for name, p := range values {
			parsed[name] = *p
		}
		ctx.RegisterParsed(parsed)
		return prevRunE(cmd, args)
	}
}

// ExitCodeFor maps an error returned by command execution onto the
// specification's §7 error-kind-driven exit code taxonomy.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var schemaErr *rerrors.SchemaError
	var bindingErr *rerrors.BindingError
	if errors.As(err, &schemaErr) || errors.As(err, &bindingErr) {
		return ExitSchemaOrBinding
	}
	var userErr *rerrors.UserError
	if errors.As(err, &userErr) {
		return ExitUserError
	}
	return ExitArgOrSystemError
}
