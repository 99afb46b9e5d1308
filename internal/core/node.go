// Package core implements the node lifecycle state machine (C4), the
// link-node adapters (C7), the user-argument leaf node (C8), the graph
// (C5), and the graph registry (C6). These five components are kept in
// one Go package because they are exactly as tightly coupled in the
// original implementation: rflow's core.py and node.py are two files of
// the same Python package, not independent modules — Node reaches
// directly into Graph's signature store and Graph holds a live node
// list it mutates on attachment. Splitting them into separate Go
// packages would force an import cycle or a parallel interface
// hierarchy with no benefit; this file and graph.go/links.go/
// registry.go/userarg_node.go instead mirror the original's flat
// package layout.
package core

import (
	"context"
	"fmt"

	"github.com/otaviog/rflow/internal/argstore"
	"github.com/otaviog/rflow/internal/argument"
	"github.com/otaviog/rflow/internal/rerrors"
	"github.com/otaviog/rflow/internal/resource"
	"github.com/otaviog/rflow/internal/ui"
	"github.com/otaviog/rflow/internal/wd"
)

// Args is the resolved-value bag an EvaluateFunc/LoadFunc receives:
// node-typed edges have already been recursively Call()-ed, link
// adapters resolved, and literal edges passed through unchanged. Go has
// no run-time introspection of a function's parameter list (unlike
// Python's inspect.getfullargspec, which the original leans on in
// interface.py), so this repo's node API takes an explicit ordered
// parameter-name list at construction instead of inferring it.
type Args map[string]any

// Get returns args[name], or argument.Uninit if absent.
func (a Args) Get(name string) any {
	if v, ok := a[name]; ok {
		return v
	}
	return argument.Uninit
}

// EvaluateFunc runs a node's full computation.
type EvaluateFunc func(ctx context.Context, args Args) (any, error)

// LoadFunc reconstructs a node's value from its existing resource
// without recomputation.
type LoadFunc func(ctx context.Context, args Args) (any, error)

// edge is the interface satisfied by Node and the link adapters
// (ReturnSelLink, ResourceLink): anything that may be assigned as an
// argument value and participates in the dirtiness/signature algorithm.
type edge interface {
	Call(ctx context.Context, redo bool) (any, error)
	Update(ctx context.Context) error
	IsDirty() bool
	GetResource() resource.Resource
	Name() string
}

// Node is a stateful unit of computation: inputs, an optional resource,
// dirty tracking, and evaluate/load dispatch. Grounded on
// rflow/node.py's Node class in its entirety.
type Node struct {
	name  string
	graph *Graph
	doc   string
	line  rerrors.LineInfo

	value    any
	res      resource.Resource
	dirty    bool
	everRun  bool
	show     bool
	eraseResourceOnFail bool

	args          *argument.Namespace
	nonCollateral map[string]bool
	dependencies  []edge

	evaluateFunc EvaluateFunc
	loadFunc     LoadFunc
	loadArgList  []string

	curSignature  *argument.Signature
	prevSignature *argument.Signature
	sigDiff       map[string]argument.ArgDiff

	shell  *ui.Shell
	policy ui.TracebackPolicy
}

// NodeConfig bundles the construction-time inputs for NewNode.
type NodeConfig struct {
	ArgNames             []string
	Defaults             map[string]any
	NonCollateral         []string
	Evaluate             EvaluateFunc
	Load                 LoadFunc
	LoadArgList          []string
	Doc                  string
	Show                 bool
	EraseResourceOnFail  bool
	Shell                *ui.Shell
	Policy               ui.TracebackPolicy
}

// NewNode constructs a detached node (graph is nil until Attach). It
// validates the C4 invariant that load's parameter names are a subset
// of evaluate's, the Go realization of rflow/interface.py's
// hasmethod(self, 'load') + argspec-subset check.
func NewNode(cfg NodeConfig) (*Node, error) {
	line := rerrors.CallerLineInfo(1)
	declared := make(map[string]bool, len(cfg.ArgNames))
	for _, n := range cfg.ArgNames {
		declared[n] = true
	}
	for _, n := range cfg.LoadArgList {
		if n != "resource" && !declared[n] {
			return nil, &rerrors.SchemaError{
				Field: n,
				Msg:   "load's parameter names must be a subset of evaluate's",
				Line:  line,
			}
		}
	}
	nc := make(map[string]bool, len(cfg.NonCollateral))
	for _, n := range cfg.NonCollateral {
		nc[n] = true
	}
	n := &Node{
		value:               argument.Uninit,
		args:                argument.NewNamespace(cfg.ArgNames, cfg.Defaults),
		nonCollateral:       nc,
		evaluateFunc:        cfg.Evaluate,
		loadFunc:            cfg.Load,
		loadArgList:         cfg.LoadArgList,
		doc:                 cfg.Doc,
		show:                cfg.Show,
		eraseResourceOnFail: cfg.EraseResourceOnFail,
		shell:               cfg.Shell,
		policy:              cfg.Policy,
		line:                line,
		dirty:               true,
	}
	if n.policy == nil {
		n.policy = ui.ReturnPolicy{}
	}
	return n, nil
}

func (n *Node) Name() string { return n.name }

// GraphName implements ui.NodeView.
func (n *Node) GraphName() string {
	if n.graph == nil {
		return ""
	}
	return n.graph.Name()
}

// NodeName implements ui.NodeView.
func (n *Node) NodeName() string { return n.name }

func (n *Node) Doc() string { return n.doc }

func (n *Node) Show() bool { return n.show }

func (n *Node) Args() *argument.Namespace { return n.args }

// SetArg assigns value to one of the node's declared argument slots,
// enforcing §4.3's name-check and argument-ability check. Assigning to
// "resource" also mirrors the value onto the node's Resource, per the
// base spec's ArgNamespace.resource description.
func (n *Node) SetArg(name string, value any) error {
	if name == "resource" {
		r, ok := value.(resource.Resource)
		if !ok && value != nil {
			return &rerrors.SchemaError{Field: "resource", Msg: "must be a Resource", Line: n.line}
		}
		n.res = r
	}
	if err := n.args.Set(name, value, n.line); err != nil {
		return err
	}
	return nil
}

// SetResource attaches a resource directly (equivalent to SetArg("resource", r)).
func (n *Node) SetResource(r resource.Resource) error {
	return n.SetArg("resource", r)
}

func (n *Node) GetResource() resource.Resource { return n.res }

// Require adds an ordering-only dependency: other must be clean before
// Call evaluates this node, but its value is not consumed and does not
// enter the signature.
func (n *Node) Require(other edge) { n.dependencies = append(n.dependencies, other) }

func (n *Node) IsDirty() bool { return n.dirty }

// SetShell overrides the progress reporter used during Call/Touch/Clear.
// A workflow definition has no access to CLI flags, so internal/cli
// applies the process-wide Shell built from internal/rconfig.Config
// onto every node of a graph it opens, after the definition has already
// constructed them with none.
func (n *Node) SetShell(s *ui.Shell) { n.shell = s }

// SetPolicy overrides the traceback policy applied to UserErrors raised
// by this node, for the same reason as SetShell. A nil policy resets to
// the ReturnPolicy default.
func (n *Node) SetPolicy(p ui.TracebackPolicy) {
	if p == nil {
		p = ui.ReturnPolicy{}
	}
	n.policy = p
}

// setGraph is called exactly once, by Graph.Attach.
func (n *Node) setGraph(g *Graph, name string) {
	n.graph = g
	n.name = name
}

// ClearCacheValue resets the in-memory value to Uninit, leaving
// persisted state untouched. Used by Graph.ClearCache.
func (n *Node) ClearCacheValue() { n.value = argument.Uninit }

func (n *Node) checkRunnable() error {
	if n.graph == nil {
		return &rerrors.SchemaError{Field: n.name, Msg: "node added to no graph at call time", Line: n.line}
	}
	return nil
}

func (n *Node) isLoadable(ctx context.Context) (bool, error) {
	if n.loadFunc == nil {
		return false, nil
	}
	if n.res == nil {
		return false, &rerrors.BindingError{Node: n.name, Msg: "load declared without a resource", Line: n.line}
	}
	restore, err := wd.Enter(n.graph.WorkDir())
	if err != nil {
		return false, err
	}
	defer restore()
	return n.res.Exists(ctx)
}

// Update refreshes the dirty flag: the §4.5.2 dirtiness algorithm. It
// short-circuits as soon as dirtiness is settled (own resource missing,
// or an upstream edge dirty) without ever building a signature — in
// those cases n.curSignature is left stale or nil. Callers that need a
// signature to persist must use buildSignature instead of reading
// n.curSignature; see persistSignature.
func (n *Node) Update(ctx context.Context) error {
	n.dirty = false

	if n.res != nil {
		restore, err := wd.Enter(n.graph.WorkDir())
		if err != nil {
			return err
		}
		exists, err := n.res.Exists(ctx)
		restore()
		if err != nil {
			return err
		}
		if !exists {
			n.dirty = true
			return nil
		}
	}

	for _, name := range n.args.Names() {
		if n.nonCollateral[name] {
			continue
		}
		val := n.args.Get(name)
		if val == argument.Uninit {
			continue
		}
		if e, ok := val.(edge); ok {
			if err := e.Update(ctx); err != nil {
				return err
			}
			if e.IsDirty() {
				n.dirty = true
				return nil
			}
		}
	}

	sig, err := n.buildSignature(ctx)
	if err != nil {
		return err
	}
	n.curSignature = sig
	blob, err := n.graph.Store().GetSignature(ctx, n.graph.Name(), n.name)
	if err != nil {
		return err
	}
	n.prevSignature = blobToSignature(blob)
	n.sigDiff = argument.Diff(n.prevSignature, sig)
	n.dirty = len(n.sigDiff) > 0
	return nil
}

// buildSignature computes the node's current signature unconditionally
// from its bound argument values: literal arguments are recorded
// verbatim, and edge-typed arguments contribute their upstream
// resource's hash when one exists. Unlike Update, it never short-
// circuits on dirtiness, so it is safe to call whenever a signature
// needs to be persisted — after a successful evaluate, or from Touch —
// regardless of which path through Update last ran. Grounded on
// rflow/node.py's _update_signature, which is likewise called only
// after evaluate (or at the end of touch) and recomputes fresh from
// post-bind call_arg_values rather than reusing whatever update() left
// behind.
func (n *Node) buildSignature(ctx context.Context) (*argument.Signature, error) {
	sig := argument.NewSignature()
	for _, name := range n.args.Names() {
		if n.nonCollateral[name] {
			continue
		}
		val := n.args.Get(name)
		if val == argument.Uninit {
			continue
		}
		if e, ok := val.(edge); ok {
			if r := e.GetResource(); r != nil {
				restore, err := wd.Enter(n.graph.WorkDir())
				if err != nil {
					return nil, err
				}
				h, err := r.Hash(ctx)
				restore()
				if err != nil {
					return nil, err
				}
				sig.Set(name, h)
			}
			continue
		}
		sig.Set(name, val)
	}
	return sig, nil
}

func blobToSignature(blob argstore.Blob) *argument.Signature {
	sig := argument.NewSignature()
	for k, v := range blob {
		sig.Set(k, v)
	}
	return sig
}

func signatureToBlob(sig *argument.Signature) argstore.Blob {
	blob := make(argstore.Blob, len(sig.Values))
	for k, v := range sig.Values {
		blob[k] = v
	}
	return blob
}

// persistSignature recomputes the signature fresh via buildSignature
// rather than trusting n.curSignature, which Update leaves nil or stale
// whenever it short-circuited instead of reaching its own signature
// build (see Update's doc comment). Called only after a successful
// evaluate or from Touch, when any upstream edges this node depends on
// have already been run; an upstream resource that still does not exist
// contributes a nil hash.
func (n *Node) persistSignature(ctx context.Context) error {
	sig, err := n.buildSignature(ctx)
	if err != nil {
		return err
	}
	n.curSignature = sig
	return n.graph.Store().PutSignature(ctx, n.graph.Name(), n.name, signatureToBlob(sig))
}

// bindCall resolves the subset of declared argument names into their
// call-time values: literal edges pass through, node-typed edges are
// recursively Call()-ed. Grounded on rflow/node.py's _bind_call.
func (n *Node) bindCall(ctx context.Context, names []string) (Args, error) {
	out := make(Args, len(names))
	for _, name := range names {
		val := n.args.Get(name)
		if e, ok := val.(edge); ok {
			v, err := e.Call(ctx, false)
			if err != nil {
				return nil, err
			}
			out[name] = v
			continue
		}
		out[name] = val
	}
	return out, nil
}

func (n *Node) checkBound(names []string) error {
	if missing, ok := n.args.AllBound(names); !ok {
		return &rerrors.BindingError{Node: n.name, Msg: fmt.Sprintf("unbound argument %q", missing), Line: n.line}
	}
	return nil
}

// Call produces the node's value, evaluating or loading as needed.
// Reentrant: a second Call with no changes returns the cached value
// without doing work. Grounded on rflow/node.py's Node.call.
func (n *Node) Call(ctx context.Context, redo bool) (any, error) {
	if err := n.checkRunnable(); err != nil {
		return nil, err
	}
	loadable, err := n.isLoadable(ctx)
	if err != nil {
		return nil, err
	}
	if err := n.Update(ctx); err != nil {
		return nil, err
	}

	isDirty := n.dirty || redo

	if !isDirty && n.value != argument.Uninit {
		return n.value, nil
	}

	if !isDirty && loadable {
		if err := n.checkBound(n.loadArgList); err != nil {
			return nil, err
		}
		args, err := n.bindCall(ctx, n.loadArgList)
		if err != nil {
			return nil, err
		}
		restore, err := wd.Enter(n.graph.WorkDir())
		if err != nil {
			return nil, err
		}
		defer restore()

		if n.shell != nil {
			n.shell.ExecutingLoad(n)
		}
		value, err := n.loadFunc(ctx, args)
		if err != nil {
			return nil, n.onUserError(err)
		}
		n.value = value
		if n.shell != nil {
			n.shell.DoneLoad(n)
		}
		return value, nil
	}

	// Evaluation path.
	if err := n.checkBound(n.args.Names()); err != nil {
		return nil, err
	}
	args, err := n.bindCall(ctx, n.args.Names())
	if err != nil {
		return nil, err
	}
	for _, dep := range n.dependencies {
		if dep.IsDirty() {
			if _, err := dep.Call(ctx, false); err != nil {
				return nil, err
			}
		}
	}

	restore, err := wd.Enter(n.graph.WorkDir())
	if err != nil {
		return nil, err
	}
	defer restore()

	// Clearing the measurement is a start-of-run convention: it is only
	// cleared on the evaluate path, never on load, so GetMeasurement
	// after a load still returns the last persisted dictionary (see
	// SPEC_FULL.md's "measurement dictionary semantics" decision).
	if err := n.graph.Store().SetMeasurement(ctx, n.graph.Name(), n.name, argstore.Blob{}); err != nil {
		return nil, err
	}
	if n.res != nil && !n.res.Rewritable() {
		if err := n.res.Erase(ctx); err != nil {
			return nil, err
		}
	}

	if n.shell != nil {
		n.shell.ExecutingEvaluate(n)
	}
	value, err := n.evaluateFunc(ctx, args)
	if err != nil {
		if n.eraseResourceOnFail && n.res != nil {
			_ = n.res.Erase(ctx)
		}
		return nil, n.onUserError(err)
	}
	n.value = value
	n.everRun = true
	if n.shell != nil {
		n.shell.DoneEvaluate(n)
	}
	if err := n.persistSignature(ctx); err != nil {
		return nil, err
	}
	return value, nil
}

func (n *Node) onUserError(err error) error {
	ue := &rerrors.UserError{Node: n.name, Err: err}
	if n.shell != nil {
		n.shell.ErrorOccurred(n, err.Error())
	}
	return n.policy.Handle(ue)
}

// Touch runs Update then persists the current signature as if an
// evaluation had succeeded, without running the user's evaluate
// function. Used to mark a node clean after an out-of-band change.
func (n *Node) Touch(ctx context.Context) error {
	if err := n.checkRunnable(); err != nil {
		return err
	}
	if err := n.Update(ctx); err != nil {
		return err
	}
	if n.shell != nil {
		n.shell.ExecutingTouch(n)
	}
	if _, err := n.bindCall(ctx, n.args.Names()); err != nil {
		return err
	}
	if err := n.persistSignature(ctx); err != nil {
		return err
	}
	if n.shell != nil {
		n.shell.DoneTouch(n)
	}
	return nil
}

// Clear erases the resource (if any) and removes the persisted
// signature and measurement.
func (n *Node) Clear(ctx context.Context) error {
	if err := n.checkRunnable(); err != nil {
		return err
	}
	if n.res != nil {
		restore, err := wd.Enter(n.graph.WorkDir())
		if err != nil {
			return err
		}
		err = n.res.Erase(ctx)
		restore()
		if err != nil {
			return err
		}
	}
	if err := n.graph.Store().Clear(ctx, n.graph.Name(), n.name); err != nil {
		return err
	}
	n.value = argument.Uninit
	return nil
}

// SaveMeasurement reports a dictionary of metrics for this node.
func (n *Node) SaveMeasurement(ctx context.Context, meas map[string]any) error {
	return n.graph.Store().SetMeasurement(ctx, n.graph.Name(), n.name, argstore.Blob(meas))
}

// GetMeasurement returns the last persisted measurement dictionary,
// regardless of whether the node's last successful call evaluated or
// loaded (see SPEC_FULL.md's open-question decision).
func (n *Node) GetMeasurement(ctx context.Context) (map[string]any, error) {
	blob, err := n.graph.Store().GetMeasurement(ctx, n.graph.Name(), n.name)
	return map[string]any(blob), err
}

// Index returns a ReturnSelLink selecting the i-th element of this
// node's value when it is a multi-output tuple/slice.
func (n *Node) Index(i int) *ReturnSelLink { return NewReturnSelLink(n, i) }

// Resource returns a ResourceLink exposing the node's resource as an
// edge in its own right, running the node for its side effect first.
func (n *Node) Resource() *ResourceLink { return NewResourceLink(n) }
