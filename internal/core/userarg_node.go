package core

import (
	"context"
	"fmt"

	"github.com/otaviog/rflow/internal/rerrors"
	"github.com/otaviog/rflow/internal/resource"
	"github.com/otaviog/rflow/internal/userarg"
)

// UserArgNode is a leaf node whose value is injected by the CLI at run
// time. It registers itself against a process-wide userarg.Context on
// construction and declares dirty unconditionally: its value is
// authoritative per invocation and never cached in the signature store.
// Grounded on rflow/userargument.py's UserArgument class.
type UserArgNode struct {
	name string
	ctx  *userarg.Context
}

// NewUserArgNode registers a CLI-flag descriptor and returns the node
// that resolves to its parsed value at Call time. Use userarg.Global
// unless a test wants an isolated context.
func NewUserArgNode(ctx *userarg.Context, d userarg.Descriptor) *UserArgNode {
	if ctx == nil {
		ctx = userarg.Global
	}
	key := ctx.Add(d)
	return &UserArgNode{name: key, ctx: ctx}
}

func (u *UserArgNode) Name() string { return u.name }

// Update is a no-op: a user-argument node's dirtiness never depends on
// the signature store.
func (u *UserArgNode) Update(context.Context) error { return nil }

// IsDirty is always true.
func (u *UserArgNode) IsDirty() bool { return true }

func (u *UserArgNode) GetResource() resource.Resource { return nil }

// Call returns the value recorded for this argument by the most recent
// RegisterParsed. It errors whenever no value was recorded, whether or
// not the descriptor is Required; the descriptor's Default is not
// consulted here (internal/cli records every registered flag's value,
// defaults included, before a command runs).
func (u *UserArgNode) Call(_ context.Context, _ bool) (any, error) {
	v, ok := u.ctx.Get(u.name)
	if !ok {
		return nil, &rerrors.BindingError{Node: u.name, Msg: fmt.Sprintf("required user argument %q was not provided", u.name)}
	}
	return v, nil
}
