package core

import (
	"context"
	"fmt"
	"reflect"

	"github.com/otaviog/rflow/internal/resource"
)

// ReturnSelLink selects the i-th element of an inner node's returned
// tuple/slice, used for multi-output nodes; a value that is not a slice
// or array is returned unchanged. Grounded on rflow/node.py's
// ReturnSelNodeLink.
type ReturnSelLink struct {
	inner       edge
	returnIndex int
}

func NewReturnSelLink(inner edge, i int) *ReturnSelLink {
	return &ReturnSelLink{inner: inner, returnIndex: i}
}

func (l *ReturnSelLink) Name() string { return fmt.Sprintf("%s[%d]", l.inner.Name(), l.returnIndex) }

func (l *ReturnSelLink) Update(ctx context.Context) error { return l.inner.Update(ctx) }

func (l *ReturnSelLink) IsDirty() bool { return l.inner.IsDirty() }

func (l *ReturnSelLink) GetResource() resource.Resource { return l.inner.GetResource() }

func (l *ReturnSelLink) Call(ctx context.Context, redo bool) (any, error) {
	v, err := l.inner.Call(ctx, redo)
	if err != nil {
		return nil, err
	}
	switch vv := v.(type) {
	case []any:
		return vv[l.returnIndex], nil
	default:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			return rv.Index(l.returnIndex).Interface(), nil
		}
		return v, nil
	}
}

// ResourceLink wraps a node's Resource as an edge in its own right: on
// Call, it runs the inner node for its side effect and returns the
// resource object. Grounded on rflow/node.py's ResourceNodeLink.
type ResourceLink struct {
	inner edge
}

func NewResourceLink(inner edge) *ResourceLink { return &ResourceLink{inner: inner} }

func (l *ResourceLink) Name() string { return l.inner.Name() + ".resource" }

func (l *ResourceLink) Update(ctx context.Context) error { return l.inner.Update(ctx) }

func (l *ResourceLink) IsDirty() bool { return l.inner.IsDirty() }

func (l *ResourceLink) GetResource() resource.Resource { return l.inner.GetResource() }

func (l *ResourceLink) Call(ctx context.Context, redo bool) (any, error) {
	if _, err := l.inner.Call(ctx, redo); err != nil {
		return nil, err
	}
	return l.inner.GetResource(), nil
}

// DependencyLink is a name placeholder for an ordering-only edge: it is
// never itself called, only compared by name. internal/viz does not
// draw it. Grounded on rflow/node.py's DependencyLink.
type DependencyLink struct {
	name string
}

func NewDependencyLink(name string) *DependencyLink { return &DependencyLink{name: name} }

func (d *DependencyLink) Name() string { return d.name }

// Equal compares against another DependencyLink or a plain string name,
// mirroring the original's __eq__ overload.
func (d *DependencyLink) Equal(other any) bool {
	switch o := other.(type) {
	case string:
		return d.name == o
	case *DependencyLink:
		return d.name == o.name
	default:
		return false
	}
}
