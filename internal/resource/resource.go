// Package resource implements the abstract Resource contract (C2):
// existence test, erase, and an opaque hash/version token, plus the
// filesystem, multi and nil variants. Grounded on rflow/resource.py.
package resource

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
)

// Token is an opaque, comparable version marker. A nil Token means the
// resource does not exist. Only equality of Tokens is meaningful to the
// engine — the concrete bytes are not interpreted.
type Token []byte

// Equal reports whether two tokens represent the same version. Two nil
// tokens are never equal (both mean "absent").
func (t Token) Equal(other Token) bool {
	if t == nil || other == nil {
		return false
	}
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Resource is a durable, externally observable artifact produced by a
// node. Invariant: Exists() == true implies Hash() != nil.
type Resource interface {
	Exists(ctx context.Context) (bool, error)
	Erase(ctx context.Context) error
	Hash(ctx context.Context) (Token, error)
	// Rewritable reports whether the engine may overwrite this resource
	// in place. If false, the engine erases it before re-evaluating.
	Rewritable() bool
}

// mtimeToken packs a modification time into a comparable, opaquely-typed
// token (nanoseconds since the Unix epoch, big-endian).
func mtimeToken(t int64) Token {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t))
	return buf
}

// FSResource is a filesystem path whose version token is its mtime.
type FSResource struct {
	path       string
	rewritable bool
}

// NewFSResource builds a filesystem resource for an absolute or
// relative path. Relative paths are resolved against the graph's
// working directory at the point Exists/Erase/Hash are called.
func NewFSResource(path string, rewritable bool) *FSResource {
	return &FSResource{path: path, rewritable: rewritable}
}

// Path returns the resource's configured filesystem path.
func (r *FSResource) Path() string { return r.path }

func (r *FSResource) Rewritable() bool { return r.rewritable }

func (r *FSResource) abspath() (string, error) {
	if filepath.IsAbs(r.path) {
		return r.path, nil
	}
	return filepath.Abs(r.path)
}

func (r *FSResource) Exists(_ context.Context) (bool, error) {
	p, err := r.abspath()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (r *FSResource) Erase(_ context.Context) error {
	p, err := r.abspath()
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(p)
	}
	return os.Remove(p)
}

func (r *FSResource) Hash(ctx context.Context) (Token, error) {
	p, err := r.abspath()
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return mtimeToken(info.ModTime().UnixNano()), nil
}

// MultiResource composes several filesystem resources into one. It
// exists iff all children exist; its hash is the sum of child hashes,
// or nil if any child is missing; equality is multiset-equal hashes.
type MultiResource struct {
	children   []*FSResource
	rewritable bool
}

func NewMultiResource(rewritable bool, children ...*FSResource) *MultiResource {
	return &MultiResource{children: children, rewritable: rewritable}
}

func (r *MultiResource) Rewritable() bool { return r.rewritable }

func (r *MultiResource) Len() int { return len(r.children) }

func (r *MultiResource) At(i int) *FSResource { return r.children[i] }

func (r *MultiResource) Exists(ctx context.Context) (bool, error) {
	for _, c := range r.children {
		ok, err := c.Exists(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *MultiResource) Erase(ctx context.Context) error {
	for _, c := range r.children {
		if err := c.Erase(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *MultiResource) Hash(ctx context.Context) (Token, error) {
	sum := int64(0)
	for _, c := range r.children {
		h, err := c.Hash(ctx)
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, nil
		}
		sum += int64(binary.BigEndian.Uint64(h))
	}
	return mtimeToken(sum), nil
}

// Equal compares two MultiResources as a multiset of child hashes,
// ignoring child order.
func (r *MultiResource) Equal(ctx context.Context, other *MultiResource) (bool, error) {
	if other == nil || len(r.children) != len(other.children) {
		return false, nil
	}
	selfHashes := make([]uint64, 0, len(r.children))
	for _, c := range r.children {
		h, err := c.Hash(ctx)
		if err != nil {
			return false, err
		}
		if h == nil {
			return false, nil
		}
		hv, err := hashstructure.Hash(h, hashstructure.FormatV2, nil)
		if err != nil {
			return false, err
		}
		selfHashes = append(selfHashes, hv)
	}
	otherHashes := make([]uint64, 0, len(other.children))
	for _, c := range other.children {
		h, err := c.Hash(ctx)
		if err != nil {
			return false, err
		}
		if h == nil {
			return false, nil
		}
		hv, err := hashstructure.Hash(h, hashstructure.FormatV2, nil)
		if err != nil {
			return false, err
		}
		otherHashes = append(otherHashes, hv)
	}
	sort.Slice(selfHashes, func(i, j int) bool { return selfHashes[i] < selfHashes[j] })
	sort.Slice(otherHashes, func(i, j int) bool { return otherHashes[i] < otherHashes[j] })
	for i := range selfHashes {
		if selfHashes[i] != otherHashes[i] {
			return false, nil
		}
	}
	return true, nil
}

// NilResource never exists; its hash is always nil. Useful for nodes
// that want erase-on-fail semantics without a backing artifact.
type NilResource struct{}

func NewNilResource() *NilResource { return &NilResource{} }

func (r *NilResource) Rewritable() bool                      { return true }
func (r *NilResource) Exists(context.Context) (bool, error)  { return false, nil }
func (r *NilResource) Erase(context.Context) error            { return nil }
func (r *NilResource) Hash(context.Context) (Token, error)    { return nil, nil }
