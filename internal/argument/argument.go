// Package argument implements the typed, name-checked argument namespace
// (C3), the ArgumentValue legality predicate, and the signature diff
// algorithm (§4.3, §4.5.3 of the specification). Grounded on
// rflow/_argument.py.
package argument

import (
	"reflect"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/otaviog/rflow/internal/rerrors"
	"github.com/otaviog/rflow/internal/resource"
)

// Uninit is the sentinel value for a declared-but-unassigned argument
// slot, the Go stand-in for rflow's Uninit singleton.
type uninitType struct{}

var Uninit = uninitType{}

// Node is the minimal surface argument.Namespace and the dirtiness/diff
// algorithms need from internal/core, kept here as an interface to avoid
// an import cycle (internal/core depends on internal/argument, not the
// reverse).
type Node interface {
	Name() string
}

// Equaler is implemented by user-defined argument values that declare
// their own structural equality, the Go analogue of an overridden
// __eq__. Values not implementing Equaler fall back to a hashstructure
// comparison.
type Equaler interface {
	Equal(other any) bool
}

// IsArgumentable reports whether v is legal as a node argument value:
// a Node (or link adapter), a Resource, a Go primitive, a homogeneous
// slice/map of argument-ables, an Equaler, or any other value that
// hashstructure can traverse (structs with comparable fields, etc).
// Func values, named or anonymous, and channels are rejected.
func IsArgumentable(v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case Node, resource.Resource, Equaler:
		return true
	}
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, bool, string:
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		// Every func value is rejected, named functions included: no
		// distinction is made between a named function and a func
		// literal.
		return false
	case reflect.Chan:
		return false
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !IsArgumentable(rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if !IsArgumentable(iter.Value().Interface()) {
				return false
			}
		}
		return true
	}
	// Last resort: anything hashstructure can traverse declares a
	// meaningful structural equality for our purposes.
	_, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	return err == nil
}

// Token is a signature value: either a literal ArgumentValue or the hash
// token of an upstream node's resource.
type Token = resource.Token

// Signature is a mapping from argument name to token, with the names'
// first-seen insertion order kept alongside (see Names).
type Signature struct {
	Values map[string]any
	order  []string
}

// NewSignature builds an empty signature.
func NewSignature() *Signature {
	return &Signature{Values: make(map[string]any)}
}

// Set records name -> value, preserving first-seen insertion order.
func (s *Signature) Set(name string, value any) {
	if _, ok := s.Values[name]; !ok {
		s.order = append(s.order, name)
	}
	s.Values[name] = value
}

// Names returns argument names in the order they were first set.
func (s *Signature) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// DiffKind distinguishes how two signature entries differ, resolving
// the specification's "signature diff tuple ambiguity" open question by
// keeping the two interpretations (type mismatch vs value mismatch)
// distinguishable instead of overwriting one with the other.
type DiffKind int

const (
	DiffKindMissing DiffKind = iota
	DiffKindType
	DiffKindValue
)

// ArgDiff describes how one signature key differs between two
// signatures. Before/After are nil when the key is absent on that side.
type ArgDiff struct {
	Kind   DiffKind
	Before any
	After  any
}

// Diff computes the difference between a previous and current
// signature. Any non-empty result means the owning node is dirty.
func Diff(prev, curr *Signature) map[string]ArgDiff {
	out := make(map[string]ArgDiff)
	if prev == nil {
		prev = NewSignature()
	}
	if curr == nil {
		curr = NewSignature()
	}
	for name, cv := range curr.Values {
		pv, ok := prev.Values[name]
		if !ok {
			out[name] = ArgDiff{Kind: DiffKindMissing, Before: nil, After: cv}
			continue
		}
		if !sameKind(pv, cv) {
			out[name] = ArgDiff{Kind: DiffKindType, Before: pv, After: cv}
			continue
		}
		if !valuesEqual(pv, cv) {
			out[name] = ArgDiff{Kind: DiffKindValue, Before: pv, After: cv}
		}
	}
	for name, pv := range prev.Values {
		if _, ok := curr.Values[name]; !ok {
			out[name] = ArgDiff{Kind: DiffKindMissing, Before: pv, After: nil}
		}
	}
	return out
}

func sameKind(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

func valuesEqual(a, b any) bool {
	if ea, ok := a.(Equaler); ok {
		return ea.Equal(b)
	}
	if tb, ok := a.(Token); ok {
		if tb2, ok2 := b.(Token); ok2 {
			return tb.Equal(tb2)
		}
	}
	if rv := reflect.ValueOf(a); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map {
		ha, err1 := hashstructure.Hash(a, hashstructure.FormatV2, nil)
		hb, err2 := hashstructure.Hash(b, hashstructure.FormatV2, nil)
		if err1 == nil && err2 == nil {
			return ha == hb
		}
	}
	return reflect.DeepEqual(a, b)
}

// Namespace is a fixed set of named argument slots declared once from
// the evaluate function's parameter list (plus an always-present
// "resource" slot). Grounded on rflow/_argument.py's ArgNamespace.
type Namespace struct {
	names    []string
	declared map[string]bool
	values   map[string]any
	// NonCollateral holds names excluded from the signature (§4.5.2).
	NonCollateral map[string]bool
}

// NewNamespace declares an ordered list of argument names plus defaults.
// The "resource" slot is implicitly declared and starts nil.
func NewNamespace(names []string, defaults map[string]any) *Namespace {
	n := &Namespace{
		names:         append([]string{}, names...),
		declared:      make(map[string]bool, len(names)+1),
		values:        make(map[string]any, len(names)+1),
		NonCollateral: make(map[string]bool),
	}
	for _, name := range names {
		n.declared[name] = true
		if v, ok := defaults[name]; ok {
			n.values[name] = v
		} else {
			n.values[name] = Uninit
		}
	}
	n.declared["resource"] = true
	n.values["resource"] = nil
	return n
}

// Set assigns value to name, enforcing the name-check and
// argument-ability check (§4.3). line is used for SchemaError
// provenance when available.
func (n *Namespace) Set(name string, value any, line rerrors.LineInfo) error {
	if !n.declared[name] {
		return &rerrors.SchemaError{Field: name, Msg: "variable not on this node", Line: line}
	}
	if value != nil && !IsArgumentable(value) {
		return &rerrors.SchemaError{Field: name, Msg: "value is not a legal argument value", Line: line}
	}
	n.values[name] = value
	return nil
}

// Get returns the current value bound to name (Uninit if never set).
func (n *Namespace) Get(name string) any { return n.values[name] }

// Names returns the declared evaluate-parameter names in declaration
// order (excluding the implicit "resource" slot, which callers consult
// via Get("resource") directly).
func (n *Namespace) Names() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// AllBound reports whether every slot named in subset has been assigned
// a non-Uninit value; if not, it also returns the first unbound name.
func (n *Namespace) AllBound(subset []string) (string, bool) {
	for _, name := range subset {
		if n.values[name] == Uninit {
			return name, false
		}
	}
	return "", true
}
