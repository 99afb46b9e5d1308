package argument

import (
	"testing"

	"github.com/otaviog/rflow/internal/rerrors"
)

func TestIsArgumentableAcceptsPrimitivesAndRejectsFuncs(t *testing.T) {
	cases := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"int", 42, true},
		{"string", "hello", true},
		{"slice of ints", []any{1, 2, 3}, true},
		{"map of strings", map[string]any{"a": "b"}, true},
		{"bare func", func() {}, false},
		{"chan", make(chan int), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsArgumentable(c.v); got != c.want {
				t.Errorf("IsArgumentable(%v) = %v, want %v", c.v, got, c.want)
			}
		})
	}
}

func TestDiffDetectsMissingTypeAndValueChanges(t *testing.T) {
	prev := NewSignature()
	prev.Set("a", 1)
	prev.Set("b", "x")
	prev.Set("c", 10)

	curr := NewSignature()
	curr.Set("a", 1)     // unchanged
	curr.Set("b", 2)     // type change
	curr.Set("c", 20)    // value change
	curr.Set("d", "new") // missing-before

	diffs := Diff(prev, curr)

	if _, ok := diffs["a"]; ok {
		t.Error("unchanged key 'a' should not be in diff")
	}
	if d, ok := diffs["b"]; !ok || d.Kind != DiffKindType {
		t.Errorf("expected 'b' to be a type diff, got %+v", d)
	}
	if d, ok := diffs["c"]; !ok || d.Kind != DiffKindValue {
		t.Errorf("expected 'c' to be a value diff, got %+v", d)
	}
	if d, ok := diffs["d"]; !ok || d.Kind != DiffKindMissing {
		t.Errorf("expected 'd' to be a missing diff, got %+v", d)
	}
}

func TestDiffEmptyWhenSignaturesMatch(t *testing.T) {
	prev := NewSignature()
	prev.Set("x", "same")
	curr := NewSignature()
	curr.Set("x", "same")

	if diffs := Diff(prev, curr); len(diffs) != 0 {
		t.Errorf("expected no diffs, got %v", diffs)
	}
}

func TestNamespaceSetRejectsUnknownName(t *testing.T) {
	ns := NewNamespace([]string{"a", "b"}, nil)
	if err := ns.Set("c", 1, rerrors.LineInfo{}); err == nil {
		t.Fatal("expected SchemaError assigning an undeclared name")
	}
}

func TestNamespaceSetRejectsNonArgumentable(t *testing.T) {
	ns := NewNamespace([]string{"f"}, nil)
	if err := ns.Set("f", func() {}, rerrors.LineInfo{}); err == nil {
		t.Fatal("expected SchemaError assigning a bare func")
	}
}

func TestNamespaceAllBound(t *testing.T) {
	ns := NewNamespace([]string{"a", "b"}, map[string]any{"a": 1})
	if _, ok := ns.AllBound([]string{"a", "b"}); ok {
		t.Fatal("expected AllBound to report 'b' unbound")
	}
	if err := ns.Set("b", 2, rerrors.LineInfo{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := ns.AllBound([]string{"a", "b"}); !ok {
		t.Fatal("expected AllBound true once all slots are set")
	}
}

func TestNamespaceResourceSlotAlwaysDeclared(t *testing.T) {
	ns := NewNamespace([]string{"a"}, nil)
	if ns.Get("resource") != nil {
		t.Fatal("expected implicit resource slot to start nil")
	}
}
