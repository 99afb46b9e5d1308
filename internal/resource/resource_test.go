package resource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFSResourceExistsAndErase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	r := NewFSResource(path, true)
	exists, err := r.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("expected resource to not exist before file is written")
	}

	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	exists, err = r.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("expected resource to exist after file is written")
	}

	tok1, err := r.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if tok1 == nil {
		t.Fatal("expected non-nil hash for existing file")
	}

	if err := r.Erase(ctx); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	exists, err = r.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists after Erase: %v", err)
	}
	if exists {
		t.Fatal("expected resource to not exist after Erase")
	}
}

func TestFSResourceHashChangesOnRewrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r := NewFSResource(path, true)
	tok1, err := r.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	newTime := modTimePlusTwoSeconds(t, path)
	if err := os.Chtimes(path, newTime, newTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	tok2, err := r.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if tok1.Equal(tok2) {
		t.Fatal("expected hash to change after mtime bump")
	}
}

func TestMultiResourceExistsRequiresAll(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(a, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewMultiResource(true, NewFSResource(a, true), NewFSResource(b, true))
	exists, err := m.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("expected MultiResource to not exist while b.txt is missing")
	}

	if err := os.WriteFile(b, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	exists, err = m.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("expected MultiResource to exist once both children exist")
	}
}

func TestMultiResourceEqualIgnoresOrder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("a"), 0o644)
	os.WriteFile(b, []byte("b"), 0o644)

	m1 := NewMultiResource(true, NewFSResource(a, true), NewFSResource(b, true))
	m2 := NewMultiResource(true, NewFSResource(b, true), NewFSResource(a, true))

	equal, err := m1.Equal(ctx, m2)
	if err != nil {
		t.Fatalf("Equal: %v", err)
	}
	if !equal {
		t.Fatal("expected multiset-equal MultiResources (different child order) to compare equal")
	}
}

func TestNilResourceNeverExists(t *testing.T) {
	ctx := context.Background()
	r := NewNilResource()
	exists, err := r.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("NilResource should never exist")
	}
	tok, err := r.Hash(ctx)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if tok != nil {
		t.Fatal("NilResource hash should be nil")
	}
}

func modTimePlusTwoSeconds(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	return info.ModTime().Add(2 * time.Second)
}
