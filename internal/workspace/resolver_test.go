package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"arbor/internal/gitcmd"
	"arbor/internal/worktree"
)

func existingWorkspace(t *testing.T) Paths {
	t.Helper()
	root := filepath.Join(t.TempDir(), "ws")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "leftover.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return Paths{Root: root}
}

func newResolver(confirm Confirm) *Resolver {
	return &Resolver{Manager: worktree.NewManager(gitcmd.ExecRunner{}), Confirm: confirm}
}

func TestResolveAbsentDirectory(t *testing.T) {
	r := newResolver(nil)
	paths := Paths{Root: filepath.Join(t.TempDir(), "missing")}

	cleaned, proceed, err := r.Resolve(context.Background(), paths, "b", PolicyFailFast)
	if err != nil {
		t.Fatal(err)
	}
	if cleaned || !proceed {
		t.Errorf("absent dir: cleaned=%v proceed=%v, want false/true", cleaned, proceed)
	}
}

func TestResolveEmptyDirectoryCountsAsAbsent(t *testing.T) {
	r := newResolver(nil)
	root := t.TempDir()

	cleaned, proceed, err := r.Resolve(context.Background(), Paths{Root: root}, "b", PolicyFailFast)
	if err != nil {
		t.Fatal(err)
	}
	if cleaned || !proceed {
		t.Errorf("empty dir: cleaned=%v proceed=%v, want false/true", cleaned, proceed)
	}
}

func TestResolveSilentCleansUp(t *testing.T) {
	r := newResolver(nil)
	paths := existingWorkspace(t)

	cleaned, proceed, err := r.Resolve(context.Background(), paths, "b", PolicySilent)
	if err != nil {
		t.Fatal(err)
	}
	if !cleaned || !proceed {
		t.Errorf("silent: cleaned=%v proceed=%v, want true/true", cleaned, proceed)
	}
	if _, err := os.Stat(paths.Root); !os.IsNotExist(err) {
		t.Error("silent policy left the workspace directory behind")
	}
}

func TestResolveFailFast(t *testing.T) {
	r := newResolver(nil)
	paths := existingWorkspace(t)

	_, _, err := r.Resolve(context.Background(), paths, "b", PolicyFailFast)
	var conflict *PathConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want *PathConflictError, got %v", err)
	}
	if conflict.Path != paths.Root {
		t.Errorf("conflict path = %q, want %q", conflict.Path, paths.Root)
	}
}

func TestResolveInteractiveAccepted(t *testing.T) {
	r := newResolver(func(string) (bool, error) { return true, nil })
	paths := existingWorkspace(t)

	cleaned, proceed, err := r.Resolve(context.Background(), paths, "b", PolicyInteractive)
	if err != nil {
		t.Fatal(err)
	}
	if !cleaned || !proceed {
		t.Errorf("accepted: cleaned=%v proceed=%v, want true/true", cleaned, proceed)
	}
}

func TestResolveInteractiveDeclined(t *testing.T) {
	r := newResolver(func(string) (bool, error) { return false, nil })
	paths := existingWorkspace(t)

	cleaned, proceed, err := r.Resolve(context.Background(), paths, "b", PolicyInteractive)
	if err != nil {
		t.Fatal(err)
	}
	if cleaned || proceed {
		t.Errorf("declined: cleaned=%v proceed=%v, want false/false", cleaned, proceed)
	}
	if _, err := os.Stat(paths.Root); err != nil {
		t.Error("declined prompt must keep the existing directory")
	}
}

func TestResolveInteractiveWithoutConfirmerFailsFast(t *testing.T) {
	r := newResolver(nil)
	paths := existingWorkspace(t)

	_, _, err := r.Resolve(context.Background(), paths, "b", PolicyInteractive)
	var conflict *PathConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want *PathConflictError when no confirmer is wired, got %v", err)
	}
}
