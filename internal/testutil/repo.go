// Package testutil builds throwaway git repositories for tests that
// exercise real worktree and branch operations.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// CreateRepo creates a git repository with one commit on the given default
// branch in a temp directory and returns its path.
func CreateRepo(t *testing.T, defaultBranch string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "repo")
	Run(t, ".", "git", "init", "-b", defaultBranch, dir)
	Run(t, dir, "git", "config", "user.email", "test@example.com")
	Run(t, dir, "git", "config", "user.name", "Test")

	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# test\n"), 0644); err != nil {
		t.Fatal(err)
	}
	Run(t, dir, "git", "add", ".")
	Run(t, dir, "git", "commit", "-m", "initial commit")
	return dir
}

// CreateClone clones src into a temp directory so the clone carries an
// origin remote and an origin/HEAD reference.
func CreateClone(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "clone")
	Run(t, ".", "git", "clone", src, dir)
	return dir
}

// Run executes a command in dir, failing the test on error.
func Run(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("command %s %v failed: %v\n%s", name, args, err, out)
	}
}

// Output executes a command in dir and returns trimmed stdout, failing the
// test on error.
func Output(t *testing.T, dir string, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("command %s %v failed: %v", name, args, err)
	}
	return string(trimNewline(out))
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
