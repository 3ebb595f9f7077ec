package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arbor/internal/testutil"
)

func TestOrgRepoFromURL(t *testing.T) {
	tests := []struct {
		url  string
		org  string
		repo string
		ok   bool
	}{
		{"git@github.com:acme/sdk.git", "acme", "sdk", true},
		{"https://github.com/acme/sdk.git", "acme", "sdk", true},
		{"https://github.com/acme/sdk", "acme", "sdk", true},
		{"not-a-url", "", "", false},
	}
	for _, tt := range tests {
		org, repo, ok := orgRepoFromURL(tt.url)
		if org != tt.org || repo != tt.repo || ok != tt.ok {
			t.Errorf("orgRepoFromURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.url, org, repo, ok, tt.org, tt.repo, tt.ok)
		}
	}
}

// writeTestConfig lays out a source root with a primary clone and a config
// file pointing at it.
func writeTestConfig(t *testing.T) (cfgPath, srcRoot string) {
	t.Helper()
	srcRoot = t.TempDir()

	repoDir := filepath.Join(srcRoot, "sdk")
	testutil.Run(t, ".", "git", "init", "-b", "main", repoDir)
	testutil.Run(t, repoDir, "git", "config", "user.email", "test@example.com")
	testutil.Run(t, repoDir, "git", "config", "user.name", "Test")
	if err := os.WriteFile(filepath.Join(repoDir, "README.md"), []byte("# sdk\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	testutil.Run(t, repoDir, "git", "add", ".")
	testutil.Run(t, repoDir, "git", "commit", "-m", "initial commit")

	cfgPath = filepath.Join(t.TempDir(), "arbor.yaml")
	content := fmt.Sprintf("settings:\n  source_root: %s\nprojects:\n  sdk:\n    name: SDK\n    repo: git@github.com:acme/sdk.git\n", srcRoot)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, srcRoot
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestInitAndCleanEndToEnd(t *testing.T) {
	cfgPath, srcRoot := writeTestConfig(t)
	wsRoot := filepath.Join(srcRoot, "workspaces", "sdk", "feature-x")

	out, err := execute(t, "--config", cfgPath, "init", "sdk", "feature/x", "--yes")
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if !strings.Contains(out, wsRoot) {
		t.Errorf("init output missing workspace path:\n%s", out)
	}
	tree := filepath.Join(wsRoot, "sdk")
	if got := testutil.Output(t, tree, "git", "rev-parse", "--abbrev-ref", "HEAD"); got != "feature/x" {
		t.Errorf("worktree branch = %q, want feature/x", got)
	}

	out, err = execute(t, "--config", cfgPath, "clean", "sdk", "feature/x")
	if err != nil {
		t.Fatalf("clean: %v\n%s", err, out)
	}
	if _, statErr := os.Stat(wsRoot); !os.IsNotExist(statErr) {
		t.Error("clean left the workspace directory behind")
	}
}

func TestListCommand(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := execute(t, "--config", cfgPath, "list")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	for _, want := range []string{"sdk", "SDK", "acme/sdk.git"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestInitUnknownProject(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	if _, err := execute(t, "--config", cfgPath, "init", "nope", "feature/x", "--yes"); err == nil {
		t.Error("want error for unknown project")
	}
}

func TestDoctorReportsMissingClone(t *testing.T) {
	cfgPath, srcRoot := writeTestConfig(t)
	if err := os.RemoveAll(filepath.Join(srcRoot, "sdk")); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfgPath, "doctor")
	if err == nil {
		t.Error("doctor should fail when a clone is missing")
	}
	if !strings.Contains(out, "clone for sdk") {
		t.Errorf("doctor output missing clone check:\n%s", out)
	}
}
