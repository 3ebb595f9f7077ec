// Package gitcmd runs git subcommands against a repository path and
// translates git's stderr text into a closed set of error kinds the
// worktree lifecycle logic can switch on.
package gitcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one git subcommand in the given directory and returns
// its stdout. Failures carry the captured stderr as a *GitError.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// GitError is a failed git invocation. Stderr holds the raw message text
// used by Classify; Err is the underlying exec error.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *GitError) Unwrap() error { return e.Err }

// ExecRunner shells out to the git binary on PATH.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &GitError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// Installed reports whether git is available on the system PATH.
func Installed() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
