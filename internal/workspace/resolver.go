package workspace

import (
	"context"
	"fmt"
	"os"

	"arbor/internal/logging"
	"arbor/internal/worktree"
)

// Policy decides how to handle a workspace directory that already exists.
type Policy int

const (
	// PolicyInteractive prompts the operator; a declined prompt keeps
	// the existing directory and skips provisioning.
	PolicyInteractive Policy = iota
	// PolicySilent always cleans up and recreates. For unattended runs.
	PolicySilent
	// PolicyFailFast raises an error instead of prompting. For runs
	// without an attached terminal.
	PolicyFailFast
)

func (p Policy) String() string {
	switch p {
	case PolicySilent:
		return "silent"
	case PolicyFailFast:
		return "fail-fast"
	default:
		return "interactive"
	}
}

// PathConflictError is an existing workspace directory the policy forbids
// recreating.
type PathConflictError struct {
	Path string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("workspace directory %s already exists; rerun with --yes to clean and recreate it", e.Path)
}

// Confirm asks the operator a yes/no question.
type Confirm func(prompt string) (bool, error)

// Resolver decides whether and how to clean up a pre-existing workspace
// directory before provisioning.
type Resolver struct {
	Manager *worktree.Manager
	Confirm Confirm
}

// Resolve inspects the workspace directory and applies the policy.
// cleanupPerformed reports whether an existing workspace was torn down;
// proceed is false when provisioning should be skipped and the existing
// directory used as-is.
func (r *Resolver) Resolve(ctx context.Context, paths Paths, branch string, policy Policy) (cleanupPerformed, proceed bool, err error) {
	if !dirHasContents(paths.Root) {
		return false, true, nil
	}

	log := logging.New("workspace")
	switch policy {
	case PolicySilent:
		log.Debug("existing workspace, cleaning silently", "root", paths.Root)
	case PolicyFailFast:
		return false, false, &PathConflictError{Path: paths.Root}
	default:
		if r.Confirm == nil {
			return false, false, &PathConflictError{Path: paths.Root}
		}
		ok, err := r.Confirm(fmt.Sprintf("Workspace %s already exists. Clean and recreate it?", paths.Root))
		if err != nil {
			return false, false, fmt.Errorf("confirm cleanup: %w", err)
		}
		if !ok {
			log.Debug("keeping existing workspace", "root", paths.Root)
			return false, false, nil
		}
	}

	if err := r.Manager.Cleanup(ctx, paths.Root, paths.Targets(branch)...); err != nil {
		return false, false, fmt.Errorf("cleanup existing workspace: %w", err)
	}
	return true, true, nil
}

// dirHasContents reports whether path is a directory with at least one
// entry. An empty directory counts as absent.
func dirHasContents(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) > 0
}
