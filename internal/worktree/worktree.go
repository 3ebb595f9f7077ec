// Package worktree manages linked git working trees for workspace
// provisioning: creation with an ordered fallback chain for branch and
// worktree conflicts, and best-effort idempotent cleanup.
package worktree

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"arbor/internal/gitcmd"
	"arbor/internal/logging"
)

// Target describes one working tree to create or destroy.
type Target struct {
	// RepoDir is the existing clone the worktree links to.
	RepoDir string
	// TreeDir is the path of the linked working tree.
	TreeDir string
	// Branch is the branch to bind. Empty means "use the repository's
	// default branch", which is what companion repositories get since
	// they typically do not carry the feature branch.
	Branch string
}

// Manager creates and destroys linked working trees through a git Runner.
type Manager struct {
	run gitcmd.Runner
	log *slog.Logger
}

// NewManager creates a Manager backed by the given runner.
func NewManager(run gitcmd.Runner) *Manager {
	return &Manager{run: run, log: logging.New("worktree")}
}

// Setup creates a working tree for every target. It returns created=true
// only when all targets got a working tree. When the fallback chain is
// exhausted on a recognized conflict kind, Setup returns (false, nil) so
// the caller can continue in workspace-only mode; unrecognized failures
// are returned as errors.
func (m *Manager) Setup(ctx context.Context, targets ...Target) (created bool, err error) {
	created = true
	for _, t := range targets {
		if err := m.setupOne(ctx, t); err != nil {
			if gitcmd.Classify(err).Recoverable() {
				m.log.Debug("worktree fallback exhausted, continuing without worktree",
					"repo", t.RepoDir, "tree", t.TreeDir, "kind", gitcmd.Classify(err).String(), "error", err)
				created = false
				continue
			}
			return false, fmt.Errorf("worktree setup for %s: %w", t.RepoDir, err)
		}
	}
	return created, nil
}

// setupOne runs the fallback chain for a single target:
//
//  1. remove a stale tree at the path (prune on failure)
//  2. add a worktree on a new branch off the default branch
//  3. on branch-exists, attach to the existing branch
//  4. on worktree-in-use or invalid-ref, force-attach
func (m *Manager) setupOne(ctx context.Context, t Target) error {
	if _, err := os.Stat(t.TreeDir); err == nil {
		if _, err := m.run.Run(ctx, t.RepoDir, "worktree", "remove", "--force", t.TreeDir); err != nil {
			m.log.Debug("stale worktree removal failed, pruning", "tree", t.TreeDir, "error", err)
			_, _ = m.run.Run(ctx, t.RepoDir, "worktree", "prune")
		}
	}

	base, err := m.DefaultBranch(ctx, t.RepoDir)
	if err != nil {
		return err
	}

	branch := t.Branch
	if branch == "" {
		// Companion repositories track their default branch rather
		// than the feature branch.
		branch = base
	}

	_, err = m.run.Run(ctx, t.RepoDir, "worktree", "add", "-b", branch, t.TreeDir, base)
	if err == nil {
		m.log.Debug("worktree created on new branch", "tree", t.TreeDir, "branch", branch, "base", base)
		return nil
	}
	if !gitcmd.Classify(err).Recoverable() {
		return err
	}

	_, err = m.run.Run(ctx, t.RepoDir, "worktree", "add", t.TreeDir, branch)
	if err == nil {
		m.log.Debug("worktree attached to existing branch", "tree", t.TreeDir, "branch", branch)
		return nil
	}
	if !gitcmd.Classify(err).Recoverable() {
		return err
	}

	_, err = m.run.Run(ctx, t.RepoDir, "worktree", "add", "--force", t.TreeDir, branch)
	if err == nil {
		m.log.Debug("worktree force-attached", "tree", t.TreeDir, "branch", branch)
	}
	return err
}

// Cleanup removes the working trees, prunes stale worktree references,
// deletes the feature branch, and removes the workspace root. Every step is
// best-effort; the call fails only if the root directory still exists
// afterwards. Calling it twice is safe.
func (m *Manager) Cleanup(ctx context.Context, root string, targets ...Target) error {
	for _, t := range targets {
		if t.RepoDir == "" || t.TreeDir == "" {
			continue
		}
		if _, err := m.run.Run(ctx, t.RepoDir, "worktree", "remove", "--force", t.TreeDir); err != nil {
			m.log.Debug("worktree removal failed", "tree", t.TreeDir, "error", err)
		}
		if _, err := m.run.Run(ctx, t.RepoDir, "worktree", "prune"); err != nil {
			m.log.Debug("worktree prune failed", "repo", t.RepoDir, "error", err)
		}
		// The feature branch only; companion targets (empty Branch)
		// ride their default branch, which must survive cleanup.
		if t.Branch != "" {
			if _, err := m.run.Run(ctx, t.RepoDir, "branch", "-D", t.Branch); err != nil {
				m.log.Debug("branch deletion skipped", "branch", t.Branch, "error", err)
			}
		}
	}

	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("remove workspace root: %w", err)
	}
	if _, err := os.Stat(root); err == nil {
		return fmt.Errorf("workspace root still present after cleanup: %s", root)
	}
	return nil
}

// DefaultBranch resolves the repository's default branch: the remote HEAD
// reference when available, then main, then master.
func (m *Manager) DefaultBranch(ctx context.Context, repoDir string) (string, error) {
	out, err := m.run.Run(ctx, repoDir, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err == nil {
		ref := strings.TrimSpace(out)
		if name := strings.TrimPrefix(ref, "origin/"); name != "" {
			return name, nil
		}
	} else if gitcmd.Classify(err) == gitcmd.KindNotARepo {
		// symbolic-ref failing on a clone without an origin/HEAD ref is
		// the expected path to the main/master fallback; a missing
		// repository is not.
		return "", err
	}

	for _, name := range []string{"main", "master"} {
		if _, err := m.run.Run(ctx, repoDir, "show-ref", "--verify", "--quiet", "refs/heads/"+name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no default branch found in %s", repoDir)
}
