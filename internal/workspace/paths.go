// Package workspace provisions and tears down per-branch development
// workspaces: path resolution, conflict handling for existing directories,
// and the coordinated setup of directories, working trees and context data.
package workspace

import (
	"path"
	"path/filepath"
	"strings"

	"arbor/internal/config"
	"arbor/internal/worktree"
)

// Paths is the computed on-disk layout for one (project, workspace name)
// pair. All fields are deterministic functions of the project, the
// workspace name and the configured roots; Paths is never persisted.
type Paths struct {
	// Root is the workspace root directory.
	Root string
	// Primary is the primary working tree path under Root.
	Primary string
	// Companion is the companion working tree path, or "" when the
	// project has no companion repository.
	Companion string
	// PrimaryRepo and CompanionRepo are the underlying clones.
	PrimaryRepo   string
	CompanionRepo string
}

// ResolvePaths computes the workspace layout:
//
//	<sourceRoot>/<workspaceDir>/<projectKey>/<name>/<repoName>
//
// with the clones expected directly under sourceRoot. Slashes in the
// workspace name (branch-style names) become dashes so each workspace maps
// to exactly one directory.
func ResolvePaths(settings config.Settings, project *config.Project, name string) Paths {
	dirName := strings.ReplaceAll(name, "/", "-")
	root := filepath.Join(settings.SourceRoot, settings.WorkspaceDir, project.Key, dirName)

	primaryName := RepoName(project.Repo)
	p := Paths{
		Root:        root,
		Primary:     filepath.Join(root, primaryName),
		PrimaryRepo: filepath.Join(settings.SourceRoot, primaryName),
	}
	if project.SampleRepo != "" {
		companionName := RepoName(project.SampleRepo)
		p.Companion = filepath.Join(root, companionName)
		p.CompanionRepo = filepath.Join(settings.SourceRoot, companionName)
	}
	return p
}

// Targets maps the paths onto worktree targets for the given feature
// branch. The companion target carries no branch so the lifecycle manager
// puts it on the repository's default branch.
func (p Paths) Targets(branch string) []worktree.Target {
	targets := []worktree.Target{{
		RepoDir: p.PrimaryRepo,
		TreeDir: p.Primary,
		Branch:  branch,
	}}
	if p.Companion != "" {
		targets = append(targets, worktree.Target{
			RepoDir: p.CompanionRepo,
			TreeDir: p.Companion,
		})
	}
	return targets
}

// RepoName extracts a directory name from a git URL. Handles SSH
// (git@host:org/repo.git) and HTTPS (https://host/org/repo.git) forms as
// well as plain filesystem paths.
func RepoName(url string) string {
	url = strings.TrimRight(url, "/")
	if idx := strings.LastIndex(url, ":"); idx != -1 && !strings.Contains(url, "://") {
		url = url[idx+1:]
	}
	return strings.TrimSuffix(path.Base(url), ".git")
}
