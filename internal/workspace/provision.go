package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"arbor/internal/config"
	"arbor/internal/contextdata"
	"arbor/internal/coordinator"
	"arbor/internal/gitcmd"
	"arbor/internal/logging"
	"arbor/internal/worktree"
)

// Operation ids within one provisioning run.
const (
	opDirs      = "dirs"
	opWorktrees = "worktrees"
	opContext   = "context"
)

// contextFileName is where fetched context records land in the workspace.
const contextFileName = "context.json"

// envFileName is where the project's env file is copied to.
const envFileName = ".env"

// Outcome reports what a provisioning run actually did.
type Outcome struct {
	WorkingTreesCreated bool
	CleanupPerformed    bool
}

// Options tune one provisioning run.
type Options struct {
	Policy Policy
	// Org, Repo and Issues select the context records to fetch; context
	// gathering is skipped when Issues is empty or no fetcher is set.
	Org    string
	Repo   string
	Issues []int
	// Events receives progress notifications; nil disables them. Events
	// are dropped rather than blocking provisioning.
	Events chan<- Event
	// PostSetupTimeout bounds the project's post-setup command.
	// Zero means DefaultPostSetupTimeout.
	PostSetupTimeout time.Duration
}

// Provisioner coordinates workspace provisioning and teardown.
type Provisioner struct {
	manager  *worktree.Manager
	resolver *Resolver
	coord    *coordinator.Coordinator
	fetcher  contextdata.Fetcher
	log      *slog.Logger
}

// NewProvisioner wires a provisioner from its collaborators. fetcher and
// confirm may be nil: no context gathering, and interactive conflicts fail
// fast.
func NewProvisioner(run gitcmd.Runner, fetcher contextdata.Fetcher, confirm Confirm) *Provisioner {
	manager := worktree.NewManager(run)
	return &Provisioner{
		manager:  manager,
		resolver: &Resolver{Manager: manager, Confirm: confirm},
		coord:    coordinator.New(),
		fetcher:  fetcher,
		log:      logging.New("workspace"),
	}
}

// Manager exposes the lifecycle manager for callers that need direct
// cleanup access.
func (p *Provisioner) Manager() *worktree.Manager { return p.manager }

// Provision creates the workspace for (project, branch): conflict
// resolution, directory creation, then working-tree setup and context
// gathering in parallel, then env file and post-setup command.
//
// A fatal failure after directory setup rolls the filesystem back via
// Teardown. Working-tree conflicts that exhaust the fallback chain degrade
// to a workspace-only outcome instead of failing.
func (p *Provisioner) Provision(ctx context.Context, project *config.Project, paths Paths, branch string, opts Options) (Outcome, error) {
	runID := uuid.New()
	var outcome Outcome

	cleaned, proceed, err := p.resolver.Resolve(ctx, paths, branch, opts.Policy)
	if err != nil {
		return outcome, err
	}
	outcome.CleanupPerformed = cleaned
	if cleaned {
		emit(opts.Events, Event{Run: runID, Op: "cleanup", Phase: PhaseSucceeded})
	}
	if !proceed {
		p.log.Info("using existing workspace", "root", paths.Root)
		return outcome, nil
	}

	p.coord.Clear()
	ops := []coordinator.Operation{
		{
			ID:          opDirs,
			Description: "create workspace directories",
			Critical:    true,
			Action: func(context.Context) (any, error) {
				return nil, os.MkdirAll(paths.Root, 0o755)
			},
		},
		{
			ID:          opWorktrees,
			Description: "set up working trees",
			DependsOn:   []string{opDirs},
			Action: func(ctx context.Context) (any, error) {
				return p.manager.Setup(ctx, paths.Targets(branch)...)
			},
		},
		{
			ID:          opContext,
			Description: "gather issue context",
			DependsOn:   []string{opDirs},
			Action: func(ctx context.Context) (any, error) {
				if p.fetcher == nil || len(opts.Issues) == 0 {
					return nil, nil
				}
				return p.fetcher.FetchIssues(ctx, opts.Org, opts.Repo, opts.Issues)
			},
		},
	}
	for _, op := range ops {
		op := op
		inner := op.Action
		op.Action = func(ctx context.Context) (any, error) {
			emit(opts.Events, Event{Run: runID, Op: op.ID, Phase: PhaseStarted})
			v, err := inner(ctx)
			phase := PhaseSucceeded
			if err != nil {
				phase = PhaseFailed
			}
			emit(opts.Events, Event{Run: runID, Op: op.ID, Phase: phase})
			return v, err
		}
		if err := p.coord.Add(op); err != nil {
			return outcome, err
		}
	}

	results, err := p.coord.Execute(ctx, []string{opWorktrees, opContext})
	if err != nil {
		p.rollback(ctx, paths, branch)
		return outcome, err
	}

	for _, res := range results {
		switch res.ID {
		case opWorktrees:
			if res.Err != nil {
				// Unrecognized git failure: the manager already
				// exhausted its fallbacks.
				p.rollback(ctx, paths, branch)
				return outcome, res.Err
			}
			created, _ := res.Value.(bool)
			outcome.WorkingTreesCreated = created
			if !created {
				p.log.Info("continuing in workspace-only mode", "root", paths.Root)
			}
		case opContext:
			if res.Err != nil {
				p.log.Warn("context gathering failed, continuing without it", "error", res.Err)
				continue
			}
			if records, ok := res.Value.([]contextdata.Record); ok && len(records) > 0 {
				if err := writeContextFile(paths.Root, records); err != nil {
					p.log.Warn("could not write context file", "error", err)
				}
			}
		}
	}

	if project.EnvFile != "" {
		if err := copyFile(project.EnvFile, filepath.Join(paths.Root, envFileName)); err != nil {
			p.log.Warn("env file not copied", "src", project.EnvFile, "error", err)
		}
	}

	if project.PostSetup != "" {
		emit(opts.Events, Event{Run: runID, Op: "post-setup", Phase: PhaseStarted})
		if err := runPostSetup(ctx, paths.Root, project.PostSetup, opts.PostSetupTimeout); err != nil {
			emit(opts.Events, Event{Run: runID, Op: "post-setup", Phase: PhaseFailed})
			p.log.Warn("post-setup command failed, workspace remains usable", "error", err)
		} else {
			emit(opts.Events, Event{Run: runID, Op: "post-setup", Phase: PhaseSucceeded})
		}
	}

	return outcome, nil
}

// Teardown destroys the workspace: working trees, feature branch, root
// directory. Idempotent.
func (p *Provisioner) Teardown(ctx context.Context, paths Paths, branch string) error {
	return p.manager.Cleanup(ctx, paths.Root, paths.Targets(branch)...)
}

// rollback returns the filesystem to its pre-attempt state after a fatal
// provisioning failure. Best-effort: a rollback failure is logged, the
// original error stands.
func (p *Provisioner) rollback(ctx context.Context, paths Paths, branch string) {
	if err := p.Teardown(ctx, paths, branch); err != nil {
		p.log.Warn("rollback incomplete", "root", paths.Root, "error", err)
	}
}

func writeContextFile(root string, records []contextdata.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, contextFileName), data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
