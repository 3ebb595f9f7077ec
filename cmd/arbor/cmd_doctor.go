package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"arbor/internal/gitcmd"
	"arbor/internal/workspace"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment: git, configuration, and repository clones",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

type checkResult struct {
	name string
	err  error
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	var (
		mu      sync.Mutex
		results []checkResult
	)
	report := func(name string, err error) {
		mu.Lock()
		results = append(results, checkResult{name: name, err: err})
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		if !gitcmd.Installed() {
			report("git on PATH", fmt.Errorf("git not found"))
		} else {
			report("git on PATH", nil)
		}
		return nil
	})

	cfg, cfgErr := loadConfig()
	report("configuration parses", cfgErr)
	if cfg != nil {
		wsRoot := filepath.Join(cfg.Settings.SourceRoot, cfg.Settings.WorkspaceDir)
		g.Go(func() error {
			report("workspace root writable", writableDir(wsRoot))
			return nil
		})
		for _, key := range cfg.Keys() {
			project := cfg.Projects[key]
			g.Go(func() error {
				paths := workspace.ResolvePaths(cfg.Settings, project, "doctor")
				report("clone for "+project.Key, cloneExists(paths.PrimaryRepo))
				if paths.CompanionRepo != "" {
					report("companion clone for "+project.Key, cloneExists(paths.CompanionRepo))
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].name < results[j].name })

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", r.name, r.err)
		} else {
			fmt.Fprintf(out, "ok   %s\n", r.name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}

func cloneExists(repoDir string) error {
	info, err := os.Stat(filepath.Join(repoDir, ".git"))
	if err != nil {
		return fmt.Errorf("no clone at %s", repoDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a repository clone", repoDir)
	}
	return nil
}

func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".arbor-doctor")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
