package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"arbor/internal/contextdata"
	"arbor/internal/gitcmd"
	"arbor/internal/ui"
	"arbor/internal/workspace"
)

var initFlags struct {
	yes              bool
	noInput          bool
	issues           []int
	postSetupTimeout time.Duration
}

var initCmd = &cobra.Command{
	Use:   "init <project> <branch>",
	Short: "Provision a workspace for a project and branch",
	Args:  cobra.ExactArgs(2),
	RunE:  runInit,
}

func init() {
	f := initCmd.Flags()
	f.BoolVarP(&initFlags.yes, "yes", "y", false, "Recreate an existing workspace without prompting")
	f.BoolVar(&initFlags.noInput, "no-input", false, "Fail instead of prompting (no attached terminal)")
	f.IntSliceVar(&initFlags.issues, "issues", nil, "Issue numbers to gather as workspace context")
	f.DurationVar(&initFlags.postSetupTimeout, "post-setup-timeout", workspace.DefaultPostSetupTimeout, "Bound on the project's post-setup command")
}

func runInit(cmd *cobra.Command, args []string) error {
	projectKey, branch := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	project, err := cfg.Project(projectKey)
	if err != nil {
		return err
	}
	paths := workspace.ResolvePaths(cfg.Settings, project, branch)

	policy := workspace.PolicyInteractive
	switch {
	case initFlags.yes:
		policy = workspace.PolicySilent
	case initFlags.noInput:
		policy = workspace.PolicyFailFast
	}

	var fetcher contextdata.Fetcher
	org, repo, ok := orgRepoFromURL(project.Repo)
	if len(initFlags.issues) > 0 {
		if !ok {
			return fmt.Errorf("cannot derive org/repo for issue context from %q", project.Repo)
		}
		fetcher = &contextdata.GitHubFetcher{Token: os.Getenv("GITHUB_TOKEN")}
	}

	progress := ui.NewProgress(cmd.OutOrStdout())
	p := workspace.NewProvisioner(gitcmd.ExecRunner{}, fetcher, ui.Confirm)
	outcome, err := p.Provision(cmd.Context(), project, paths, branch, workspace.Options{
		Policy:           policy,
		Org:              org,
		Repo:             repo,
		Issues:           initFlags.issues,
		Events:           progress.Events(),
		PostSetupTimeout: initFlags.postSetupTimeout,
	})
	progress.Stop()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workspace: %s\n", paths.Root)
	if outcome.WorkingTreesCreated {
		fmt.Fprintf(out, "Working tree: %s (branch %s)\n", paths.Primary, branch)
		if paths.Companion != "" {
			fmt.Fprintf(out, "Companion:    %s\n", paths.Companion)
		}
	} else {
		fmt.Fprintf(out, "Working trees unavailable; continuing in workspace-only mode.\n")
	}
	return nil
}

// orgRepoFromURL extracts the org and repository from a git URL such as
// git@github.com:org/repo.git or https://github.com/org/repo.git.
func orgRepoFromURL(url string) (org, repo string, ok bool) {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if idx := strings.LastIndex(url, ":"); idx != -1 && !strings.Contains(url, "://") {
		url = url[idx+1:]
	} else if idx := strings.Index(url, "://"); idx != -1 {
		url = url[idx+3:]
		if slash := strings.Index(url, "/"); slash != -1 {
			url = url[slash+1:]
		}
	}
	parts := strings.Split(url, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}
