package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arbor/internal/gitcmd"
	"arbor/internal/workspace"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <project> <branch>",
	Short: "Tear down a workspace: working trees, branch, and directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
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

	p := workspace.NewProvisioner(gitcmd.ExecRunner{}, nil, nil)
	if err := p.Teardown(cmd.Context(), paths, branch); err != nil {
		return fmt.Errorf("teardown %s: %w", paths.Root, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed workspace %s\n", paths.Root)
	return nil
}
