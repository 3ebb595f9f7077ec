package main

import (
	"github.com/spf13/cobra"

	"arbor/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ui.RenderProjects(cmd.OutOrStdout(), cfg)
		return nil
	},
}
