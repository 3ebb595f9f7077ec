package ui

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"arbor/internal/config"
)

// RenderProjects writes the configured project table.
func RenderProjects(w io.Writer, cfg *config.File) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Key", "Name", "Repository", "Companion", "Post-Setup"})
	for _, key := range cfg.Keys() {
		p := cfg.Projects[key]
		companion := ""
		if p.SampleRepo != "" {
			companion = p.SampleRepo
		}
		tw.AppendRow(table.Row{p.Key, p.Name, p.Repo, companion, p.PostSetup})
	}
	tw.Render()
}
