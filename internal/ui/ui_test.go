package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"

	"arbor/internal/config"
	"arbor/internal/workspace"
)

func TestRenderProjects(t *testing.T) {
	cfg := &config.File{
		Projects: map[string]*config.Project{
			"sdk": {Key: "sdk", Name: "Device SDK", Repo: "git@github.com:acme/sdk.git", SampleRepo: "git@github.com:acme/samples.git"},
		},
	}

	var buf bytes.Buffer
	RenderProjects(&buf, cfg)
	out := buf.String()
	for _, want := range []string{"sdk", "Device SDK", "acme/samples.git"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestProgressPrintsTransitions(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	run := uuid.New()
	p.Events() <- workspace.Event{Run: run, Op: "worktrees", Phase: workspace.PhaseStarted}
	p.Events() <- workspace.Event{Run: run, Op: "worktrees", Phase: workspace.PhaseSucceeded}
	p.Stop()

	out := buf.String()
	if !strings.Contains(out, "... Setting up working trees") {
		t.Errorf("missing started line:\n%s", out)
	}
	if !strings.Contains(out, "ok  Setting up working trees") {
		t.Errorf("missing succeeded line:\n%s", out)
	}
}
