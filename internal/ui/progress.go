package ui

import (
	"fmt"
	"io"
	"sync"

	"arbor/internal/workspace"
)

// stepLabels maps provisioning operation ids to operator-facing text.
var stepLabels = map[string]string{
	"cleanup":    "Cleaning existing workspace",
	"dirs":       "Creating directories",
	"worktrees":  "Setting up working trees",
	"context":    "Gathering issue context",
	"post-setup": "Running post-setup command",
}

// Progress consumes workspace events and prints one line per step
// transition. It decouples terminal rendering from the provisioning logic.
type Progress struct {
	out io.Writer
	wg  sync.WaitGroup
	ch  chan workspace.Event
}

// NewProgress starts a consumer goroutine and returns the progress
// renderer. Events must be closed via Stop when provisioning finishes.
func NewProgress(out io.Writer) *Progress {
	p := &Progress{out: out, ch: make(chan workspace.Event, 32)}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for ev := range p.ch {
			p.print(ev)
		}
	}()
	return p
}

// Events is the channel to hand to workspace.Options.
func (p *Progress) Events() chan<- workspace.Event { return p.ch }

// Stop closes the event stream and waits for pending output.
func (p *Progress) Stop() {
	close(p.ch)
	p.wg.Wait()
}

func (p *Progress) print(ev workspace.Event) {
	label, ok := stepLabels[ev.Op]
	if !ok {
		label = ev.Op
	}
	switch ev.Phase {
	case workspace.PhaseStarted:
		fmt.Fprintf(p.out, "  ... %s\n", label)
	case workspace.PhaseSucceeded:
		fmt.Fprintf(p.out, "  ok  %s\n", label)
	case workspace.PhaseFailed:
		fmt.Fprintf(p.out, "  err %s\n", label)
	case workspace.PhaseSkipped:
		fmt.Fprintf(p.out, "  --  %s\n", label)
	}
}
