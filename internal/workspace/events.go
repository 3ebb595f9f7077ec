package workspace

import "github.com/google/uuid"

// Phase is the lifecycle stage of one provisioning step.
type Phase string

const (
	PhaseStarted   Phase = "started"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
	PhaseSkipped   Phase = "skipped"
)

// Event is a structured progress notification. Business logic only emits
// events; rendering is the consumer's concern.
type Event struct {
	Run   uuid.UUID
	Op    string
	Phase Phase
}

// emit sends an event without ever blocking provisioning: a slow or absent
// consumer drops events, it does not stall git operations.
func emit(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
