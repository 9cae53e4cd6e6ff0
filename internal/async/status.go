// Package async runs indexing jobs in an isolated background worker and
// reports lifecycle status through a one-directional event channel.
package async

import "github.com/Aman-CERP/librarian/internal/index"

// Phase is the lifecycle stage carried by a StatusEvent.
type Phase string

const (
	// PhaseStarting is emitted once when the worker begins setup.
	PhaseStarting Phase = "starting"
	// PhaseRunning carries progress messages while files are processed.
	PhaseRunning Phase = "running"
	// PhaseCompleted is the terminal event of a successful run.
	PhaseCompleted Phase = "completed"
	// PhaseInterrupted is the terminal event of a cooperatively stopped
	// run; counters cover everything indexed before the stop.
	PhaseInterrupted Phase = "interrupted"
	// PhaseError is the terminal event when setup fails (lock or store
	// unavailable). Per-document failures are counters, not errors.
	PhaseError Phase = "error"
)

// StatusEvent is one immutable progress or outcome record emitted by the
// worker. Consumers switch on Phase: Stats is meaningful for the terminal
// completed/interrupted phases, Err only for error.
type StatusEvent struct {
	Phase   Phase
	Message string
	Stats   index.Stats
	Err     string
}

// Terminal reports whether the event ends the run.
func (e StatusEvent) Terminal() bool {
	switch e.Phase {
	case PhaseCompleted, PhaseInterrupted, PhaseError:
		return true
	}
	return false
}
