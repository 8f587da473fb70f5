package runner

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Phase is the lifecycle state of a runner
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCancelled Phase = "cancelled"
	PhaseCompleted Phase = "completed"
)

// IsTerminal reports whether a run in this phase has finished
func (p Phase) IsTerminal() bool {
	return p == PhaseCancelled || p == PhaseCompleted
}

// Stage discriminates the two remote operations applied to each item
type Stage string

const (
	StagePrimary   Stage = "primary"
	StageSecondary Stage = "secondary"
)

// StageStatus moves forward only: pending -> in_progress -> succeeded|failed
type StageStatus string

const (
	StatusPending    StageStatus = "pending"
	StatusInProgress StageStatus = "in_progress"
	StatusSucceeded  StageStatus = "succeeded"
	StatusFailed     StageStatus = "failed"
)

// IsTerminal reports whether the stage has settled
func (s StageStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// WorkItem identifies one unit of work
type WorkItem struct {
	ID             string `json:"id"`
	PrimaryLabel   string `json:"primary_label"`
	SecondaryLabel string `json:"secondary_label"`
}

// ItemProgress is the status record of one work item
type ItemProgress struct {
	ID              string      `json:"id"`
	PrimaryLabel    string      `json:"primary_label"`
	SecondaryLabel  string      `json:"secondary_label"`
	PrimaryStatus   StageStatus `json:"primary_status"`
	SecondaryStatus StageStatus `json:"secondary_status"`
	PrimaryError    string      `json:"primary_error,omitempty"`
	SecondaryError  string      `json:"secondary_error,omitempty"`
}

// Status returns the status of the given stage
func (p ItemProgress) Status(stage Stage) StageStatus {
	if stage == StageSecondary {
		return p.SecondaryStatus
	}
	return p.PrimaryStatus
}

// Error returns the failure message of the given stage
func (p ItemProgress) Error(stage Stage) string {
	if stage == StageSecondary {
		return p.SecondaryError
	}
	return p.PrimaryError
}

// Tallies summarizes a completed run
type Tallies struct {
	FullySucceeded int `json:"fully_succeeded"`
	HasError       int `json:"has_error"`
}

// Snapshot is a read-only copy of a runner's state
type Snapshot struct {
	RunID            string         `json:"run_id,omitempty"`
	Label            string         `json:"label,omitempty"`
	Phase            Phase          `json:"phase"`
	CompletedPercent int            `json:"completed_percent"`
	Items            []ItemProgress `json:"items"`
	Tallies          *Tallies       `json:"tallies,omitempty"`
	StartedAt        time.Time      `json:"started_at,omitempty"`
	FinishedAt       *time.Time     `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or has taken so far
func (s Snapshot) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt != nil {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// Operation performs one stage of remote work for an item.
// A non-nil error marks the stage as failed; the returned message is informational.
type Operation interface {
	Perform(ctx context.Context, itemID string, stage Stage) (string, error)
}

// OperationFunc adapts a plain function to Operation
type OperationFunc func(ctx context.Context, itemID string, stage Stage) (string, error)

// Perform calls f(ctx, itemID, stage)
func (f OperationFunc) Perform(ctx context.Context, itemID string, stage Stage) (string, error) {
	return f(ctx, itemID, stage)
}

// Job is one invocation of the runner
type Job struct {
	Label     string     // Display name of the run (e.g. the lesson)
	Items     []WorkItem // Processed in order
	Operation Operation  // Performs both stages of every item
}

// Observer receives snapshots as a run progresses. Calls are made from the
// run goroutine, in order, and must not block for long.
type Observer interface {
	RunStarted(s Snapshot)
	StageChanged(s Snapshot, itemID string, stage Stage)
	RunFinished(s Snapshot)
}

// Options configures a Runner
type Options struct {
	ItemDelay time.Duration // Pause between items (0 = none)
	Observers []Observer    // Optional progress observers
	Logger    *log.Entry    // Optional logger (defaults to the standard logger)
}

// DefaultItemDelay is the pause inserted between items when none is configured
const DefaultItemDelay = 500 * time.Millisecond
