package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrRunActive is returned when an operation needs the runner to be idle, completed or cancelled
var ErrRunActive = errors.New("a run is already in progress")

// ErrNoOperation is returned when a job with items has no operation to perform
var ErrNoOperation = errors.New("job has no operation")

// ErrDuplicateItem is returned when two work items of a job share an ID
var ErrDuplicateItem = errors.New("duplicate work item id")

// Runner executes a Job one item and one stage at a time.
// A Runner holds at most one run; observers read it through Snapshot.
type Runner struct {
	opts Options
	log  *log.Entry

	mu              sync.Mutex
	state           Snapshot
	cancelRequested bool
	cancelCh        chan struct{} // closed on the first Cancel of a run
	done            chan struct{} // closed when the run reaches a terminal phase
}

// NewRunner creates an idle runner
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Runner{
		opts:  opts,
		log:   logger,
		state: Snapshot{Phase: PhaseIdle, Items: []ItemProgress{}},
	}
}

// Start begins a run in the background. It returns ErrRunActive, leaving the
// current run untouched, if one is already running. An empty job completes
// before Start returns.
func (r *Runner) Start(ctx context.Context, job Job) error {
	if len(job.Items) > 0 && job.Operation == nil {
		return ErrNoOperation
	}
	if err := checkUniqueIDs(job.Items); err != nil {
		return err
	}

	r.mu.Lock()
	if r.state.Phase == PhaseRunning {
		r.mu.Unlock()
		return ErrRunActive
	}

	items := make([]ItemProgress, len(job.Items))
	for i, item := range job.Items {
		items[i] = ItemProgress{
			ID:              item.ID,
			PrimaryLabel:    item.PrimaryLabel,
			SecondaryLabel:  item.SecondaryLabel,
			PrimaryStatus:   StatusPending,
			SecondaryStatus: StatusPending,
		}
	}

	r.state = Snapshot{
		RunID:     uuid.NewString(),
		Label:     job.Label,
		Phase:     PhaseRunning,
		Items:     items,
		StartedAt: time.Now(),
	}
	r.cancelRequested = false
	r.cancelCh = make(chan struct{})
	r.done = make(chan struct{})
	started := r.snapshotLocked()
	r.mu.Unlock()

	r.log.WithFields(log.Fields{"run": started.RunID, "items": len(items)}).Infof("🚀 Run started: %s", job.Label)
	for _, o := range r.opts.Observers {
		o.RunStarted(started)
	}

	if len(job.Items) == 0 {
		r.finish()
		return nil
	}

	go r.run(ctx, job)
	return nil
}

// Cancel asks the current run to stop. Operations already in flight are not
// interrupted; the run stops at the next checkpoint.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCancelLocked()
}

// Reset returns a finished runner to idle. It returns ErrRunActive while a run is in progress.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Phase == PhaseRunning {
		return ErrRunActive
	}

	r.state = Snapshot{Phase: PhaseIdle, Items: []ItemProgress{}}
	r.cancelRequested = false
	return nil
}

// Snapshot returns a copy of the current state
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Done returns a channel closed once the current run has finished.
// For a runner that never started it is already closed.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return r.done
}

// Wait blocks until the current run finishes or ctx is done
func (r *Runner) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-r.Done():
		return r.Snapshot(), nil
	case <-ctx.Done():
		return r.Snapshot(), ctx.Err()
	}
}

// run walks the items in order. It owns all state transitions of the run.
func (r *Runner) run(ctx context.Context, job Job) {
	last := len(job.Items) - 1

	for i, item := range job.Items {
		if r.stopRequested(ctx) {
			break
		}

		r.performStage(ctx, job.Operation, i, item.ID, StagePrimary)

		// Checked again so a cancel issued during the primary stage skips the secondary one.
		if r.stopRequested(ctx) {
			break
		}

		r.performStage(ctx, job.Operation, i, item.ID, StageSecondary)

		if i < last && !r.stopRequested(ctx) {
			r.pause(ctx)
		}
	}

	r.finish()
}

// performStage runs one stage of item i and records its outcome
func (r *Runner) performStage(ctx context.Context, op Operation, i int, itemID string, stage Stage) {
	r.mu.Lock()
	setStage(&r.state.Items[i], stage, StatusInProgress, "")
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.notifyStage(snap, itemID, stage)

	stageStart := time.Now()
	message, err := op.Perform(ctx, itemID, stage)

	entry := r.log.WithFields(log.Fields{
		"run":      snap.RunID,
		"item":     itemID,
		"stage":    stage,
		"duration": time.Since(stageStart),
	})

	status, errMsg := StatusSucceeded, ""
	if err != nil {
		status, errMsg = StatusFailed, NewStageFailure(err).Message
		entry.Warnf("❌ Stage failed: %s", errMsg)
	} else {
		entry.Debugf("✅ Stage done: %s", message)
	}

	r.mu.Lock()
	setStage(&r.state.Items[i], stage, status, errMsg)
	r.state.CompletedPercent = completedPercent(r.state.Items)
	snap = r.snapshotLocked()
	r.mu.Unlock()
	r.notifyStage(snap, itemID, stage)
}

// pause waits ItemDelay, returning early on a cancel request
func (r *Runner) pause(ctx context.Context) {
	if r.opts.ItemDelay <= 0 {
		return
	}

	r.mu.Lock()
	cancelCh := r.cancelCh
	r.mu.Unlock()

	timer := time.NewTimer(r.opts.ItemDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-cancelCh:
	case <-ctx.Done():
	}
}

// stopRequested reports whether the run should stop. A done ctx counts as a cancel request.
func (r *Runner) stopRequested(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		r.requestCancelLocked()
	}
	return r.cancelRequested
}

// finish moves the run to its terminal phase and notifies observers
func (r *Runner) finish() {
	r.mu.Lock()
	now := time.Now()
	r.state.FinishedAt = &now

	if r.cancelRequested {
		r.state.Phase = PhaseCancelled
	} else {
		r.state.Phase = PhaseCompleted
		r.state.CompletedPercent = completedPercent(r.state.Items)
		tallies := tally(r.state.Items)
		r.state.Tallies = &tallies
	}

	snap := r.snapshotLocked()
	done := r.done
	r.mu.Unlock()

	entry := r.log.WithFields(log.Fields{"run": snap.RunID, "duration": snap.Duration()})
	if snap.Phase == PhaseCancelled {
		entry.Infof("🛑 Run cancelled: %s (%d%%)", snap.Label, snap.CompletedPercent)
	} else {
		entry.Infof("🏁 Run completed: %s (%d succeeded, %d with errors)", snap.Label, snap.Tallies.FullySucceeded, snap.Tallies.HasError)
	}

	for _, o := range r.opts.Observers {
		o.RunFinished(snap)
	}
	close(done)
}

func (r *Runner) notifyStage(snap Snapshot, itemID string, stage Stage) {
	for _, o := range r.opts.Observers {
		o.StageChanged(snap, itemID, stage)
	}
}

func (r *Runner) requestCancelLocked() {
	if r.cancelRequested {
		return
	}
	r.cancelRequested = true
	if r.state.Phase == PhaseRunning && r.cancelCh != nil {
		close(r.cancelCh)
	}
}

func (r *Runner) snapshotLocked() Snapshot {
	snap := r.state
	snap.Items = make([]ItemProgress, len(r.state.Items))
	copy(snap.Items, r.state.Items)
	if r.state.Tallies != nil {
		tallies := *r.state.Tallies
		snap.Tallies = &tallies
	}
	if r.state.FinishedAt != nil {
		finished := *r.state.FinishedAt
		snap.FinishedAt = &finished
	}
	return snap
}

// checkUniqueIDs rejects jobs whose items cannot be told apart by observers
func checkUniqueIDs(items []WorkItem) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateItem, item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

func setStage(p *ItemProgress, stage Stage, status StageStatus, errMsg string) {
	if stage == StageSecondary {
		p.SecondaryStatus = status
		p.SecondaryError = errMsg
		return
	}
	p.PrimaryStatus = status
	p.PrimaryError = errMsg
}

// completedPercent is the rounded share of settled stages; an empty list counts as complete
func completedPercent(items []ItemProgress) int {
	if len(items) == 0 {
		return 100
	}
	settled := 0
	for _, item := range items {
		if item.PrimaryStatus.IsTerminal() {
			settled++
		}
		if item.SecondaryStatus.IsTerminal() {
			settled++
		}
	}
	return int(math.Round(float64(settled) * 100 / float64(2*len(items))))
}

func tally(items []ItemProgress) Tallies {
	var t Tallies
	for _, item := range items {
		if item.PrimaryStatus == StatusSucceeded && item.SecondaryStatus == StatusSucceeded {
			t.FullySucceeded++
		}
		if item.PrimaryStatus == StatusFailed || item.SecondaryStatus == StatusFailed {
			t.HasError++
		}
	}
	return t
}
