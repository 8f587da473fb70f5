package runner

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duoaudio/runner/storage"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) Broadcast(eventType string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
}

func TestStoreObserverPersistsRun(t *testing.T) {
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	op := &scriptedOp{failures: map[string]error{"2/secondary": errors.New("voice not found")}}
	r := NewRunner(Options{Observers: []Observer{NewStoreObserver(store, 12)}})

	snap := runToEnd(t, r, Job{Label: "Fruits", Items: makeItems(2), Operation: op})

	run, err := store.GetRun(snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, "Fruits", run.Label)
	assert.Equal(t, 12, run.LessonID)
	assert.Equal(t, 2, run.TotalItems)
	assert.Equal(t, 100, run.CompletedPercent)
	assert.Equal(t, 1, run.FullySucceeded)
	assert.Equal(t, 1, run.HasError)

	stages, err := store.GetItemStages(snap.RunID)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	assert.Equal(t, "word 1", stages[0].Label)
	assert.Equal(t, "example 1", stages[1].Label)
	assert.Equal(t, "succeeded", stages[0].Status)
	assert.Equal(t, "failed", stages[3].Status)
	assert.Equal(t, "voice not found", stages[3].Error)
	assert.NotNil(t, stages[3].Duration)
}

func TestStoreObserverPersistsCancelledRun(t *testing.T) {
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	r := NewRunner(Options{Observers: []Observer{NewStoreObserver(store, 1)}})
	op := &scriptedOp{}
	op.after = func(itemID string, stage Stage) {
		if itemID == "1" && stage == StagePrimary {
			r.Cancel()
		}
	}

	snap := runToEnd(t, r, Job{Items: makeItems(3), Operation: op})

	run, err := store.GetRun(snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", run.Status)
	assert.Equal(t, 17, run.CompletedPercent)

	stages, err := store.GetItemStages(snap.RunID)
	require.NoError(t, err)
	assert.Equal(t, "pending", stages[1].Status)
}

func TestBroadcastObserverEvents(t *testing.T) {
	b := &fakeBroadcaster{}
	r := NewRunner(Options{Observers: []Observer{NewBroadcastObserver(b, 3)}})

	runToEnd(t, r, Job{Items: makeItems(1), Operation: &scriptedOp{}})

	assert.Equal(t, []string{
		"run_started",
		"stage_changed", "stage_changed",
		"stage_changed", "stage_changed",
		"run_finished",
	}, b.events)
}

func TestTerminalObserverOutput(t *testing.T) {
	var buf bytes.Buffer
	op := &scriptedOp{failures: map[string]error{"1/secondary": errors.New("timeout")}}
	r := NewRunner(Options{Observers: []Observer{NewTerminalObserver(&buf)}})

	require.NoError(t, r.Start(context.Background(), Job{Label: "Animals", Items: makeItems(1), Operation: op}))
	_, err := r.Wait(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "📦 Animals: 1 item(s)")
	assert.Contains(t, out, "→ word 1 [primary]")
	assert.Contains(t, out, "✅ Done: word 1 (50%)")
	assert.Contains(t, out, "❌ Failed: example 1: timeout (100%)")
	assert.Contains(t, out, "🏁 Finished: 0 fully succeeded, 1 with errors")
}

func pendingSnapshot(runID string) Snapshot {
	return Snapshot{
		RunID: runID,
		Label: runID,
		Phase: PhaseRunning,
		Items: []ItemProgress{{
			ID:              "1",
			PrimaryLabel:    "word 1",
			SecondaryLabel:  "example 1",
			PrimaryStatus:   StatusPending,
			SecondaryStatus: StatusPending,
		}},
		StartedAt: time.Now(),
	}
}

func TestStoreObserverKeepsStageTimesOfNextRun(t *testing.T) {
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	o := NewStoreObserver(store, 1)

	first := pendingSnapshot("run-a")
	o.RunStarted(first)

	// the next run starts before the first one's RunFinished arrives
	next := pendingSnapshot("run-b")
	o.RunStarted(next)
	next.Items[0].PrimaryStatus = StatusInProgress
	o.StageChanged(next, "1", StagePrimary)

	time.Sleep(5 * time.Millisecond)

	first.Phase = PhaseCompleted
	o.RunFinished(first)

	next.Items[0].PrimaryStatus = StatusSucceeded
	o.StageChanged(next, "1", StagePrimary)

	stages, err := store.GetItemStages("run-b")
	require.NoError(t, err)
	require.Len(t, stages, 2)
	require.NotNil(t, stages[0].Duration)
	d, err := time.ParseDuration(*stages[0].Duration)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
}
