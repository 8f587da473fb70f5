package runner

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"duoaudio/runner/storage"
)

// StoreObserver persists runs and their item stages
type StoreObserver struct {
	store    *storage.Storage
	lessonID int

	mu         sync.Mutex
	stageStart map[string]map[string]time.Time // run ID -> item/stage -> start
}

// NewStoreObserver creates an observer that records runs of the given lesson
func NewStoreObserver(store *storage.Storage, lessonID int) *StoreObserver {
	return &StoreObserver{
		store:      store,
		lessonID:   lessonID,
		stageStart: make(map[string]map[string]time.Time),
	}
}

// RunStarted creates the run record and one pending record per stage
func (o *StoreObserver) RunStarted(s Snapshot) {
	if _, err := o.store.CreateRun(s.RunID, s.Label, o.lessonID, len(s.Items), s.StartedAt); err != nil {
		log.Warnf("Failed to persist run %s: %v", s.RunID, err)
		return
	}

	stages := make([]storage.ItemStage, 0, 2*len(s.Items))
	for _, item := range s.Items {
		stages = append(stages,
			storage.ItemStage{ItemID: item.ID, Label: item.PrimaryLabel, Stage: string(StagePrimary), Status: string(item.PrimaryStatus)},
			storage.ItemStage{ItemID: item.ID, Label: item.SecondaryLabel, Stage: string(StageSecondary), Status: string(item.SecondaryStatus)},
		)
	}
	if err := o.store.CreateItemStages(s.RunID, stages); err != nil {
		log.Warnf("Failed to persist item stages of run %s: %v", s.RunID, err)
	}
}

// StageChanged records a stage transition and the run's progress
func (o *StoreObserver) StageChanged(s Snapshot, itemID string, stage Stage) {
	item, ok := findItem(s, itemID)
	if !ok {
		return
	}

	key := itemID + "/" + string(stage)
	status := item.Status(stage)

	var err error
	switch {
	case status == StatusInProgress:
		o.mu.Lock()
		if o.stageStart[s.RunID] == nil {
			o.stageStart[s.RunID] = make(map[string]time.Time)
		}
		o.stageStart[s.RunID][key] = time.Now()
		o.mu.Unlock()
		err = o.store.StartItemStage(s.RunID, itemID, string(stage))
	case status.IsTerminal():
		o.mu.Lock()
		started, found := o.stageStart[s.RunID][key]
		delete(o.stageStart[s.RunID], key)
		o.mu.Unlock()

		var duration time.Duration
		if found {
			duration = time.Since(started)
		}
		err = o.store.FinishItemStage(s.RunID, itemID, string(stage), string(status), item.Error(stage), duration)
		if err == nil {
			err = o.store.UpdateRunProgress(s.RunID, s.CompletedPercent)
		}
	}

	if err != nil {
		log.Warnf("Failed to persist stage %s of item %s: %v", stage, itemID, err)
	}
}

// RunFinished records the terminal phase and tallies
func (o *StoreObserver) RunFinished(s Snapshot) {
	var tallies Tallies
	if s.Tallies != nil {
		tallies = *s.Tallies
	}

	err := o.store.FinishRun(s.RunID, string(s.Phase), s.CompletedPercent, tallies.FullySucceeded, tallies.HasError, s.Duration())
	if err != nil {
		log.Warnf("Failed to persist result of run %s: %v", s.RunID, err)
	}

	o.mu.Lock()
	delete(o.stageStart, s.RunID)
	o.mu.Unlock()
}

// Broadcaster publishes named events, e.g. to SSE clients
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
}

// BroadcastObserver publishes run progress as events
type BroadcastObserver struct {
	broadcaster Broadcaster
	lessonID    int
}

// NewBroadcastObserver creates an observer publishing progress of the given lesson
func NewBroadcastObserver(b Broadcaster, lessonID int) *BroadcastObserver {
	return &BroadcastObserver{broadcaster: b, lessonID: lessonID}
}

// RunStarted publishes a run_started event
func (o *BroadcastObserver) RunStarted(s Snapshot) {
	o.broadcaster.Broadcast("run_started", map[string]interface{}{
		"lesson_id": o.lessonID,
		"run":       s,
	})
}

// StageChanged publishes a stage_changed event
func (o *BroadcastObserver) StageChanged(s Snapshot, itemID string, stage Stage) {
	o.broadcaster.Broadcast("stage_changed", map[string]interface{}{
		"lesson_id": o.lessonID,
		"item_id":   itemID,
		"stage":     stage,
		"run":       s,
	})
}

// RunFinished publishes a run_finished event
func (o *BroadcastObserver) RunFinished(s Snapshot) {
	o.broadcaster.Broadcast("run_finished", map[string]interface{}{
		"lesson_id": o.lessonID,
		"run":       s,
	})
}

func findItem(s Snapshot, itemID string) (ItemProgress, bool) {
	for _, item := range s.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return ItemProgress{}, false
}
