package audiogen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	log "github.com/sirupsen/logrus"

	"duoaudio/content"
	"duoaudio/runner"
	"duoaudio/runner/storage"
)

// ErrNoRun is returned for a lesson that never had a run in this process
var ErrNoRun = errors.New("no run for lesson")

// Options configures a Service
type Options struct {
	ItemDelay   time.Duration
	Storage     *storage.Storage   // Optional run history
	Broadcaster runner.Broadcaster // Optional live events
	Observers   []runner.Observer  // Added to every lesson runner
	Logger      *log.Entry
}

// Request describes one bulk generation for a lesson
type Request struct {
	LessonID    int
	Label       string
	Voice       content.Voice
	MissingOnly bool
}

// Service keeps one runner per lesson, so a lesson has at most one active run
// while different lessons run independently.
type Service struct {
	api     ContentAPI
	opts    Options
	log     *log.Entry
	runners *xsync.MapOf[int, *runner.Runner]

	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a service driving api
func NewService(api ContentAPI, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		api:     api,
		opts:    opts,
		log:     logger,
		runners: xsync.NewMapOf[int, *runner.Runner](),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// StartLesson fetches the lesson's words and starts a run in the background.
// The run outlives ctx, which only bounds fetching the words.
func (s *Service) StartLesson(ctx context.Context, req Request) (runner.Snapshot, error) {
	r := s.runnerFor(req.LessonID)
	if r.Snapshot().Phase == runner.PhaseRunning {
		return r.Snapshot(), runner.ErrRunActive
	}

	words, err := s.api.ListLessonWords(ctx, req.LessonID)
	if err != nil {
		return runner.Snapshot{}, err
	}

	label := req.Label
	if label == "" {
		label = fmt.Sprintf("Lesson %d", req.LessonID)
	}

	job := runner.Job{
		Label:     label,
		Items:     WorkItems(words, req.MissingOnly),
		Operation: NewOperation(s.api, req.Voice),
	}

	s.log.WithFields(log.Fields{
		"lesson":       req.LessonID,
		"words":        len(words),
		"items":        len(job.Items),
		"voice":        req.Voice,
		"missing_only": req.MissingOnly,
	}).Infof("🚀 Triggering audio generation: %s", label)

	if err := r.Start(s.ctx, job); err != nil {
		return r.Snapshot(), err
	}
	return r.Snapshot(), nil
}

// Snapshot returns the state of the lesson's runner
func (s *Service) Snapshot(lessonID int) (runner.Snapshot, error) {
	r, ok := s.runners.Load(lessonID)
	if !ok {
		return runner.Snapshot{}, ErrNoRun
	}
	return r.Snapshot(), nil
}

// Cancel requests cooperative cancellation of the lesson's run
func (s *Service) Cancel(lessonID int) error {
	r, ok := s.runners.Load(lessonID)
	if !ok {
		return ErrNoRun
	}
	r.Cancel()
	return nil
}

// Reset clears a finished run of the lesson
func (s *Service) Reset(lessonID int) error {
	r, ok := s.runners.Load(lessonID)
	if !ok {
		return ErrNoRun
	}
	return r.Reset()
}

// Wait blocks until the lesson's current run finishes
func (s *Service) Wait(ctx context.Context, lessonID int) (runner.Snapshot, error) {
	r, ok := s.runners.Load(lessonID)
	if !ok {
		return runner.Snapshot{}, ErrNoRun
	}
	return r.Wait(ctx)
}

// Snapshots returns the state of every lesson runner, keyed by lesson ID
func (s *Service) Snapshots() map[int]runner.Snapshot {
	out := make(map[int]runner.Snapshot)
	s.runners.Range(func(lessonID int, r *runner.Runner) bool {
		out[lessonID] = r.Snapshot()
		return true
	})
	return out
}

// Shutdown cancels every active run and waits for them to stop, or for ctx to end
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	var err error
	s.runners.Range(func(_ int, r *runner.Runner) bool {
		if _, waitErr := r.Wait(ctx); waitErr != nil {
			err = waitErr
			return false
		}
		return true
	})
	return err
}

func (s *Service) runnerFor(lessonID int) *runner.Runner {
	r, _ := s.runners.LoadOrCompute(lessonID, func() *runner.Runner {
		observers := make([]runner.Observer, 0, len(s.opts.Observers)+2)
		if s.opts.Storage != nil {
			observers = append(observers, runner.NewStoreObserver(s.opts.Storage, lessonID))
		}
		if s.opts.Broadcaster != nil {
			observers = append(observers, runner.NewBroadcastObserver(s.opts.Broadcaster, lessonID))
		}
		observers = append(observers, s.opts.Observers...)

		return runner.NewRunner(runner.Options{
			ItemDelay: s.opts.ItemDelay,
			Observers: observers,
			Logger:    s.log.WithField("lesson", lessonID),
		})
	})
	return r
}
