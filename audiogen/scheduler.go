package audiogen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"duoaudio/config"
	"duoaudio/runner"
)

// Scheduler triggers bulk generation for lessons based on configured schedules
type Scheduler struct {
	cfg         *config.Config
	service     *Service
	stopChan    chan struct{}
	lastRuns    map[string]time.Time // track last execution per schedule
	mu          sync.RWMutex         // protect lastRuns and runningJobs
	runningJobs map[string]bool      // schedules still starting their lessons
	now         func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, service *Service) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		service:     service,
		stopChan:    make(chan struct{}),
		lastRuns:    make(map[string]time.Time),
		runningJobs: make(map[string]bool),
		now:         time.Now,
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	log.Infof("📅 Scheduler started (%d schedule(s))", len(s.cfg.Schedules))
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	// Run tick immediately on start
	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopChan:
			log.Info("📅 Scheduler stopped")
			return
		}
	}
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// tick checks all schedules and triggers runs if needed. The returned group
// is done once every triggered schedule has started its lessons.
func (s *Scheduler) tick() *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	for i, schedule := range s.cfg.Schedules {
		scheduleKey := fmt.Sprintf("schedule-%d", i)

		s.mu.RLock()
		lastRun := s.lastRuns[scheduleKey]
		isRunning := s.runningJobs[scheduleKey]
		s.mu.RUnlock()

		// Skip if already running
		if isRunning {
			continue
		}

		if !s.shouldRun(schedule, lastRun) {
			continue
		}

		s.mu.Lock()
		s.runningJobs[scheduleKey] = true
		s.lastRuns[scheduleKey] = s.now()
		s.mu.Unlock()

		wg.Add(1)
		go func(sched config.Schedule, key string) {
			defer wg.Done()
			s.executeSchedule(sched)

			s.mu.Lock()
			delete(s.runningJobs, key)
			s.mu.Unlock()
		}(schedule, scheduleKey)
	}
	return wg
}

// shouldRun determines if a schedule should be triggered now
func (s *Scheduler) shouldRun(schedule config.Schedule, lastRun time.Time) bool {
	now := s.now()

	// Time-based schedule (at: "HH:MM")
	if schedule.At != "" {
		hour, minute, err := config.ParseAtTime(schedule.At)
		if err != nil {
			log.Warnf("⚠️  Invalid time format '%s': %v", schedule.At, err)
			return false
		}

		if now.Hour() == hour && now.Minute() == minute {
			// Ensure we only run once per day at this time
			return lastRun.IsZero() || now.Sub(lastRun) >= 23*time.Hour
		}
		return false
	}

	// Interval-based schedule (every: "1h", "30m", etc.)
	if schedule.Every != "" {
		interval, err := config.ParseInterval(schedule.Every)
		if err != nil {
			log.Warnf("⚠️  Invalid interval format '%s': %v", schedule.Every, err)
			return false
		}

		// First run or interval elapsed
		return lastRun.IsZero() || now.Sub(lastRun) >= interval
	}

	return false
}

// executeSchedule starts bulk generation for every lesson of the schedule
func (s *Scheduler) executeSchedule(schedule config.Schedule) {
	trigger := schedule.At
	if trigger == "" {
		trigger = schedule.Every
	}
	log.Infof("⏰ Schedule triggered: %s - %s", strings.Join(schedule.Lessons, ", "), trigger)

	for _, ref := range schedule.Lessons {
		lesson, err := s.cfg.GetLesson(ref)
		if err != nil {
			log.Warnf("⚠️  Schedule skipped lesson: %v", err)
			continue
		}

		voice := s.cfg.VoiceFor(lesson)
		if schedule.Voice != "" {
			voice = s.cfg.VoiceFor(&config.Lesson{Voice: schedule.Voice})
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		_, err = s.service.StartLesson(ctx, Request{
			LessonID:    lesson.ID,
			Label:       lesson.Name,
			Voice:       voice,
			MissingOnly: schedule.OnlyMissing(),
		})
		cancel()

		switch {
		case errors.Is(err, runner.ErrRunActive):
			log.Infof("⏭️  Lesson %s is already generating, skipped", lesson.Name)
		case err != nil:
			log.Errorf("❌ Scheduled run failed for %s: %v", lesson.Name, err)
		default:
			log.Infof("✅ Scheduled run started: %s", lesson.Name)
		}
	}
}
