package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when no run has the requested ID
var ErrRunNotFound = errors.New("run not found")

const runColumns = "id, label, lesson_id, status, total_items, completed_percent, fully_succeeded, has_error, started_at, finished_at, duration"

// CreateRun creates a new run record
func (s *Storage) CreateRun(runID, label string, lessonID, totalItems int, startedAt time.Time) (*Run, error) {
	_, err := s.db.Exec(
		"INSERT INTO runs (id, label, lesson_id, status, total_items, started_at) VALUES (?, ?, ?, ?, ?, ?)",
		runID, label, lessonID, "running", totalItems, startedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &Run{
		ID:         runID,
		Label:      label,
		LessonID:   lessonID,
		Status:     "running",
		TotalItems: totalItems,
		StartedAt:  startedAt,
	}, nil
}

// UpdateRunProgress stores the completed percentage of a running run
func (s *Storage) UpdateRunProgress(runID string, percent int) error {
	_, err := s.db.Exec("UPDATE runs SET completed_percent = ? WHERE id = ?", percent, runID)
	if err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	return nil
}

// FinishRun records the terminal status, tallies and finish time of a run
func (s *Storage) FinishRun(runID, status string, percent, fullySucceeded, hasError int, duration time.Duration) error {
	now := time.Now()
	durationStr := duration.String()
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_percent = ?, fully_succeeded = ?, has_error = ?, finished_at = ?, duration = ?
		 WHERE id = ?`,
		status, percent, fullySucceeded, hasError, now, durationStr, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// GetRuns retrieves all runs, ordered by most recent first
func (s *Storage) GetRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query("SELECT "+runColumns+" FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetRun retrieves a single run by ID
func (s *Storage) GetRun(runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var finishedAt sql.NullTime
	var duration sql.NullString

	err := row.Scan(&r.ID, &r.Label, &r.LessonID, &r.Status, &r.TotalItems, &r.CompletedPercent,
		&r.FullySucceeded, &r.HasError, &r.StartedAt, &finishedAt, &duration)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Time
	}
	if duration.Valid {
		durationStr := duration.String
		r.Duration = &durationStr
	}

	return &r, nil
}
