package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateItemStages inserts the pending stage records of a run in one transaction
func (s *Storage) CreateItemStages(runID string, stages []ItemStage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO item_stages (run_id, item_id, label, stage, status) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare item stage insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stages {
		if _, err := stmt.Exec(runID, st.ItemID, st.Label, st.Stage, st.Status); err != nil {
			return fmt.Errorf("failed to create item stage %s/%s: %w", st.ItemID, st.Stage, err)
		}
	}

	return tx.Commit()
}

// StartItemStage marks a stage as in progress
func (s *Storage) StartItemStage(runID, itemID, stage string) error {
	_, err := s.db.Exec(
		"UPDATE item_stages SET status = ?, started_at = ? WHERE run_id = ? AND item_id = ? AND stage = ?",
		"in_progress", time.Now(), runID, itemID, stage,
	)
	if err != nil {
		return fmt.Errorf("failed to start item stage: %w", err)
	}
	return nil
}

// FinishItemStage records the outcome of a stage
func (s *Storage) FinishItemStage(runID, itemID, stage, status, errMsg string, duration time.Duration) error {
	now := time.Now()
	durationStr := duration.String()

	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE item_stages SET status = ?, error = ?, finished_at = ?, duration = ?
		 WHERE run_id = ? AND item_id = ? AND stage = ?`,
		status, errVal, now, durationStr, runID, itemID, stage,
	)
	if err != nil {
		return fmt.Errorf("failed to finish item stage: %w", err)
	}
	return nil
}

// GetItemStages retrieves all stage records of a run in insertion order
func (s *Storage) GetItemStages(runID string) ([]*ItemStage, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, item_id, label, stage, status, error, started_at, finished_at, duration
		 FROM item_stages WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query item stages: %w", err)
	}
	defer rows.Close()

	stages := make([]*ItemStage, 0)
	for rows.Next() {
		var st ItemStage
		var errMsg sql.NullString
		var startedAt, finishedAt sql.NullTime
		var duration sql.NullString

		err := rows.Scan(&st.ID, &st.RunID, &st.ItemID, &st.Label, &st.Stage, &st.Status, &errMsg, &startedAt, &finishedAt, &duration)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item stage: %w", err)
		}

		if errMsg.Valid {
			st.Error = errMsg.String
		}
		if startedAt.Valid {
			st.StartedAt = &startedAt.Time
		}
		if finishedAt.Valid {
			st.FinishedAt = &finishedAt.Time
		}
		if duration.Valid {
			durationStr := duration.String
			st.Duration = &durationStr
		}

		stages = append(stages, &st)
	}

	return stages, rows.Err()
}
