package storage

import (
	"database/sql"
	"fmt"
)

// LessonRunStats summarizes one persisted run of a lesson
type LessonRunStats struct {
	RunID            string  `json:"run_id"`
	Status           string  `json:"status"`
	TotalItems       int     `json:"total_items"`
	CompletedPercent int     `json:"completed_percent"`
	FullySucceeded   int     `json:"fully_succeeded"`
	HasError         int     `json:"has_error"`
	FailedStages     int     `json:"failed_stages"`
	Duration         *string `json:"duration,omitempty"`
	StartedAt        string  `json:"started_at"`
}

// GetLatestRunsByLesson returns the latest runs of a lesson with their failed stage counts
func (s *Storage) GetLatestRunsByLesson(lessonID, limit int) ([]LessonRunStats, error) {
	query := `
		SELECT
			r.id,
			r.status,
			r.total_items,
			r.completed_percent,
			r.fully_succeeded,
			r.has_error,
			COUNT(st.id) as failed_stages,
			r.duration,
			r.started_at
		FROM runs r
		LEFT JOIN item_stages st ON r.id = st.run_id AND st.status = 'failed'
		WHERE r.lesson_id = ?
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, lessonID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest runs: %w", err)
	}
	defer rows.Close()

	stats := make([]LessonRunStats, 0)
	for rows.Next() {
		var stat LessonRunStats
		var duration sql.NullString

		err := rows.Scan(
			&stat.RunID,
			&stat.Status,
			&stat.TotalItems,
			&stat.CompletedPercent,
			&stat.FullySucceeded,
			&stat.HasError,
			&stat.FailedStages,
			&duration,
			&stat.StartedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run stats: %w", err)
		}

		if duration.Valid {
			durationStr := duration.String
			stat.Duration = &durationStr
		}

		stats = append(stats, stat)
	}

	return stats, rows.Err()
}
