package storage

import "time"

// Run represents one bulk generation run
type Run struct {
	ID               string     `json:"id"`
	Label            string     `json:"label"`
	LessonID         int        `json:"lesson_id"`
	Status           string     `json:"status"` // "running", "completed", "cancelled"
	TotalItems       int        `json:"total_items"`
	CompletedPercent int        `json:"completed_percent"`
	FullySucceeded   int        `json:"fully_succeeded"`
	HasError         int        `json:"has_error"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	Duration         *string    `json:"duration,omitempty"`
}

// ItemStage represents one stage of one work item within a run
type ItemStage struct {
	ID         int        `json:"id"`
	RunID      string     `json:"run_id"`
	ItemID     string     `json:"item_id"`
	Label      string     `json:"label"`
	Stage      string     `json:"stage"`  // "primary" or "secondary"
	Status     string     `json:"status"` // "pending", "in_progress", "succeeded", "failed"
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Duration   *string    `json:"duration,omitempty"`
}
