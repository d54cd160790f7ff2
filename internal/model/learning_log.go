package model

import "time"

// Learning-log run statuses.
const (
	LogStatusRunning   = "running"
	LogStatusCompleted = "completed"
	LogStatusFailed    = "failed"
)

// LearningLog is one audit record per source per learning cycle.
// Exactly one row opens when a source's crawl starts and is closed
// (completed or failed) before the crawl returns to the orchestrator.
type LearningLog struct {
	ID uint `gorm:"primarykey" json:"id"`

	LearningType  string `gorm:"type:varchar(50);not null;index" json:"learning_type"` // docs, templates, github
	ExamplesFound int    `gorm:"default:0" json:"examples_found"`
	ExamplesAdded int    `gorm:"default:0" json:"examples_added"`

	Status string `gorm:"type:varchar(50);default:running" json:"status"`

	// Non-empty iff Status is failed
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	StartedAt   time.Time  `gorm:"index" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
