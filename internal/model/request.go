package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Stage is the current step of a workflow request's pipeline.
type Stage string

const (
	StagePending         Stage = "pending"
	StageAnalyzing       Stage = "analyzing"
	StageAwaitingAnswers Stage = "awaiting_answers"
	StageGeneratingSpec  Stage = "generating_spec"
	StageSpecReview      Stage = "spec_review"
	StageSpecApproved    Stage = "spec_approved"
	StageGeneratingJSON  Stage = "generating_json"
	StageTesting         Stage = "testing"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
)

// WorkflowRequest is one user-initiated generation pipeline instance.
// It is mutated exclusively by the workflow service, one field group
// per stage transition.
type WorkflowRequest struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserRequirement string `gorm:"type:text;not null" json:"user_requirement"`

	// Produced at the analyze stage
	AnalyzedRequirement datatypes.JSON `json:"analyzed_requirement,omitempty"`
	QuestionsAsked      datatypes.JSON `json:"questions_asked,omitempty"`

	// Question/answer pairs joined at answer submission
	UserAnswers datatypes.JSON `json:"user_answers,omitempty"`

	// Mutable once, via the spec-review correction path
	DevelopmentSpec string `gorm:"type:text" json:"development_spec,omitempty"`

	GeneratedJSON string         `gorm:"type:text" json:"generated_json,omitempty"`
	TestResults   datatypes.JSON `json:"test_results,omitempty"`

	// Set only when the request reaches completed
	FinalJSON string `gorm:"type:text" json:"final_json,omitempty"`

	Status Stage `gorm:"type:varchar(50);default:pending;index" json:"status"`
}

// Question is one clarifying question produced by requirement analysis.
type Question struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	QuestionType string   `json:"question_type"` // text, choice, multiple_choice
	Options      []string `json:"options,omitempty"`
	Required     bool     `json:"required"`
}

// Answer is the user's answer to one clarifying question.
type Answer struct {
	QuestionID string `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

// JoinedAnswer pairs an answer with the original question text.
// An answer whose question id is unknown keeps an empty question.
type JoinedAnswer struct {
	QuestionID string `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}
