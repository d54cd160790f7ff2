package model

import (
	"time"

	"gorm.io/datatypes"
)

// Learned-example provenance sources.
const (
	SourceDocs      = "official_docs"
	SourceTemplates = "templates"
	SourceGitHub    = "github"
)

// Complexity tiers derived from node/connection counts.
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

// LearnedExample is one corpus artifact collected by a crawler.
// Rows are never mutated or deleted after creation. DedupKey is
// source|canonical-url, or source|content-hash when the artifact has no
// canonical URL of its own; the unique index on it makes admission
// races resolve to a single row.
type LearnedExample struct {
	ID uint `gorm:"primarykey" json:"id"`

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Source    string `gorm:"type:varchar(50);not null;index" json:"source"`
	SourceURL string `gorm:"type:varchar(512)" json:"source_url,omitempty"`

	WorkflowJSON string `gorm:"type:text;not null" json:"-"`
	DedupKey     string `gorm:"type:varchar(600);not null;uniqueIndex:idx_examples_dedup" json:"-"`

	Tags            datatypes.JSON `json:"tags,omitempty"`
	NodesUsed       datatypes.JSON `json:"nodes_used,omitempty"`
	ComplexityLevel string         `gorm:"type:varchar(50);index" json:"complexity_level,omitempty"`

	// Popularity score, e.g. repository stars. Zero for sources without one.
	Stars int `gorm:"default:0;index" json:"stars"`

	LearnedAt time.Time `gorm:"index" json:"learned_at"`
}
