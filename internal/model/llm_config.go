package model

import (
	"time"

	"gorm.io/gorm"
)

// LLMConfig is a named generation-provider configuration. At most one
// row is active; the active row selects the provider used by the
// workflow pipeline.
type LLMConfig struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `gorm:"type:varchar(100);not null" json:"name"`
	Provider string `gorm:"type:varchar(50);not null" json:"provider"` // openai, anthropic, ollama, custom

	APIKey string `gorm:"type:varchar(255)" json:"-"`
	APIURL string `gorm:"type:varchar(512)" json:"api_url,omitempty"`

	ModelName   string `gorm:"type:varchar(100);not null" json:"model_name"`
	Temperature int    `gorm:"default:70" json:"temperature"` // 0-100
	MaxTokens   int    `gorm:"default:4000" json:"max_tokens"`

	IsActive  bool `gorm:"default:false;index" json:"is_active"`
	IsDefault bool `gorm:"default:false" json:"is_default"`
}
