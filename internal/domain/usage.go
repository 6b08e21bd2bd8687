package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Usage holds token counters for one or more provider calls.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds a Usage whose total is prompt + completion.
func NewUsage(prompt, completion int) Usage {
	return Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
}

// Add sums two usages.
func (u Usage) Add(o Usage) Usage {
	return NewUsage(u.PromptTokens+o.PromptTokens, u.CompletionTokens+o.CompletionTokens)
}

// IsZero reports whether no tokens were consumed.
func (u Usage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0
}

// Consistent reports whether total == prompt + completion.
func (u Usage) Consistent() bool {
	return u.TotalTokens == u.PromptTokens+u.CompletionTokens
}

// Usage record kinds.
const (
	UsageKindGeneration = "generation"
	UsageKindCorrection = "correction"
	UsageKindExternal   = "external"
)

// UsageRecord is the immutable accounting row for tokens consumed on behalf
// of one article.
type UsageRecord struct {
	ID               string          `gorm:"type:text;primaryKey" json:"id"`
	ArticleID        string          `gorm:"type:text;not null;index:idx_usage_article" json:"article_id"`
	Kind             string          `gorm:"type:text;not null" json:"kind"`
	Provider         string          `gorm:"type:text" json:"provider"`
	Model            string          `gorm:"type:text;not null" json:"model"`
	PromptTokens     int             `gorm:"not null" json:"prompt_tokens"`
	CompletionTokens int             `gorm:"not null" json:"completion_tokens"`
	TotalTokens      int             `gorm:"not null" json:"total_tokens"`
	Cost             decimal.Decimal `gorm:"type:decimal(10,6);not null" json:"cost_usd"`
	CreatedAt        time.Time       `json:"created_at"`
}

// TableName returns the database table name for UsageRecord.
func (UsageRecord) TableName() string {
	return "usage_records"
}

// Usage returns the record's counters.
func (r *UsageRecord) Usage() Usage {
	return Usage{PromptTokens: r.PromptTokens, CompletionTokens: r.CompletionTokens, TotalTokens: r.TotalTokens}
}
