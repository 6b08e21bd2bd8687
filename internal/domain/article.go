package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// DefaultTargetLength is the target character count when a request omits one.
const DefaultTargetLength = 5000

// StringArray stores a string slice as JSON text.
type StringArray []string

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("failed to scan StringArray")
	}
}

// Article is a generation request together with the state of its job and,
// once completed, the result payload. The request fields (topic through
// model) never change after creation.
type Article struct {
	ID            string `gorm:"type:text;primaryKey" json:"id"`
	Topic         string `gorm:"type:text;not null" json:"topic"`
	Thesis        string `gorm:"type:text;not null" json:"thesis"`
	StyleExamples string `gorm:"type:text" json:"style_examples,omitempty"`
	TargetLength  int    `gorm:"not null;default:5000" json:"target_length"`
	Model         string `gorm:"type:text;not null" json:"model"`

	Status       JobStatus `gorm:"type:text;index:idx_articles_status;default:pending" json:"status"`
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`

	// Result payload, present only when Status is completed.
	Keywords        StringArray `gorm:"type:text" json:"keywords,omitempty"`
	Questions       StringArray `gorm:"type:text" json:"questions,omitempty"`
	Outline         string      `gorm:"type:text" json:"outline,omitempty"`
	Content         string      `gorm:"type:text" json:"content,omitempty"`
	Score           *float64    `json:"score,omitempty"`
	Recommendations StringArray `gorm:"type:text" json:"recommendations,omitempty"`
	Provider        string      `gorm:"type:text" json:"provider,omitempty"`
	ServedModel     string      `gorm:"type:text" json:"served_model,omitempty"`
	Substituted     bool        `json:"substituted,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_articles_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"index:idx_articles_updated" json:"updated_at"`
}

// TableName returns the database table name for Article.
func (Article) TableName() string {
	return "articles"
}

// ArticleResult is the payload written when a job completes.
type ArticleResult struct {
	Keywords        []string
	Questions       []string
	Outline         string
	Content         string
	Score           float64
	Recommendations []string
	Provider        string
	ServedModel     string
	Substituted     bool
}

// HasResult reports whether the result payload is populated.
func (a *Article) HasResult() bool {
	return a.Content != "" || a.Score != nil
}

// Length returns the character count of the article content.
func (a *Article) Length() int {
	return CharCount(a.Content)
}

// CheckInvariants verifies the status/payload/error coupling of a record.
func (a *Article) CheckInvariants() error {
	if !a.Status.Valid() {
		return fmt.Errorf("article %s: unknown status %q", a.ID, a.Status)
	}
	completed := a.Status == JobStatusCompleted
	if completed != a.HasResult() {
		return fmt.Errorf("article %s: result present=%t with status %s", a.ID, a.HasResult(), a.Status)
	}
	failed := a.Status == JobStatusFailed
	if failed != (a.ErrorMessage != "") {
		return fmt.Errorf("article %s: error message present=%t with status %s", a.ID, a.ErrorMessage != "", a.Status)
	}
	if completed && (*a.Score < 0 || *a.Score > 10) {
		return fmt.Errorf("article %s: score %.2f out of range", a.ID, *a.Score)
	}
	return nil
}

// CharCount counts characters (runes), not bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
