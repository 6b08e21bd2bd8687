package domain

// ModelCategory is the pricing tier of a model.
type ModelCategory string

const (
	CategoryFast     ModelCategory = "fast"
	CategoryBalanced ModelCategory = "balanced"
	CategoryQuality  ModelCategory = "quality"
	CategoryPremium  ModelCategory = "premium"
)

// ModelDescriptor describes a model offered to callers.
type ModelDescriptor struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    ModelCategory `json:"category"`
	Family      string        `json:"provider"`
	Substituted bool          `json:"substituted,omitempty"`
}
