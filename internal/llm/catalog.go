package llm

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/domain"
)

const (
	defaultMaxTokens = 1500
	articleTokenCap  = 8000
)

// ModelSpec is a catalog entry: descriptor, generation budget and per-1K pricing.
type ModelSpec struct {
	domain.ModelDescriptor
	MaxTokens   int
	InputPer1K  decimal.Decimal
	OutputPer1K decimal.Decimal
	Listed      bool // offered through listAvailableModels
}

func spec(id, name, desc string, cat domain.ModelCategory, family string, maxTokens int, in, out string, listed bool) ModelSpec {
	return ModelSpec{
		ModelDescriptor: domain.ModelDescriptor{ID: id, Name: name, Description: desc, Category: cat, Family: family},
		MaxTokens:       maxTokens,
		InputPer1K:      decimal.RequireFromString(in),
		OutputPer1K:     decimal.RequireFromString(out),
		Listed:          listed,
	}
}

var catalog = []ModelSpec{
	spec("gpt-4o-mini", "GPT-4o Mini", "Fastest and cheapest", domain.CategoryFast, config.FamilyOpenAI, 2000, "0.00015", "0.0006", true),
	spec("gpt-3.5-turbo", "GPT-3.5 Turbo", "Fast and economical", domain.CategoryFast, config.FamilyOpenAI, 1500, "0.0015", "0.002", true),
	spec("claude-3-5-haiku-20241022", "Claude 3.5 Haiku", "Fast and cheap", domain.CategoryFast, config.FamilyAnthropic, 2000, "0.00025", "0.00125", true),

	spec("gpt-4o", "GPT-4o", "Good balance of quality and speed", domain.CategoryBalanced, config.FamilyOpenAI, 4000, "0.005", "0.015", true),
	spec("gpt-4-turbo", "GPT-4 Turbo", "High quality", domain.CategoryBalanced, config.FamilyOpenAI, 4000, "0.01", "0.03", true),
	spec("claude-3-5-sonnet-20241022", "Claude 3.5 Sonnet", "Balanced quality", domain.CategoryBalanced, config.FamilyAnthropic, 4000, "0.003", "0.015", true),

	spec("gpt-4", "GPT-4", "Maximum quality", domain.CategoryQuality, config.FamilyOpenAI, 4000, "0.03", "0.06", true),
	spec("claude-3-sonnet-20240229", "Claude 3 Sonnet", "Alternative to GPT-4", domain.CategoryQuality, config.FamilyAnthropic, 4000, "0.003", "0.015", true),

	spec("claude-3-opus-20240229", "Claude 3 Opus", "Premium quality", domain.CategoryPremium, config.FamilyAnthropic, 4000, "0.015", "0.075", true),
	spec("gpt-4-32k", "GPT-4 32K", "Long contexts", domain.CategoryPremium, config.FamilyOpenAI, 8000, "0.06", "0.12", true),

	// priced but not offered
	spec("gpt-3.5-turbo-16k", "GPT-3.5 Turbo 16K", "", domain.CategoryFast, config.FamilyOpenAI, 3000, "0.003", "0.004", false),
	spec("gpt-4-turbo-preview", "GPT-4 Turbo Preview", "", domain.CategoryBalanced, config.FamilyOpenAI, 4000, "0.01", "0.03", false),
	spec("claude-3-haiku-20240307", "Claude 3 Haiku", "", domain.CategoryFast, config.FamilyAnthropic, 1500, "0.00025", "0.00125", false),
}

var catalogIndex = func() map[string]ModelSpec {
	idx := make(map[string]ModelSpec, len(catalog))
	for _, m := range catalog {
		idx[m.ID] = m
	}
	return idx
}()

// familyDefaults prices and serves unknown models of a family.
var familyDefaults = map[string]string{
	config.FamilyOpenAI:    "gpt-4o-mini",
	config.FamilyAnthropic: "claude-3-5-sonnet-20241022",
}

// LookupModel returns the catalog entry for id.
func LookupModel(id string) (ModelSpec, bool) {
	m, ok := catalogIndex[id]
	return m, ok
}

// Models returns the models offered to callers, in catalog order.
func Models() []ModelSpec {
	out := make([]ModelSpec, 0, len(catalog))
	for _, m := range catalog {
		if m.Listed {
			out = append(out, m)
		}
	}
	return out
}

// FamilyOf returns the declared provider family of a model. Unknown ids are
// attributed by prefix.
func FamilyOf(model string) string {
	if m, ok := catalogIndex[model]; ok {
		return m.Family
	}
	if strings.HasPrefix(strings.ToLower(model), "claude") {
		return config.FamilyAnthropic
	}
	return config.FamilyOpenAI
}

// DefaultModel returns the fallback model of a family.
func DefaultModel(family string) string {
	return familyDefaults[family]
}

// SlotModel returns the model of family that fills the same category as
// model, or the family default when the family has no model in that category.
func SlotModel(family, model string) string {
	if m, ok := catalogIndex[model]; ok {
		for _, c := range catalog {
			if c.Listed && c.Family == family && c.Category == m.Category {
				return c.ID
			}
		}
	}
	return DefaultModel(family)
}

// OutlineMaxTokens is the output budget of an outline call.
func OutlineMaxTokens(model string) int {
	if m, ok := catalogIndex[model]; ok {
		return m.MaxTokens
	}
	return defaultMaxTokens
}

// ArticleMaxTokens is the output budget of article and revision calls.
func ArticleMaxTokens(model string) int {
	return min(OutlineMaxTokens(model)*2, articleTokenCap)
}
