package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/timmy/quill/internal/domain"
)

func TestCostModel(t *testing.T) {
	cm := NewCostModel()
	tests := []struct {
		name  string
		model string
		usage domain.Usage
		want  string
	}{
		{"gpt-4o-mini", "gpt-4o-mini", domain.NewUsage(1000, 500), "0.00045"},
		{"gpt-4o", "gpt-4o", domain.NewUsage(123, 0), "0.000615"},
		{"claude sonnet", "claude-3-5-sonnet-20241022", domain.NewUsage(1000, 1000), "0.018"},
		{"unknown openai priced as default", "gpt-9-experimental", domain.NewUsage(1000, 500), "0.00045"},
		{"unknown claude priced as default", "claude-next", domain.NewUsage(1000, 1000), "0.018"},
		{"zero usage", "gpt-4", domain.Usage{}, "0"},
		{"rounded to six places", "gpt-4o-mini", domain.NewUsage(1, 0), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cm.Cost(tt.model, tt.usage)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCatalogLookups(t *testing.T) {
	assert.Equal(t, "anthropic", FamilyOf("claude-3-opus-20240229"))
	assert.Equal(t, "anthropic", FamilyOf("Claude-custom"))
	assert.Equal(t, "openai", FamilyOf("gpt-4o"))
	assert.Equal(t, "openai", FamilyOf("some-local-model"))

	assert.Equal(t, 2000, OutlineMaxTokens("gpt-4o-mini"))
	assert.Equal(t, 4000, ArticleMaxTokens("gpt-4o-mini"))
	assert.Equal(t, 8000, ArticleMaxTokens("gpt-4-32k"))
	assert.Equal(t, 1500, OutlineMaxTokens("unknown"))

	assert.Equal(t, "claude-3-5-haiku-20241022", SlotModel("anthropic", "gpt-4o-mini"))
	assert.Equal(t, "gpt-4o", SlotModel("openai", "claude-3-5-sonnet-20241022"))
	assert.Equal(t, "claude-3-5-sonnet-20241022", SlotModel("anthropic", "not-in-catalog"))

	for _, m := range Models() {
		assert.True(t, m.Listed)
	}
}
