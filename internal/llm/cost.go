package llm

import (
	"github.com/shopspring/decimal"

	"github.com/timmy/quill/internal/domain"
)

const costPlaces = 6

var thousand = decimal.NewFromInt(1000)

// CostModel prices token usage per model. It is pure and safe for concurrent use.
type CostModel struct {
	prices map[string]ModelSpec
}

// NewCostModel builds a CostModel over the model catalog.
func NewCostModel() *CostModel {
	return &CostModel{prices: catalogIndex}
}

// Cost returns prompt/1000*input + completion/1000*output, rounded to six
// places. Unknown models are priced as their family's default model.
func (c *CostModel) Cost(model string, u domain.Usage) decimal.Decimal {
	m, ok := c.prices[model]
	if !ok {
		m = c.prices[DefaultModel(FamilyOf(model))]
	}
	in := decimal.NewFromInt(int64(u.PromptTokens)).Div(thousand).Mul(m.InputPer1K)
	out := decimal.NewFromInt(int64(u.CompletionTokens)).Div(thousand).Mul(m.OutputPer1K)
	return in.Add(out).RoundBank(costPlaces)
}
