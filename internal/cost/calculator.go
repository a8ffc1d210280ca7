// Package cost estimates the spend of the text review stage.
package cost

import "github.com/sells-group/pdm-qc/pkg/anthropic"

// Rates holds per-model Anthropic pricing.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates. Empty rates fall
// back to DefaultRates.
func NewCalculator(rates Rates) *Calculator {
	if len(rates.Anthropic) == 0 {
		rates = DefaultRates()
	}
	return &Calculator{rates: rates}
}

// Known reports whether the model has a rate.
func (c *Calculator) Known(model string) bool {
	_, ok := c.rates.Anthropic[model]
	return ok
}

// Claude computes the cost in USD for a Claude API call.
func (c *Calculator) Claude(model string, isBatch bool, input, output, cacheWrite, cacheRead int64) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	batchMul := 1.0
	if isBatch {
		batchMul = rate.BatchDiscount
	}

	inCost := (float64(input) / 1e6) * rate.Input * batchMul
	outCost := (float64(output) / 1e6) * rate.Output * batchMul
	cwCost := (float64(cacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul * batchMul
	crCost := (float64(cacheRead) / 1e6) * rate.Input * rate.CacheReadMul * batchMul

	return inCost + outCost + cwCost + crCost
}

// Usage is Claude applied to an accumulated TokenUsage.
func (c *Calculator) Usage(model string, isBatch bool, u anthropic.TokenUsage) float64 {
	return c.Claude(model, isBatch, u.InputTokens, u.OutputTokens, u.CacheCreationInputTokens, u.CacheReadInputTokens)
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	haiku := ModelRate{
		Input: 1.00, Output: 5.00,
		BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
	}
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5":          haiku,
			"claude-haiku-4-5-20251001": haiku,
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				BatchDiscount: 0.5, CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
	}
}
