// Package cost turns usage records into USD amounts and estimates prompt
// token counts ahead of a call. Pricing lives in a [Table] keyed by
// "provider:model"; the built-in table covers the common hosted models and
// applications can extend or replace it.
package cost

import (
	"fmt"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
)

// ModelCost is the pricing structure for one model, in USD per million
// tokens. Cached-input and reasoning rates are optional; zero means the
// provider bills those tokens at the plain input/output rate already counted.
type ModelCost struct {
	// InputCostPerMillion is the cost in USD per 1 million input tokens
	InputCostPerMillion float64 `json:"input_cost_per_million"`

	// OutputCostPerMillion is the cost in USD per 1 million output tokens
	OutputCostPerMillion float64 `json:"output_cost_per_million"`

	// CachedInputCostPerMillion is the discounted rate some providers
	// charge for prompt-cache hits (optional)
	CachedInputCostPerMillion float64 `json:"cached_input_cost_per_million,omitempty"`

	// ReasoningCostPerMillion is the rate for chain-of-thought tokens on
	// reasoning models (optional)
	ReasoningCostPerMillion float64 `json:"reasoning_cost_per_million,omitempty"`
}

// String returns a formatted string representation of the model costs.
func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M",
		mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Breakdown is the per-component result of pricing one usage record.
type Breakdown struct {
	InputCost     float64 `json:"input_cost"`
	OutputCost    float64 `json:"output_cost"`
	CachedCost    float64 `json:"cached_cost,omitempty"`
	ReasoningCost float64 `json:"reasoning_cost,omitempty"`
	TotalCost     float64 `json:"total_cost"`

	// Currency is always "USD"
	Currency string `json:"currency"`
}

func perMillion(tokens int, rate float64) float64 {
	return (float64(tokens) / 1_000_000.0) * rate
}

// Price applies this pricing to a usage record. Cached input tokens are
// assumed to be included in PromptTokens: when a cached rate exists they are
// moved from the input bucket to the cached bucket, matching how OpenAI and
// Anthropic report usage.
func (mc ModelCost) Price(usage ai.Usage) Breakdown {
	inputTokens := usage.PromptTokens
	cachedTokens := 0
	if usage.CachedInputTokens != nil && mc.CachedInputCostPerMillion > 0 {
		cachedTokens = *usage.CachedInputTokens
		if cachedTokens > inputTokens {
			cachedTokens = inputTokens
		}
		inputTokens -= cachedTokens
	}

	breakdown := Breakdown{
		InputCost:  perMillion(inputTokens, mc.InputCostPerMillion),
		OutputCost: perMillion(usage.CompletionTokens, mc.OutputCostPerMillion),
		CachedCost: perMillion(cachedTokens, mc.CachedInputCostPerMillion),
		Currency:   "USD",
	}
	if usage.ReasoningTokens != nil && mc.ReasoningCostPerMillion > 0 {
		breakdown.ReasoningCost = perMillion(*usage.ReasoningTokens, mc.ReasoningCostPerMillion)
	}
	breakdown.TotalCost = breakdown.InputCost + breakdown.OutputCost + breakdown.CachedCost + breakdown.ReasoningCost
	return breakdown
}

// Table maps "provider:model" keys to pricing. Lookups fall back to the
// longest key prefix, so "openai:gpt-4o" also covers "openai:gpt-4o-2024-11-20".
type Table map[string]ModelCost

// Lookup resolves pricing for a model, trying the exact key first and then
// the longest prefix.
func (t Table) Lookup(provider, model string) (ModelCost, bool) {
	key := provider + ":" + model
	if pricing, ok := t[key]; ok {
		return pricing, true
	}

	bestLen := -1
	var best ModelCost
	for candidate, pricing := range t {
		if strings.HasPrefix(key, candidate) && len(candidate) > bestLen {
			bestLen = len(candidate)
			best = pricing
		}
	}
	if bestLen < 0 {
		return ModelCost{}, false
	}
	return best, true
}

// Calculate prices a usage record against the table. The boolean reports
// whether pricing for the model was found.
func (t Table) Calculate(provider, model string, usage ai.Usage) (Breakdown, bool) {
	pricing, ok := t.Lookup(provider, model)
	if !ok {
		return Breakdown{Currency: "USD"}, false
	}
	return pricing.Price(usage), true
}

// DefaultTable returns pricing for the commonly used hosted models, current
// as of mid-2025. Callers needing exact billing should maintain their own
// table; list prices change.
func DefaultTable() Table {
	return Table{
		"openai:gpt-4o":       {InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00, CachedInputCostPerMillion: 1.25},
		"openai:gpt-4o-mini":  {InputCostPerMillion: 0.15, OutputCostPerMillion: 0.60, CachedInputCostPerMillion: 0.075},
		"openai:gpt-4.1":      {InputCostPerMillion: 2.00, OutputCostPerMillion: 8.00, CachedInputCostPerMillion: 0.50},
		"openai:gpt-4.1-mini": {InputCostPerMillion: 0.40, OutputCostPerMillion: 1.60, CachedInputCostPerMillion: 0.10},
		"openai:o3":           {InputCostPerMillion: 2.00, OutputCostPerMillion: 8.00, ReasoningCostPerMillion: 8.00},
		"openai:o4-mini":      {InputCostPerMillion: 1.10, OutputCostPerMillion: 4.40, ReasoningCostPerMillion: 4.40},

		"anthropic:claude-sonnet-4":   {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, CachedInputCostPerMillion: 0.30},
		"anthropic:claude-opus-4":     {InputCostPerMillion: 15.00, OutputCostPerMillion: 75.00, CachedInputCostPerMillion: 1.50},
		"anthropic:claude-3-5-haiku":  {InputCostPerMillion: 0.80, OutputCostPerMillion: 4.00, CachedInputCostPerMillion: 0.08},
		"anthropic:claude-3-7-sonnet": {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00, CachedInputCostPerMillion: 0.30},

		"google:gemini-2.5-pro":   {InputCostPerMillion: 1.25, OutputCostPerMillion: 10.00},
		"google:gemini-2.5-flash": {InputCostPerMillion: 0.30, OutputCostPerMillion: 2.50},
		"google:gemini-2.0-flash": {InputCostPerMillion: 0.10, OutputCostPerMillion: 0.40},

		"groq:llama-3.3-70b-versatile": {InputCostPerMillion: 0.59, OutputCostPerMillion: 0.79},
		"groq:llama-3.1-8b-instant":    {InputCostPerMillion: 0.05, OutputCostPerMillion: 0.08},

		"deepseek:deepseek-chat":     {InputCostPerMillion: 0.27, OutputCostPerMillion: 1.10, CachedInputCostPerMillion: 0.07},
		"deepseek:deepseek-reasoner": {InputCostPerMillion: 0.55, OutputCostPerMillion: 2.19, CachedInputCostPerMillion: 0.14},

		"mistral:mistral-large-latest": {InputCostPerMillion: 2.00, OutputCostPerMillion: 6.00},
		"mistral:mistral-small-latest": {InputCostPerMillion: 0.10, OutputCostPerMillion: 0.30},

		"xai:grok-3":      {InputCostPerMillion: 3.00, OutputCostPerMillion: 15.00},
		"xai:grok-3-mini": {InputCostPerMillion: 0.30, OutputCostPerMillion: 0.50},

		"cohere:command-a":       {InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00},
		"perplexity:sonar":       {InputCostPerMillion: 1.00, OutputCostPerMillion: 1.00},
		"cerebras:llama-3.3-70b": {InputCostPerMillion: 0.85, OutputCostPerMillion: 1.20},
	}
}
