package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/ai"
)

func intPtr(v int) *int { return &v }

func TestModelCost_Price(t *testing.T) {
	pricing := ModelCost{InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00}

	breakdown := pricing.Price(ai.Usage{PromptTokens: 1_000_000, CompletionTokens: 500_000})

	assert.InDelta(t, 2.50, breakdown.InputCost, 1e-9)
	assert.InDelta(t, 5.00, breakdown.OutputCost, 1e-9)
	assert.InDelta(t, 7.50, breakdown.TotalCost, 1e-9)
	assert.Equal(t, "USD", breakdown.Currency)
}

func TestModelCost_PriceCachedTokens(t *testing.T) {
	pricing := ModelCost{
		InputCostPerMillion:       2.00,
		OutputCostPerMillion:      8.00,
		CachedInputCostPerMillion: 0.50,
	}

	// 400k of the 1M prompt tokens hit the cache.
	breakdown := pricing.Price(ai.Usage{
		PromptTokens:      1_000_000,
		CompletionTokens:  0,
		CachedInputTokens: intPtr(400_000),
	})

	assert.InDelta(t, 1.20, breakdown.InputCost, 1e-9)
	assert.InDelta(t, 0.20, breakdown.CachedCost, 1e-9)
	assert.InDelta(t, 1.40, breakdown.TotalCost, 1e-9)
}

func TestModelCost_PriceCachedWithoutRate(t *testing.T) {
	pricing := ModelCost{InputCostPerMillion: 2.00, OutputCostPerMillion: 8.00}

	breakdown := pricing.Price(ai.Usage{
		PromptTokens:      1_000_000,
		CachedInputTokens: intPtr(400_000),
	})

	// No cached rate: everything bills at the input rate.
	assert.InDelta(t, 2.00, breakdown.InputCost, 1e-9)
	assert.Zero(t, breakdown.CachedCost)
}

func TestModelCost_PriceReasoningTokens(t *testing.T) {
	pricing := ModelCost{
		InputCostPerMillion:     2.00,
		OutputCostPerMillion:    8.00,
		ReasoningCostPerMillion: 8.00,
	}

	breakdown := pricing.Price(ai.Usage{
		PromptTokens:     100_000,
		CompletionTokens: 50_000,
		ReasoningTokens:  intPtr(200_000),
	})

	assert.InDelta(t, 1.60, breakdown.ReasoningCost, 1e-9)
	assert.InDelta(t, 0.20+0.40+1.60, breakdown.TotalCost, 1e-9)
}

func TestTable_Lookup(t *testing.T) {
	table := Table{
		"openai:gpt-4o":      {InputCostPerMillion: 2.50, OutputCostPerMillion: 10.00},
		"openai:gpt-4o-mini": {InputCostPerMillion: 0.15, OutputCostPerMillion: 0.60},
	}

	exact, ok := table.Lookup("openai", "gpt-4o")
	require.True(t, ok)
	assert.InDelta(t, 2.50, exact.InputCostPerMillion, 1e-9)

	// Dated snapshots resolve to the longest matching prefix.
	snapshot, ok := table.Lookup("openai", "gpt-4o-mini-2024-07-18")
	require.True(t, ok)
	assert.InDelta(t, 0.15, snapshot.InputCostPerMillion, 1e-9)

	_, ok = table.Lookup("openai", "unknown-model")
	assert.False(t, ok)
}

func TestTable_Calculate(t *testing.T) {
	table := DefaultTable()

	breakdown, ok := table.Calculate("anthropic", "claude-sonnet-4-20250514", ai.Usage{
		PromptTokens:     10_000,
		CompletionTokens: 2_000,
	})
	require.True(t, ok)
	assert.InDelta(t, 0.03+0.03, breakdown.TotalCost, 1e-9)

	_, ok = table.Calculate("nobody", "nothing", ai.Usage{})
	assert.False(t, ok)
}

func TestTokenCounter_CountMessages(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4o")
	if err != nil {
		t.Skipf("encoding unavailable: %v", err)
	}

	messages := []ai.Message{
		ai.SystemMessage("You are terse."),
		ai.UserText("Say hello."),
	}

	count := counter.CountMessages(messages)
	single := counter.CountMessages(messages[:1])
	assert.Greater(t, count, single)
	assert.Greater(t, single, tokensPerMessage+tokensPerReply)
}
