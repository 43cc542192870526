package ai

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manifold-ai/manifold/core/aierr"
)

// fakeEmbedder is a test double that records batch sizes and returns a
// one-dimensional vector per input (the input's length) so ordering is
// verifiable.
type fakeEmbedder struct {
	mu         sync.Mutex
	maxBatch   int
	parallel   bool
	batchSizes []int
}

func (f *fakeEmbedder) ProviderID() string          { return "fake" }
func (f *fakeEmbedder) ModelID() string             { return "fake-embed" }
func (f *fakeEmbedder) MaxBatchSize() int           { return f.maxBatch }
func (f *fakeEmbedder) SupportsParallelCalls() bool { return f.parallel }

func (f *fakeEmbedder) Embed(_ context.Context, values []string) (*Embeddings, error) {
	if len(values) > f.maxBatch {
		return nil, &aierr.ConfigError{
			Provider: "fake",
			Message:  fmt.Sprintf("batch of %d exceeds limit %d", len(values), f.maxBatch),
		}
	}

	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(values))
	f.mu.Unlock()

	result := &Embeddings{Usage: Usage{PromptTokens: len(values), TotalTokens: len(values)}}
	for _, value := range values {
		result.Vectors = append(result.Vectors, []float64{float64(len(value))})
	}
	return result, nil
}

func TestEmbedMany_SingleBatchPassthrough(t *testing.T) {
	embedder := &fakeEmbedder{maxBatch: 10}
	result, err := EmbedMany(context.Background(), embedder, []string{"a", "bb"})
	require.NoError(t, err)
	require.Len(t, result.Vectors, 2)
	assert.Equal(t, []int{2}, embedder.batchSizes)
}

func TestEmbedMany_SplitsAndPreservesOrder(t *testing.T) {
	embedder := &fakeEmbedder{maxBatch: 2}
	values := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	result, err := EmbedMany(context.Background(), embedder, values)
	require.NoError(t, err)
	require.Len(t, result.Vectors, len(values))

	for i, value := range values {
		assert.Equal(t, float64(len(value)), result.Vectors[i][0], "vector %d out of order", i)
	}

	// 5 values with batch size 2 → batches of 2, 2, 1.
	assert.Equal(t, []int{2, 2, 1}, embedder.batchSizes)

	// Usage accumulates across batches.
	assert.Equal(t, 5, result.Usage.PromptTokens)
	assert.Equal(t, 5, result.Usage.TotalTokens)
}

func TestEmbedMany_ParallelAccumulatesUsage(t *testing.T) {
	embedder := &fakeEmbedder{maxBatch: 1, parallel: true}
	values := []string{"a", "bb", "ccc"}

	result, err := EmbedMany(context.Background(), embedder, values)
	require.NoError(t, err)
	require.Len(t, result.Vectors, 3)
	assert.Equal(t, 3, result.Usage.TotalTokens)

	// Order is preserved even though batches ran concurrently.
	for i, value := range values {
		assert.Equal(t, float64(len(value)), result.Vectors[i][0])
	}
}

func TestEmbedMany_EmptyInput(t *testing.T) {
	embedder := &fakeEmbedder{maxBatch: 4}
	_, err := EmbedMany(context.Background(), embedder, nil)
	require.Error(t, err)

	var configErr *aierr.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

// Embed rejects oversize batches; EmbedMany succeeds on the same input via
// batching.
func TestEmbedVersusEmbedMany_BatchLimit(t *testing.T) {
	embedder := &fakeEmbedder{maxBatch: 2}
	values := []string{"a", "b", "c"}

	_, err := embedder.Embed(context.Background(), values)
	require.Error(t, err)

	result, err := EmbedMany(context.Background(), embedder, values)
	require.NoError(t, err)
	assert.Len(t, result.Vectors, 3)
}
