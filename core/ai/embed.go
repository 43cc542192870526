package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/manifold-ai/manifold/core/aierr"
)

// EmbedMany embeds an arbitrary number of values by splitting them into
// batches of at most model.MaxBatchSize() and accumulating usage across the
// calls. Vectors are returned in input order regardless of batch boundaries.
//
// When the model reports SupportsParallelCalls, batches are dispatched
// concurrently and usage counts are accumulated from the individual results
// after all batches complete; otherwise batches run sequentially and the
// first failure aborts the remaining ones.
func EmbedMany(ctx context.Context, model EmbeddingModel, values []string) (*Embeddings, error) {
	if len(values) == 0 {
		return nil, &aierr.ConfigError{
			Provider: model.ProviderID(),
			Model:    model.ModelID(),
			Message:  "no values to embed",
		}
	}

	batchSize := model.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	if len(values) <= batchSize {
		return model.Embed(ctx, values)
	}

	var batches [][]string
	for start := 0; start < len(values); start += batchSize {
		end := min(start+batchSize, len(values))
		batches = append(batches, values[start:end])
	}

	results := make([]*Embeddings, len(batches))

	if model.SupportsParallelCalls() {
		var wg sync.WaitGroup
		errs := make([]error, len(batches))

		for i, batch := range batches {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = model.Embed(ctx, batch)
			}()
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	} else {
		for i, batch := range batches {
			result, err := model.Embed(ctx, batch)
			if err != nil {
				return nil, fmt.Errorf("embedding batch %d/%d: %w", i+1, len(batches), err)
			}
			results[i] = result
		}
	}

	combined := &Embeddings{}
	for _, result := range results {
		combined.Vectors = append(combined.Vectors, result.Vectors...)
		combined.Usage.Add(result.Usage)
	}

	return combined, nil
}
