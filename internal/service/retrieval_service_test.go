package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalqa/assistant/internal/vectorindex"
	"github.com/legalqa/assistant/pkg/cache"
)

func hits(distances ...float64) []vectorindex.Hit {
	out := make([]vectorindex.Hit, 0, len(distances))
	for i, d := range distances {
		out = append(out, vectorindex.Hit{
			ID:       string(rune('1' + i)),
			Distance: d,
			Metadata: vectorindex.Metadata{Question: "q", Answer: "a", Category: "Contract Law"},
		})
	}

	return out
}

func TestRetrievalService_Retrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("shapes hits into scored sources", func(t *testing.T) {
		querier := &mockVectorQuerier{
			queryFunc: func(_ context.Context, _ []float32, _ int) ([]vectorindex.Hit, error) {
				return hits(0.0, 0.25), nil
			},
		}
		svc := NewRetrievalService(RetrievalServiceParams{EmbeddingClient: &mockEmbeddingClient{}, Index: querier})

		result := svc.Retrieve(ctx, "What is a contract?", 2)
		require.NoError(t, result.Err)
		require.Len(t, result.Sources, 2)
		assert.Equal(t, "1", result.Sources[0].ID)
		assert.Equal(t, "Contract Law", result.Sources[0].Category)
		assert.InDelta(t, 100.0, result.Sources[0].SimilarityScore, 1e-9)
		assert.InDelta(t, 75.0, result.Sources[1].SimilarityScore, 1e-9)
	})

	t.Run("never more than topK and ordered by score", func(t *testing.T) {
		querier := &mockVectorQuerier{
			queryFunc: func(_ context.Context, _ []float32, _ int) ([]vectorindex.Hit, error) {
				return hits(0.1, 0.4, 0.9, 1.7), nil
			},
		}
		svc := NewRetrievalService(RetrievalServiceParams{EmbeddingClient: &mockEmbeddingClient{}, Index: querier})

		result := svc.Retrieve(ctx, "question", 2)
		require.NoError(t, result.Err)
		require.Len(t, result.Sources, 2)

		for i := 1; i < len(result.Sources); i++ {
			assert.GreaterOrEqual(t, result.Sources[i-1].SimilarityScore, result.Sources[i].SimilarityScore)
		}

		for _, src := range result.Sources {
			assert.GreaterOrEqual(t, src.SimilarityScore, 0.0)
			assert.LessOrEqual(t, src.SimilarityScore, 100.0)
		}
	})

	t.Run("non-positive topK uses default", func(t *testing.T) {
		querier := &mockVectorQuerier{}
		svc := NewRetrievalService(RetrievalServiceParams{EmbeddingClient: &mockEmbeddingClient{}, Index: querier})

		result := svc.Retrieve(ctx, "question", 0)
		require.NoError(t, result.Err)
		assert.Empty(t, result.Sources)
		assert.Equal(t, DefaultTopK, querier.gotK)
	})

	t.Run("embedding failure degrades to no sources", func(t *testing.T) {
		client := &mockEmbeddingClient{
			createFunc: func(context.Context, string) ([]float32, error) { return nil, errors.New("model offline") },
		}
		querier := &mockVectorQuerier{}
		svc := NewRetrievalService(RetrievalServiceParams{EmbeddingClient: client, Index: querier})

		result := svc.Retrieve(ctx, "question", 2)
		require.ErrorIs(t, result.Err, ErrEmbeddingFailed)
		assert.Contains(t, result.Err.Error(), "model offline")
		assert.NotNil(t, result.Sources)
		assert.Empty(t, result.Sources)
		assert.Zero(t, querier.gotK, "index must not be queried")
	})

	t.Run("index failure degrades to no sources", func(t *testing.T) {
		querier := &mockVectorQuerier{
			queryFunc: func(context.Context, []float32, int) ([]vectorindex.Hit, error) {
				return nil, errors.New("disk I/O error")
			},
		}
		svc := NewRetrievalService(RetrievalServiceParams{EmbeddingClient: &mockEmbeddingClient{}, Index: querier})

		result := svc.Retrieve(ctx, "question", 2)
		require.ErrorIs(t, result.Err, ErrIndexQueryFailed)
		assert.Empty(t, result.Sources)
	})

	t.Run("query embeddings are cached", func(t *testing.T) {
		queryCache, err := cache.NewLoaderCache[string, []float32](10, func(s string) string { return s })
		require.NoError(t, err)

		client := &mockEmbeddingClient{}
		svc := NewRetrievalService(RetrievalServiceParams{
			EmbeddingClient: client,
			Index:           &mockVectorQuerier{},
			QueryCache:      queryCache,
		})

		svc.Retrieve(ctx, "Can I break my lease?", 2)
		svc.Retrieve(ctx, "  Can I break my lease?  ", 2)

		assert.Equal(t, int32(1), client.calls.Load())
		assert.Equal(t, 1, queryCache.Len())
	})
}
