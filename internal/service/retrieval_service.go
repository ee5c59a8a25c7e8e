package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/observability"
	"github.com/legalqa/assistant/internal/vectorindex"
	"github.com/legalqa/assistant/pkg/cache"
	"github.com/legalqa/assistant/pkg/embeddings"
)

// DefaultTopK is the number of sources retrieved when the caller passes a non-positive topK.
const DefaultTopK = 2

const queryEmbeddingCacheName = "query_embedding"

// Retrieval failure reasons. RetrievalResult.Err wraps one of them.
var (
	ErrEmbeddingFailed  = errors.New("embedding failed")
	ErrIndexQueryFailed = errors.New("vector index query failed")
)

// VectorQuerier is the read side of the vector index.
type VectorQuerier interface {
	Query(ctx context.Context, embedding []float32, k int) ([]vectorindex.Hit, error)
}

// RetrievalResult holds the retrieved sources, most similar first. When Err is set, Sources is
// empty and the question should be answered as if nothing matched.
type RetrievalResult struct {
	Sources []models.RetrievedSource
	Err     error
}

// RetrievalService embeds questions and looks up the nearest FAQs.
type RetrievalService struct {
	embeddingClient EmbeddingClient
	index           VectorQuerier
	queryCache      *cache.LoaderCache[string, []float32]
	cacheMetrics    observability.CacheMetrics
	logger          *slog.Logger
}

// RetrievalServiceParams configures RetrievalService. QueryCache and CacheMetrics may be nil (no caching).
type RetrievalServiceParams struct {
	EmbeddingClient EmbeddingClient
	Index           VectorQuerier
	QueryCache      *cache.LoaderCache[string, []float32]
	CacheMetrics    observability.CacheMetrics
	Logger          *slog.Logger
}

// NewRetrievalService creates a RetrievalService.
func NewRetrievalService(p RetrievalServiceParams) *RetrievalService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RetrievalService{
		embeddingClient: p.EmbeddingClient,
		index:           p.Index,
		queryCache:      p.QueryCache,
		cacheMetrics:    p.CacheMetrics,
		logger:          logger,
	}
}

// Retrieve returns at most topK sources for question. It never returns an error directly;
// failures are reported in RetrievalResult.Err alongside empty sources.
func (s *RetrievalService) Retrieve(ctx context.Context, question string, topK int) RetrievalResult {
	if topK <= 0 {
		topK = DefaultTopK
	}

	ctx, span := observability.Tracer().Start(ctx, "retrieval.retrieve")
	defer span.End()

	span.SetAttributes(attribute.Int("retrieval.top_k", topK))

	embedding, err := s.embed(ctx, strings.TrimSpace(question))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")

		return RetrievalResult{Sources: []models.RetrievedSource{}, Err: fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)}
	}

	hits, err := s.index.Query(ctx, embedding, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index query failed")

		return RetrievalResult{Sources: []models.RetrievedSource{}, Err: fmt.Errorf("%w: %w", ErrIndexQueryFailed, err)}
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}

	sources := make([]models.RetrievedSource, 0, len(hits))
	for _, hit := range hits {
		sources = append(sources, models.RetrievedSource{
			ID:              hit.ID,
			Question:        hit.Metadata.Question,
			Answer:          hit.Metadata.Answer,
			Category:        hit.Metadata.Category,
			SimilarityScore: embeddings.SimilarityScore(hit.Distance),
		})
	}

	span.SetAttributes(attribute.Int("retrieval.source_count", len(sources)))

	return RetrievalResult{Sources: sources}
}

func (s *RetrievalService) embed(ctx context.Context, question string) ([]float32, error) {
	if s.queryCache == nil {
		return s.embeddingClient.CreateEmbedding(ctx, question)
	}

	vec, hit, err := s.queryCache.Get(ctx, question, s.embeddingClient.CreateEmbedding)
	if err != nil {
		return nil, err
	}

	if s.cacheMetrics != nil {
		if hit {
			s.cacheMetrics.RecordHit(ctx, queryEmbeddingCacheName)
		} else {
			s.cacheMetrics.RecordMiss(ctx, queryEmbeddingCacheName)
		}
	}

	if hit {
		s.logger.DebugContext(ctx, "retrieval: query embedding served from cache")
	}

	return vec, nil
}
