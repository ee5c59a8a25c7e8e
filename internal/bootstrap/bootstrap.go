// Package bootstrap builds the question answering components from configuration. It is shared
// by the API server and the faqctl command.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/legalqa/assistant/internal/config"
	"github.com/legalqa/assistant/internal/observability"
	"github.com/legalqa/assistant/internal/openai"
	"github.com/legalqa/assistant/internal/repository"
	"github.com/legalqa/assistant/internal/service"
	"github.com/legalqa/assistant/internal/vectorindex"
	"github.com/legalqa/assistant/pkg/cache"
)

// Options carries optional collaborators. Nil metrics disable recording.
type Options struct {
	Logger       *slog.Logger
	QAMetrics    observability.QAMetrics
	CacheMetrics observability.CacheMetrics
	// SkipEmbeddingProbe disables the startup embedding check (commands that never embed).
	SkipEmbeddingProbe bool
}

// Components holds every wired service. Call Close when done.
type Components struct {
	DB              *pgxpool.Pool
	Index           vectorindex.Index
	EmbeddingClient service.EmbeddingClient
	FAQs            *service.FAQsService
	Retrieval       *service.RetrievalService
	Generator       *service.AnswerGenerator
	Pipeline        *service.QAPipeline
	QueryLogs       *service.QueryLogsService

	closeIndex func() error
}

// Build opens the database and vector index, verifies the embedding provider and wires the
// services. Any failure is returned and leaves nothing open.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Components, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	embeddingClient, err := service.NewEmbeddingClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	if !opts.SkipEmbeddingProbe {
		if err := service.VerifyEmbeddingClient(ctx, embeddingClient, cfg.EmbeddingDimensions); err != nil {
			return nil, fmt.Errorf("verify embedding provider %s: %w", cfg.EmbeddingProvider, err)
		}

		logger.Info("Embedding provider ready",
			"provider", cfg.EmbeddingProvider, "model", cfg.EmbeddingModel, "dimensions", cfg.EmbeddingDimensions)
	}

	pgvectorDims := 0
	if cfg.VectorIndexBackend == config.VectorIndexPGVector {
		pgvectorDims = cfg.EmbeddingDimensions
	}

	//nolint:gosec // DatabaseMaxConns is validated positive and small
	db, err := repository.OpenDatabase(ctx, cfg.DatabaseURL, repository.OpenOptions{
		MaxConns:           int32(cfg.DatabaseMaxConns),
		PGVectorDimensions: pgvectorDims,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	c := &Components{DB: db, EmbeddingClient: embeddingClient, closeIndex: func() error { return nil }}

	switch cfg.VectorIndexBackend {
	case config.VectorIndexPGVector:
		c.Index = vectorindex.NewPGVectorIndex(db, cfg.EmbeddingDimensions)
	case config.VectorIndexSQLite:
		idx, err := vectorindex.OpenSQLite(cfg.VectorIndexPath, cfg.EmbeddingDimensions)
		if err != nil {
			db.Close()

			return nil, fmt.Errorf("open vector index: %w", err)
		}

		c.Index = idx
		c.closeIndex = idx.Close
	default:
		db.Close()

		return nil, fmt.Errorf("unsupported vector index backend %q", cfg.VectorIndexBackend)
	}

	logger.Info("Vector index ready", "backend", cfg.VectorIndexBackend)

	queryCache, err := cache.NewLoaderCache[string, []float32](cfg.QueryCacheSize,
		func(q string) string { return q },
		cache.WithLoadTimeout(cfg.EmbeddingTimeout),
	)
	if err != nil {
		_ = c.Close()

		return nil, fmt.Errorf("create query embedding cache: %w", err)
	}

	if cfg.CompletionAPIKey == "" {
		logger.Warn("COMPLETION_API_KEY (or GROQ_API_KEY) not set; answers will report a generation error")
	}

	chat := openai.NewChatClient(cfg.CompletionAPIKey,
		[]openai.ClientOption{
			openai.WithBaseURL(cfg.CompletionBaseURL),
			openai.WithModel(cfg.CompletionModel),
			openai.WithTimeout(cfg.CompletionTimeout),
		},
		openai.WithTemperature(cfg.CompletionTemperature),
		openai.WithMaxTokens(cfg.CompletionMaxTokens),
	)

	faqsRepo := repository.NewFAQsRepository(db)

	c.FAQs = service.NewFAQsService(service.FAQsServiceParams{
		Repo:            faqsRepo,
		Index:           c.Index,
		EmbeddingClient: embeddingClient,
		Limiter:         rate.NewLimiter(rate.Limit(cfg.IngestRateLimit), 1),
		Metrics:         opts.QAMetrics,
		Logger:          logger,
	})
	c.Retrieval = service.NewRetrievalService(service.RetrievalServiceParams{
		EmbeddingClient: embeddingClient,
		Index:           c.Index,
		QueryCache:      queryCache,
		CacheMetrics:    opts.CacheMetrics,
		Logger:          logger,
	})
	c.Generator = service.NewAnswerGenerator(chat)
	c.Pipeline = service.NewQAPipeline(service.QAPipelineParams{
		Retriever: c.Retrieval,
		Generator: c.Generator,
		TopK:      cfg.RetrievalTopK,
		Metrics:   opts.QAMetrics,
		Logger:    logger,
	})
	c.QueryLogs = service.NewQueryLogsService(repository.NewQueryLogsRepository(db), faqsRepo, c.Index)

	return c, nil
}

// Close releases the vector index and the database pool.
func (c *Components) Close() error {
	var err error
	if c.closeIndex != nil {
		err = c.closeIndex()
	}

	if c.DB != nil {
		c.DB.Close()
	}

	if err != nil {
		return fmt.Errorf("close vector index: %w", err)
	}

	return nil
}
