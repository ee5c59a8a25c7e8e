package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/observability"
)

// NoSourcesAnswer is returned when retrieval finds nothing; the language model is not called.
const NoSourcesAnswer = "I apologize, but I couldn't find relevant information in our FAQ database. " +
	"Please try rephrasing your question or contact a legal professional for assistance."

// Retriever finds sources for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) RetrievalResult
}

// Generator produces an answer grounded on sources.
type Generator interface {
	Generate(ctx context.Context, question string, sources []models.RetrievedSource) GenerationResult
}

// QAPipeline answers one question: retrieve, then generate unless nothing was found.
type QAPipeline struct {
	retriever Retriever
	generator Generator
	topK      int
	metrics   observability.QAMetrics
	logger    *slog.Logger
}

// QAPipelineParams configures QAPipeline. Metrics may be nil; TopK defaults to DefaultTopK.
type QAPipelineParams struct {
	Retriever Retriever
	Generator Generator
	TopK      int
	Metrics   observability.QAMetrics
	Logger    *slog.Logger
}

// NewQAPipeline creates a QAPipeline.
func NewQAPipeline(p QAPipelineParams) *QAPipeline {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	topK := p.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &QAPipeline{
		retriever: p.Retriever,
		generator: p.Generator,
		topK:      topK,
		metrics:   p.Metrics,
		logger:    logger,
	}
}

// AnswerQuestion always returns a usable result: retrieval and generation failures are logged
// and folded into the answer.
func (p *QAPipeline) AnswerQuestion(ctx context.Context, question string) models.PipelineResult {
	start := time.Now()
	retrieval := p.retriever.Retrieve(ctx, question, p.topK)
	retrievalDuration := time.Since(start)

	if retrieval.Err != nil {
		p.logger.WarnContext(ctx, "qa: retrieval failed, answering without sources", "error", retrieval.Err)

		if p.metrics != nil {
			p.metrics.RecordRetrievalFailure(ctx, retrievalFailureReason(retrieval.Err))
		}
	}

	sources := retrieval.Sources
	if sources == nil {
		sources = []models.RetrievedSource{}
	}

	var topScore float64
	if len(sources) > 0 {
		topScore = sources[0].SimilarityScore
	}

	if p.metrics != nil && retrieval.Err == nil {
		p.metrics.RecordRetrieval(ctx, retrievalDuration, len(sources), topScore)
	}

	p.logger.DebugContext(ctx, "qa: retrieval finished",
		"source_count", len(sources),
		"top_similarity", topScore,
		"duration_ms", retrievalDuration.Milliseconds(),
	)

	if len(sources) == 0 {
		if p.metrics != nil {
			p.metrics.RecordNoSourceAnswer(ctx)
		}

		return models.PipelineResult{Answer: NoSourcesAnswer, Sources: sources}
	}

	genStart := time.Now()
	generation := p.generator.Generate(ctx, question, sources)
	outcome := "success"

	if generation.Err != nil {
		outcome = "failed"

		p.logger.ErrorContext(ctx, "qa: answer generation failed", "error", generation.Err, "source_count", len(sources))
	}

	if p.metrics != nil {
		p.metrics.RecordGeneration(ctx, time.Since(genStart), outcome)
	}

	return models.PipelineResult{Answer: generation.Answer, Sources: sources}
}

func retrievalFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmbeddingFailed):
		return "embedding_failed"
	case errors.Is(err, ErrIndexQueryFailed):
		return "index_query_failed"
	default:
		return "other"
	}
}
