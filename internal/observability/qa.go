package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QAMetrics records retrieval, generation and indexing metrics.
type QAMetrics interface {
	RecordRetrieval(ctx context.Context, duration time.Duration, sourceCount int, topScore float64)
	RecordRetrievalFailure(ctx context.Context, reason string)
	RecordGeneration(ctx context.Context, duration time.Duration, outcome string)
	RecordNoSourceAnswer(ctx context.Context)
	RecordIndexing(ctx context.Context, outcome string)
}

type qaMetrics struct {
	retrievalDuration  metric.Float64Histogram
	retrievalSources   metric.Int64Histogram
	retrievalTopScore  metric.Float64Histogram
	retrievalFailures  metric.Int64Counter
	generationDuration metric.Float64Histogram
	generationOutcomes metric.Int64Counter
	noSourceAnswers    metric.Int64Counter
	indexingOutcomes   metric.Int64Counter
}

// NewQAMetrics creates QAMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewQAMetrics(meter metric.Meter) (QAMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	retrievalDuration, err := meter.Float64Histogram(
		MetricNameRetrievalDuration,
		metric.WithDescription("Time to embed the question and query the vector index (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrieval duration histogram: %w", err)
	}

	retrievalSources, err := meter.Int64Histogram(
		MetricNameRetrievalSources,
		metric.WithDescription("Number of sources returned per retrieval"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrieval sources histogram: %w", err)
	}

	retrievalTopScore, err := meter.Float64Histogram(
		MetricNameRetrievalTopScore,
		metric.WithDescription("Similarity score (0-100) of the best source per retrieval"),
		metric.WithExplicitBucketBoundaries(0, 10, 25, 50, 75, 90, 95, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrieval top similarity histogram: %w", err)
	}

	retrievalFailures, err := meter.Int64Counter(
		MetricNameRetrievalFailures,
		metric.WithDescription("Retrievals that degraded to no sources, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrieval failures counter: %w", err)
	}

	generationDuration, err := meter.Float64Histogram(
		MetricNameGenerationDuration,
		metric.WithDescription("Completion call duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generation duration histogram: %w", err)
	}

	generationOutcomes, err := meter.Int64Counter(
		MetricNameGenerationOutcomes,
		metric.WithDescription("Answer generation outcomes by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generation outcomes counter: %w", err)
	}

	noSourceAnswers, err := meter.Int64Counter(
		MetricNameNoSourceAnswers,
		metric.WithDescription("Questions answered with the fixed no-sources answer"),
	)
	if err != nil {
		return nil, fmt.Errorf("create no source answers counter: %w", err)
	}

	indexingOutcomes, err := meter.Int64Counter(
		MetricNameIndexingOutcomes,
		metric.WithDescription("FAQ indexing outcomes by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexing outcomes counter: %w", err)
	}

	return &qaMetrics{
		retrievalDuration:  retrievalDuration,
		retrievalSources:   retrievalSources,
		retrievalTopScore:  retrievalTopScore,
		retrievalFailures:  retrievalFailures,
		generationDuration: generationDuration,
		generationOutcomes: generationOutcomes,
		noSourceAnswers:    noSourceAnswers,
		indexingOutcomes:   indexingOutcomes,
	}, nil
}

func (m *qaMetrics) RecordRetrieval(ctx context.Context, duration time.Duration, sourceCount int, topScore float64) {
	m.retrievalDuration.Record(ctx, duration.Seconds())
	m.retrievalSources.Record(ctx, int64(sourceCount))

	if sourceCount > 0 {
		m.retrievalTopScore.Record(ctx, topScore)
	}
}

func (m *qaMetrics) RecordRetrievalFailure(ctx context.Context, reason string) {
	m.retrievalFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrReason, NormalizeReason(reason, AllowedRetrievalReasons)),
	))
}

func (m *qaMetrics) RecordGeneration(ctx context.Context, duration time.Duration, outcome string) {
	attrs := metric.WithAttributes(attribute.String(AttrStatus, NormalizeOutcome(outcome)))
	m.generationDuration.Record(ctx, duration.Seconds(), attrs)
	m.generationOutcomes.Add(ctx, 1, attrs)
}

func (m *qaMetrics) RecordNoSourceAnswer(ctx context.Context) {
	m.noSourceAnswers.Add(ctx, 1)
}

func (m *qaMetrics) RecordIndexing(ctx context.Context, outcome string) {
	m.indexingOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, NormalizeOutcome(outcome))))
}
