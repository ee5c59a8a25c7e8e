package service

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/repository"
)

const (
	defaultLogsLimit   = 50
	maxLogsLimit       = 200
	maxUserAgentLength = 500
	logAnswerPreview   = 200
)

// QueryLogsRepository defines the interface for query log data access.
type QueryLogsRepository interface {
	Create(ctx context.Context, log *models.QueryLog) error
	List(ctx context.Context, limit, offset int) ([]models.QueryLog, error)
	Aggregates(ctx context.Context) (repository.QueryLogAggregates, error)
}

// FAQCounter counts stored FAQs.
type FAQCounter interface {
	Count(ctx context.Context, filters *models.ListFAQsFilters) (int64, error)
}

// IndexCounter counts indexed vectors.
type IndexCounter interface {
	Count(ctx context.Context) (int64, error)
}

// QueryLogsService records answered questions and reports usage statistics.
type QueryLogsService struct {
	repo  QueryLogsRepository
	faqs  FAQCounter
	index IndexCounter
}

// NewQueryLogsService creates a QueryLogsService.
func NewQueryLogsService(repo QueryLogsRepository, faqs FAQCounter, index IndexCounter) *QueryLogsService {
	return &QueryLogsService{repo: repo, faqs: faqs, index: index}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AverageSimilarity returns the mean similarity score of sources rounded to two decimals,
// or nil when there are none.
func AverageSimilarity(sources []models.RetrievedSource) *float64 {
	if len(sources) == 0 {
		return nil
	}

	var sum float64
	for _, src := range sources {
		sum += src.SimilarityScore
	}

	avg := round2(sum / float64(len(sources)))

	return &avg
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	return string([]rune(s)[:n])
}

// RecordEntry is one answered question to be logged.
type RecordEntry struct {
	Question       string
	Result         models.PipelineResult
	ProcessingTime float64
	IPAddress      string
	UserAgent      string
}

// Record stores a query log for an answered question.
func (s *QueryLogsService) Record(ctx context.Context, entry RecordEntry) (*models.QueryLog, error) {
	processingTime := entry.ProcessingTime

	log := &models.QueryLog{
		Question:       entry.Question,
		Answer:         entry.Result.Answer,
		Sources:        entry.Result.Sources,
		ProcessingTime: &processingTime,
		SourceCount:    len(entry.Result.Sources),
		AvgSimilarity:  AverageSimilarity(entry.Result.Sources),
	}

	if entry.IPAddress != "" {
		ip := entry.IPAddress
		log.IPAddress = &ip
	}

	if entry.UserAgent != "" {
		ua := truncateRunes(entry.UserAgent, maxUserAgentLength)
		log.UserAgent = &ua
	}

	if err := s.repo.Create(ctx, log); err != nil {
		return nil, err
	}

	return log, nil
}

// List returns query logs newest first. Limit defaults to 50 and is capped at 200; answers longer
// than 200 characters are cut and suffixed with "...".
func (s *QueryLogsService) List(ctx context.Context, filters *models.ListQueryLogsFilters) (*models.ListQueryLogsResponse, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultLogsLimit
	}

	limit = min(limit, maxLogsLimit)
	offset := max(filters.Offset, 0)

	agg, err := s.repo.Aggregates(ctx)
	if err != nil {
		return nil, err
	}

	logs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	for i := range logs {
		if utf8.RuneCountInString(logs[i].Answer) > logAnswerPreview {
			logs[i].Answer = truncateRunes(logs[i].Answer, logAnswerPreview) + "..."
		}

		logs[i].UserAgent = nil
	}

	return &models.ListQueryLogsResponse{
		Count:  int(agg.Total),
		Limit:  limit,
		Offset: offset,
		Logs:   logs,
	}, nil
}

// Stats reports FAQ, query and index counts with average processing time and similarity.
// The FAQ and index counts are reported side by side and may differ after partial ingestion.
func (s *QueryLogsService) Stats(ctx context.Context) (*models.Stats, error) {
	totalFAQs, err := s.faqs.Count(ctx, nil)
	if err != nil {
		return nil, err
	}

	agg, err := s.repo.Aggregates(ctx)
	if err != nil {
		return nil, err
	}

	indexCount, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vector index: %w", err)
	}

	return &models.Stats{
		TotalFAQs:         totalFAQs,
		TotalQueries:      agg.Total,
		ChromaCount:       indexCount,
		AvgProcessingTime: round2(agg.AvgProcessingTime),
		AvgSimilarity:     round2(agg.AvgSimilarity),
	}, nil
}
