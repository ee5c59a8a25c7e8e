package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/legalqa/assistant/internal/apperrors"
	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/observability"
	"github.com/legalqa/assistant/internal/vectorindex"
)

// ErrIndexingFailed wraps embedding or upsert failures for a stored FAQ.
var ErrIndexingFailed = errors.New("faq indexing failed")

const maxCategoryLength = 100

// FAQsRepository defines the interface for FAQ data access.
type FAQsRepository interface {
	Create(ctx context.Context, req *models.CreateFAQRequest) (*models.FAQ, error)
	GetByID(ctx context.Context, id int64) (*models.FAQ, error)
	List(ctx context.Context, filters *models.ListFAQsFilters) ([]models.FAQ, error)
	Count(ctx context.Context, filters *models.ListFAQsFilters) (int64, error)
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
}

// FAQsService stores FAQs and keeps the vector index in step with them.
type FAQsService struct {
	repo            FAQsRepository
	index           vectorindex.Index
	embeddingClient EmbeddingClient
	limiter         *rate.Limiter
	metrics         observability.QAMetrics
	logger          *slog.Logger
}

// FAQsServiceParams configures FAQsService. Limiter paces embedding calls during indexing and may be
// nil (unlimited); Metrics may be nil.
type FAQsServiceParams struct {
	Repo            FAQsRepository
	Index           vectorindex.Index
	EmbeddingClient EmbeddingClient
	Limiter         *rate.Limiter
	Metrics         observability.QAMetrics
	Logger          *slog.Logger
}

// NewFAQsService creates a FAQsService.
func NewFAQsService(p FAQsServiceParams) *FAQsService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FAQsService{
		repo:            p.Repo,
		index:           p.Index,
		embeddingClient: p.EmbeddingClient,
		limiter:         p.Limiter,
		metrics:         p.Metrics,
		logger:          logger,
	}
}

// IndexID is the vector index key for an FAQ.
func IndexID(faqID int64) string {
	return strconv.FormatInt(faqID, 10)
}

// IndexFAQ embeds the FAQ question and upserts it with its metadata.
func (s *FAQsService) IndexFAQ(ctx context.Context, faq *models.FAQ) error {
	err := s.indexFAQ(ctx, faq)

	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failed"
		}

		s.metrics.RecordIndexing(ctx, outcome)
	}

	return err
}

func (s *FAQsService) indexFAQ(ctx context.Context, faq *models.FAQ) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: faq %d: %w", ErrIndexingFailed, faq.ID, err)
		}
	}

	embedding, err := s.embeddingClient.CreateEmbedding(ctx, faq.Question)
	if err != nil {
		return fmt.Errorf("%w: faq %d: embed question: %w", ErrIndexingFailed, faq.ID, err)
	}

	err = s.index.Upsert(ctx, IndexID(faq.ID), embedding, vectorindex.Metadata{
		Question: faq.Question,
		Answer:   faq.Answer,
		Category: faq.Category,
	})
	if err != nil {
		return fmt.Errorf("%w: faq %d: %w", ErrIndexingFailed, faq.ID, err)
	}

	return nil
}

// ValidateFAQ checks the fields of an FAQ item in a load file.
func ValidateFAQ(req *models.CreateFAQRequest) error {
	switch {
	case strings.TrimSpace(req.Question) == "":
		return apperrors.NewValidationError("question", "question is required")
	case strings.TrimSpace(req.Answer) == "":
		return apperrors.NewValidationError("answer", "answer is required")
	case strings.TrimSpace(req.Category) == "":
		return apperrors.NewValidationError("category", "category is required")
	case utf8.RuneCountInString(strings.TrimSpace(req.Category)) > maxCategoryLength:
		return apperrors.NewValidationError("category", "category must be at most 100 characters")
	}

	return nil
}

// CreateFAQ stores and indexes an FAQ. When indexing fails the FAQ is still returned together
// with an error wrapping ErrIndexingFailed.
func (s *FAQsService) CreateFAQ(ctx context.Context, req *models.CreateFAQRequest) (*models.FAQ, error) {
	faq, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.IndexFAQ(ctx, faq); err != nil {
		s.logger.ErrorContext(ctx, "faqs: stored faq could not be indexed", "faq_id", faq.ID, "error", err)

		return faq, err
	}

	s.logger.InfoContext(ctx, "faqs: faq created", "faq_id", faq.ID, "category", faq.Category)

	return faq, nil
}

// GetFAQ retrieves a single FAQ by ID
func (s *FAQsService) GetFAQ(ctx context.Context, id int64) (*models.FAQ, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFAQs retrieves FAQs with optional filters
func (s *FAQsService) ListFAQs(ctx context.Context, filters *models.ListFAQsFilters) (*models.ListFAQsResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = 100
	}

	faqs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, err
	}

	return &models.ListFAQsResponse{
		Data:   faqs,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// DeleteFAQ deletes the FAQ row and its vector.
func (s *FAQsService) DeleteFAQ(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.index.Delete(ctx, IndexID(id)); err != nil {
		return fmt.Errorf("delete faq vector: %w", err)
	}

	return nil
}

// LoadOptions configures LoadFAQs.
type LoadOptions struct {
	// Progress, when set, is called after each item with its outcome.
	Progress func(done, total int, item *models.CreateFAQRequest, err error)
}

// LoadFAQs replaces every stored FAQ with items and indexes each one. The vector index is
// emptied along with the rows, since reloaded rows get new ids. Per-item failures are
// collected in the report and do not stop the load.
func (s *FAQsService) LoadFAQs(ctx context.Context, items []models.CreateFAQRequest, opts LoadOptions) (*models.LoadReport, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "faqs: cleared stored faqs", "deleted", deleted)

	if err := s.index.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear vector index: %w", err)
	}

	report := &models.LoadReport{Total: len(items), Failures: []models.LoadFailure{}}

	for i := range items {
		item := &items[i]

		err := s.loadOne(ctx, item)
		if err != nil {
			report.Failures = append(report.Failures, models.LoadFailure{Index: i, Question: item.Question, Error: err.Error()})
			s.logger.WarnContext(ctx, "faqs: load item failed", "index", i, "error", err)
		} else {
			report.Loaded++
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(items), item, err)
		}

		if ctx.Err() != nil {
			return report, fmt.Errorf("load interrupted: %w", ctx.Err())
		}
	}

	if report.IndexCount, err = s.index.Count(ctx); err != nil {
		return report, fmt.Errorf("count vector index: %w", err)
	}

	if report.Categories, err = s.repo.CountByCategory(ctx); err != nil {
		return report, err
	}

	return report, nil
}

func (s *FAQsService) loadOne(ctx context.Context, item *models.CreateFAQRequest) error {
	if err := ValidateFAQ(item); err != nil {
		return err
	}

	faq, err := s.repo.Create(ctx, item)
	if err != nil {
		return err
	}

	return s.IndexFAQ(ctx, faq)
}

// ReindexAll clears the vector index and re-embeds every stored FAQ.
func (s *FAQsService) ReindexAll(ctx context.Context) (*models.ReindexResponse, error) {
	faqs, err := s.repo.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	if err := s.index.Clear(ctx); err != nil {
		return nil, fmt.Errorf("clear vector index: %w", err)
	}

	resp := &models.ReindexResponse{Failures: []models.LoadFailure{}}

	for i := range faqs {
		if err := s.IndexFAQ(ctx, &faqs[i]); err != nil {
			resp.Failures = append(resp.Failures, models.LoadFailure{Index: i, Question: faqs[i].Question, Error: err.Error()})

			continue
		}

		resp.Indexed++
	}

	if resp.IndexCount, err = s.index.Count(ctx); err != nil {
		return resp, fmt.Errorf("count vector index: %w", err)
	}

	s.logger.InfoContext(ctx, "faqs: reindex finished", "indexed", resp.Indexed, "failed", len(resp.Failures))

	return resp, nil
}

// ClearIndex removes every vector without touching stored FAQs.
func (s *FAQsService) ClearIndex(ctx context.Context) error {
	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector index: %w", err)
	}

	return nil
}

// IndexCount returns the number of indexed vectors.
func (s *FAQsService) IndexCount(ctx context.Context) (int64, error) {
	count, err := s.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count vector index: %w", err)
	}

	return count, nil
}
