package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/legalqa/assistant/internal/apperrors"
	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/vectorindex"
)

var errNotFoundForTest = apperrors.NewNotFoundError("faq", "faq not found")

type mockEmbeddingClient struct {
	calls      atomic.Int32
	createFunc func(ctx context.Context, input string) ([]float32, error)
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	m.calls.Add(1)

	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}

	return []float32{0.1, 0.2}, nil
}

type mockVectorQuerier struct {
	queryFunc func(ctx context.Context, embedding []float32, k int) ([]vectorindex.Hit, error)
	gotK      int
}

func (m *mockVectorQuerier) Query(ctx context.Context, embedding []float32, k int) ([]vectorindex.Hit, error) {
	m.gotK = k

	if m.queryFunc != nil {
		return m.queryFunc(ctx, embedding, k)
	}

	return []vectorindex.Hit{}, nil
}

type mockCompleter struct {
	calls        atomic.Int32
	gotSystem    string
	gotUser      string
	completeFunc func(ctx context.Context, system, user string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.calls.Add(1)
	m.gotSystem = system
	m.gotUser = user

	if m.completeFunc != nil {
		return m.completeFunc(ctx, system, user)
	}

	return "A grounded answer.", nil
}

type mockRetriever struct {
	result RetrievalResult
	gotTop int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, topK int) RetrievalResult {
	m.gotTop = topK

	return m.result
}

type mockGenerator struct {
	calls      int
	gotSources []models.RetrievedSource
	result     GenerationResult
}

func (m *mockGenerator) Generate(_ context.Context, _ string, sources []models.RetrievedSource) GenerationResult {
	m.calls++
	m.gotSources = sources

	return m.result
}

// memoryFAQsRepo is an in-memory FAQsRepository assigning sequential IDs from 1.
type memoryFAQsRepo struct {
	mu        sync.Mutex
	nextID    int64
	faqs      []models.FAQ
	createErr func(req *models.CreateFAQRequest) error
}

func (r *memoryFAQsRepo) Create(_ context.Context, req *models.CreateFAQRequest) (*models.FAQ, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		if err := r.createErr(req); err != nil {
			return nil, err
		}
	}

	r.nextID++
	faq := models.FAQ{ID: r.nextID, Question: req.Question, Answer: req.Answer, Category: req.Category}
	r.faqs = append(r.faqs, faq)

	return &faq, nil
}

func (r *memoryFAQsRepo) GetByID(_ context.Context, id int64) (*models.FAQ, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.faqs {
		if r.faqs[i].ID == id {
			faq := r.faqs[i]

			return &faq, nil
		}
	}

	return nil, errNotFoundForTest
}

func (r *memoryFAQsRepo) List(_ context.Context, _ *models.ListFAQsFilters) ([]models.FAQ, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.FAQ{}, r.faqs...), nil
}

func (r *memoryFAQsRepo) Count(_ context.Context, _ *models.ListFAQsFilters) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return int64(len(r.faqs)), nil
}

func (r *memoryFAQsRepo) CountByCategory(_ context.Context) ([]models.CategoryCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := map[string]int64{}
	order := []string{}

	for _, faq := range r.faqs {
		if counts[faq.Category] == 0 {
			order = append(order, faq.Category)
		}

		counts[faq.Category]++
	}

	out := []models.CategoryCount{}
	for _, c := range order {
		out = append(out, models.CategoryCount{Category: c, Count: counts[c]})
	}

	return out, nil
}

func (r *memoryFAQsRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.faqs {
		if r.faqs[i].ID == id {
			r.faqs = append(r.faqs[:i], r.faqs[i+1:]...)

			return nil
		}
	}

	return errNotFoundForTest
}

func (r *memoryFAQsRepo) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.faqs))
	r.faqs = nil

	return n, nil
}
