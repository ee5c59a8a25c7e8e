package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalqa/assistant/internal/apperrors"
	"github.com/legalqa/assistant/internal/embeddings"
	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/vectorindex"
)

const faqTestDims = 64

func newFAQsTestService(t *testing.T, client EmbeddingClient) (*FAQsService, *memoryFAQsRepo, *vectorindex.SQLiteIndex) {
	t.Helper()

	index, err := vectorindex.OpenSQLite(filepath.Join(t.TempDir(), "index.db"), faqTestDims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	if client == nil {
		client = embeddings.NewHashingClient(faqTestDims)
	}

	repo := &memoryFAQsRepo{}

	return NewFAQsService(FAQsServiceParams{Repo: repo, Index: index, EmbeddingClient: client}), repo, index
}

func TestValidateFAQ(t *testing.T) {
	tests := []struct {
		name  string
		req   models.CreateFAQRequest
		field string
	}{
		{name: "valid", req: models.CreateFAQRequest{Question: "q", Answer: "a", Category: "c"}},
		{name: "blank question", req: models.CreateFAQRequest{Question: "  ", Answer: "a", Category: "c"}, field: "question"},
		{name: "missing answer", req: models.CreateFAQRequest{Question: "q", Category: "c"}, field: "answer"},
		{name: "missing category", req: models.CreateFAQRequest{Question: "q", Answer: "a"}, field: "category"},
		{name: "long category", req: models.CreateFAQRequest{Question: "q", Answer: "a", Category: strings.Repeat("x", 101)}, field: "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFAQ(&tt.req)
			if tt.field == "" {
				assert.NoError(t, err)

				return
			}

			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestFAQsService_CreateFAQ(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and indexes", func(t *testing.T) {
		svc, _, index := newFAQsTestService(t, nil)

		faq, err := svc.CreateFAQ(ctx, &models.CreateFAQRequest{Question: "What is bail?", Answer: "Money for release.", Category: "Criminal Law"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), faq.ID)

		count, err := index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("indexing failure still returns stored faq", func(t *testing.T) {
		client := &mockEmbeddingClient{
			createFunc: func(context.Context, string) ([]float32, error) { return nil, errors.New("model offline") },
		}
		svc, repo, _ := newFAQsTestService(t, client)

		faq, err := svc.CreateFAQ(ctx, &models.CreateFAQRequest{Question: "What is bail?", Answer: "Money.", Category: "Criminal Law"})
		require.ErrorIs(t, err, ErrIndexingFailed)
		require.NotNil(t, faq)
		assert.Len(t, repo.faqs, 1)
	})
}

func TestFAQsService_LoadFAQs(t *testing.T) {
	ctx := context.Background()

	t.Run("bad items are reported and skipped", func(t *testing.T) {
		svc, _, _ := newFAQsTestService(t, nil)

		items := []models.CreateFAQRequest{
			{Question: "What is bail?", Answer: "Money for release.", Category: "Criminal Law"},
			{Question: "Missing answer", Category: "Criminal Law"},
			{Question: "What is probate?", Answer: "Court process for estates.", Category: "Estate Law"},
		}

		var progress []int
		report, err := svc.LoadFAQs(ctx, items, LoadOptions{
			Progress: func(done, total int, _ *models.CreateFAQRequest, _ error) {
				assert.Equal(t, 3, total)
				progress = append(progress, done)
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 3, report.Total)
		assert.Equal(t, 2, report.Loaded)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, 1, report.Failures[0].Index)
		assert.Equal(t, int64(2), report.IndexCount)
		assert.Equal(t, []int{1, 2, 3}, progress)
		assert.Equal(t, []models.CategoryCount{
			{Category: "Criminal Law", Count: 1},
			{Category: "Estate Law", Count: 1},
		}, report.Categories)
	})

	t.Run("loading twice replaces previous faqs and vectors", func(t *testing.T) {
		svc, repo, index := newFAQsTestService(t, nil)
		items := []models.CreateFAQRequest{{Question: "What is bail?", Answer: "Money.", Category: "Criminal Law"}}

		_, err := svc.LoadFAQs(ctx, append([]models.CreateFAQRequest{}, items...), LoadOptions{})
		require.NoError(t, err)

		report, err := svc.LoadFAQs(ctx, append([]models.CreateFAQRequest{}, items...), LoadOptions{})
		require.NoError(t, err)
		require.Len(t, repo.faqs, 1)
		assert.Equal(t, int64(1), report.IndexCount)

		vec, err := embeddings.NewHashingClient(faqTestDims).CreateEmbedding(ctx, "What is bail?")
		require.NoError(t, err)

		hits, err := index.Query(ctx, vec, 2)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, IndexID(repo.faqs[0].ID), hits[0].ID)
		assert.Equal(t, "2", hits[0].ID)
	})

	t.Run("embedding failures are collected", func(t *testing.T) {
		client := &mockEmbeddingClient{
			createFunc: func(_ context.Context, input string) ([]float32, error) {
				if strings.Contains(input, "probate") {
					return nil, errors.New("timeout")
				}

				return embeddings.NewHashingClient(faqTestDims).CreateEmbedding(context.Background(), input)
			},
		}
		svc, _, _ := newFAQsTestService(t, client)

		report, err := svc.LoadFAQs(ctx, []models.CreateFAQRequest{
			{Question: "What is bail?", Answer: "Money.", Category: "Criminal Law"},
			{Question: "What is probate?", Answer: "Estates.", Category: "Estate Law"},
		}, LoadOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Loaded)
		require.Len(t, report.Failures, 1)
		assert.Contains(t, report.Failures[0].Error, "timeout")
		assert.Equal(t, int64(1), report.IndexCount)
	})
}

func TestFAQsService_ReindexAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, index := newFAQsTestService(t, nil)

	for _, q := range []string{"What is bail?", "What is probate?"} {
		_, err := svc.CreateFAQ(ctx, &models.CreateFAQRequest{Question: q, Answer: "a", Category: "General"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.ClearIndex(ctx))
	count, err := svc.IndexCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	resp, err := svc.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Indexed)
	assert.Empty(t, resp.Failures)
	assert.Equal(t, int64(2), resp.IndexCount)

	require.NoError(t, svc.DeleteFAQ(ctx, 1))
	count, err = index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	err = svc.DeleteFAQ(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFAQsService_ListFAQs(t *testing.T) {
	svc, _, _ := newFAQsTestService(t, nil)

	resp, err := svc.ListFAQs(context.Background(), &models.ListFAQsFilters{})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Limit)
	assert.Empty(t, resp.Data)
}

func TestIndexID(t *testing.T) {
	assert.Equal(t, "42", IndexID(42))
}
