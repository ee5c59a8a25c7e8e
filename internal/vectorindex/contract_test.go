package vectorindex_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalqa/assistant/internal/vectorindex"
)

const testDims = 4

func unit(i int) []float32 {
	v := make([]float32, testDims)
	v[i%testDims] = 1

	return v
}

func meta(n int) vectorindex.Metadata {
	return vectorindex.Metadata{
		Question: fmt.Sprintf("question %d", n),
		Answer:   fmt.Sprintf("answer %d", n),
		Category: "Contract Law",
	}
}

// testIndexBehaviour checks the behaviour every backend must share. newIndex returns an empty index.
func testIndexBehaviour(t *testing.T, newIndex func(t *testing.T) vectorindex.Index) {
	ctx := context.Background()

	t.Run("empty index query returns empty slice", func(t *testing.T) {
		idx := newIndex(t)

		hits, err := idx.Query(ctx, unit(0), 2)
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("self query returns the id on top", func(t *testing.T) {
		idx := newIndex(t)

		for i := range testDims {
			require.NoError(t, idx.Upsert(ctx, fmt.Sprint(i+1), unit(i), meta(i+1)))
		}

		for i := range testDims {
			hits, err := idx.Query(ctx, unit(i), 2)
			require.NoError(t, err)
			require.Len(t, hits, 2)
			assert.Equal(t, fmt.Sprint(i+1), hits[0].ID)
			assert.InDelta(t, 0, hits[0].Distance, 1e-6)
			assert.InDelta(t, 2, hits[1].Distance, 1e-6)
			assert.Equal(t, meta(i+1), hits[0].Metadata)
		}
	})

	t.Run("results are ordered and capped at k", func(t *testing.T) {
		idx := newIndex(t)

		require.NoError(t, idx.Upsert(ctx, "near", []float32{1, 0.1, 0, 0}, meta(1)))
		require.NoError(t, idx.Upsert(ctx, "mid", []float32{1, 1, 0, 0}, meta(2)))
		require.NoError(t, idx.Upsert(ctx, "far", []float32{-1, 0, 0, 0}, meta(3)))

		hits, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "near", hits[0].ID)
		assert.Equal(t, "mid", hits[1].ID)
		assert.InDelta(t, 0.01, hits[0].Distance, 1e-4)
		assert.InDelta(t, 1, hits[1].Distance, 1e-4)

		all, err := idx.Query(ctx, []float32{1, 0, 0, 0}, 10)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "far", all[2].ID)
		assert.InDelta(t, 4, all[2].Distance, 1e-4)
	})

	t.Run("upsert is idempotent and overwrites in place", func(t *testing.T) {
		idx := newIndex(t)

		require.NoError(t, idx.Upsert(ctx, "1", unit(0), meta(1)))
		require.NoError(t, idx.Upsert(ctx, "1", unit(0), meta(1)))

		updated := vectorindex.Metadata{Question: "new q", Answer: "new a", Category: "Tort Law"}
		require.NoError(t, idx.Upsert(ctx, "1", unit(1), updated))

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		hits, err := idx.Query(ctx, unit(1), 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, updated, hits[0].Metadata)
		assert.InDelta(t, 0, hits[0].Distance, 1e-6)
	})

	t.Run("delete and clear", func(t *testing.T) {
		idx := newIndex(t)

		for i := range 3 {
			require.NoError(t, idx.Upsert(ctx, fmt.Sprint(i), unit(i), meta(i)))
		}

		require.NoError(t, idx.Delete(ctx, "0"))
		require.NoError(t, idx.Delete(ctx, "missing"))

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		require.NoError(t, idx.Clear(ctx))

		count, err = idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)

		hits, err := idx.Query(ctx, unit(1), 2)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		idx := newIndex(t)

		err := idx.Upsert(ctx, "1", []float32{1, 2}, meta(1))
		require.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)

		_, err = idx.Query(ctx, []float32{1, 2, 3, 4, 5}, 2)
		require.ErrorIs(t, err, vectorindex.ErrDimensionMismatch)
	})

	t.Run("non-positive k", func(t *testing.T) {
		idx := newIndex(t)
		require.NoError(t, idx.Upsert(ctx, "1", unit(0), meta(1)))

		hits, err := idx.Query(ctx, unit(0), 0)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("concurrent queries and upserts", func(t *testing.T) {
		idx := newIndex(t)
		require.NoError(t, idx.Upsert(ctx, "seed", unit(0), meta(0)))

		var wg sync.WaitGroup

		errs := make(chan error, 40)

		for i := range 20 {
			wg.Add(2)

			go func() {
				defer wg.Done()

				errs <- idx.Upsert(ctx, fmt.Sprint(i%5), unit(i), meta(i))
			}()

			go func() {
				defer wg.Done()

				_, err := idx.Query(ctx, unit(i), 2)
				errs <- err
			}()
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(6), count)
	})
}
