// Package vectorindex stores FAQ embeddings with their metadata and answers
// k-nearest-neighbour queries by squared Euclidean distance.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when an embedding's length differs from the index dimensions.
var ErrDimensionMismatch = errors.New("vectorindex: embedding dimension mismatch")

// Metadata is the copy of the FAQ kept next to its vector so hits need no second lookup.
type Metadata struct {
	Question string
	Answer   string
	Category string
}

// Hit is one query result. Distance is the squared L2 distance to the query vector.
type Hit struct {
	ID       string
	Distance float64
	Metadata Metadata
}

// Index is a persistent id -> (embedding, metadata) store.
// Queries may run concurrently; writes are serialized by the implementation.
type Index interface {
	// Upsert inserts or overwrites the vector for id.
	Upsert(ctx context.Context, id string, embedding []float32, metadata Metadata) error
	// Query returns at most k hits, closest first. An empty index yields an empty slice.
	Query(ctx context.Context, embedding []float32, k int) ([]Hit, error)
	// Count returns the number of indexed vectors.
	Count(ctx context.Context) (int64, error)
	// Clear removes every vector in one atomic step.
	Clear(ctx context.Context) error
	// Delete removes the vector for id; a missing id is not an error.
	Delete(ctx context.Context, id string) error
}

func checkDimensions(embedding []float32, want int) error {
	if len(embedding) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), want)
	}

	return nil
}
