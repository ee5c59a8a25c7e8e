package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGVectorIndex stores vectors in the faq_vectors table of a pgvector-enabled Postgres.
// Upserts rely on row-level ON CONFLICT handling; Clear is a single TRUNCATE.
type PGVectorIndex struct {
	db         *pgxpool.Pool
	dimensions int
}

var _ Index = (*PGVectorIndex)(nil)

// NewPGVectorIndex creates an index over an existing faq_vectors table (see EnsurePGVectorSchema).
func NewPGVectorIndex(db *pgxpool.Pool, dimensions int) *PGVectorIndex {
	return &PGVectorIndex{db: db, dimensions: dimensions}
}

// EnsurePGVectorSchema creates the vector extension and faq_vectors table when missing, and
// fails when an existing table was built for a different embedding dimension.
func EnsurePGVectorSchema(ctx context.Context, db *pgxpool.Pool, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("vectorindex: dimensions must be positive, got %d", dimensions)
	}

	if _, err := db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	// The vector typmod cannot be a bind parameter.
	_, err := db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS faq_vectors (
			id         TEXT PRIMARY KEY,
			embedding  vector(%d) NOT NULL,
			question   TEXT NOT NULL,
			answer     TEXT NOT NULL,
			category   TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimensions))
	if err != nil {
		return fmt.Errorf("create faq_vectors table: %w", err)
	}

	var stored int
	if err := db.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'faq_vectors'::regclass AND attname = 'embedding'`,
	).Scan(&stored); err != nil {
		return fmt.Errorf("read faq_vectors dimensions: %w", err)
	}

	if stored != dimensions {
		return fmt.Errorf("%w: faq_vectors.embedding has %d dimensions, configured %d; clear the index table and reindex",
			ErrDimensionMismatch, stored, dimensions)
	}

	return nil
}

// Upsert inserts or overwrites the vector for id.
func (p *PGVectorIndex) Upsert(ctx context.Context, id string, embedding []float32, metadata Metadata) error {
	if err := checkDimensions(embedding, p.dimensions); err != nil {
		return err
	}

	_, err := p.db.Exec(ctx, `
		INSERT INTO faq_vectors (id, embedding, question, answer, category, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET embedding = EXCLUDED.embedding, question = EXCLUDED.question,
			answer = EXCLUDED.answer, category = EXCLUDED.category, updated_at = EXCLUDED.updated_at`,
		id, pgvector.NewVector(embedding), metadata.Question, metadata.Answer, metadata.Category, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}

	return nil
}

// Query returns the k nearest vectors ordered by L2 distance. pgvector's <-> is the plain
// Euclidean distance, so it is squared before being returned.
func (p *PGVectorIndex) Query(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	if err := checkDimensions(embedding, p.dimensions); err != nil {
		return nil, err
	}

	hits := []Hit{}
	if k <= 0 {
		return hits, nil
	}

	rows, err := p.db.Query(ctx, `
		SELECT id, power(embedding <-> $1, 2) AS distance, question, answer, category
		FROM faq_vectors
		ORDER BY embedding <-> $1, id
		LIMIT $2`, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hit Hit
		if err := rows.Scan(&hit.ID, &hit.Distance, &hit.Metadata.Question, &hit.Metadata.Answer, &hit.Metadata.Category); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}

		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector hits: %w", err)
	}

	return hits, nil
}

// Count returns the number of stored vectors.
func (p *PGVectorIndex) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.QueryRow(ctx, `SELECT COUNT(*) FROM faq_vectors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("vector count: %w", err)
	}

	return count, nil
}

// Clear truncates the table. TRUNCATE is transactional in Postgres, so readers see either
// the full index or an empty one.
func (p *PGVectorIndex) Clear(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, `TRUNCATE faq_vectors`); err != nil {
		return fmt.Errorf("vector clear: %w", err)
	}

	return nil
}

// Delete removes the vector for id.
func (p *PGVectorIndex) Delete(ctx context.Context, id string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM faq_vectors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("vector delete: %w", err)
	}

	return nil
}
