package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/legalqa/assistant/internal/vectorindex"
	"github.com/legalqa/assistant/pkg/database"
)

const relationalSchema = `
CREATE TABLE IF NOT EXISTS faqs (
	id         BIGSERIAL PRIMARY KEY,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	category   VARCHAR(100) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS faqs_category_idx ON faqs (category);

CREATE TABLE IF NOT EXISTS query_logs (
	id              BIGSERIAL PRIMARY KEY,
	question        TEXT NOT NULL,
	answer          TEXT NOT NULL,
	sources         JSONB NOT NULL DEFAULT '[]'::jsonb,
	processing_time DOUBLE PRECISION,
	source_count    INTEGER NOT NULL DEFAULT 0,
	avg_similarity  DOUBLE PRECISION,
	ip_address      TEXT,
	user_agent      TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS query_logs_created_at_idx ON query_logs (created_at DESC);
`

// EnsureSchema creates the faqs and query_logs tables when missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, relationalSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// OpenOptions configures OpenDatabase.
type OpenOptions struct {
	MaxConns int32
	// PGVectorDimensions > 0 also prepares the faq_vectors table and registers pgvector types.
	PGVectorDimensions int
}

// OpenDatabase connects to Postgres and ensures the schema exists. When pgvector is used the
// pool is reopened after the extension exists, since type registration runs on connect.
func OpenDatabase(ctx context.Context, databaseURL string, opts OpenOptions) (*pgxpool.Pool, error) {
	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithMaxConns(opts.MaxConns))
	if err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()

		return nil, err
	}

	if opts.PGVectorDimensions <= 0 {
		return db, nil
	}

	err = vectorindex.EnsurePGVectorSchema(ctx, db, opts.PGVectorDimensions)
	db.Close()

	if err != nil {
		return nil, err
	}

	return database.NewPostgresPool(ctx, databaseURL,
		database.WithMaxConns(opts.MaxConns),
		database.WithAfterConnect(pgxvec.RegisterTypes),
	)
}
