// Package pgtest starts a throwaway pgvector-enabled Postgres for integration tests.
package pgtest

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/legalqa/assistant/internal/repository"
)

const image = "pgvector/pgvector:pg16"

// Start runs a Postgres container for the duration of t and returns a pool with the schema
// in place. dimensions > 0 also prepares faq_vectors. It skips under -short or without Docker.
func Start(t *testing.T, dimensions int) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("legal_qa_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres container")

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := repository.OpenDatabase(ctx, dsn, repository.OpenOptions{MaxConns: 4, PGVectorDimensions: dimensions})
	require.NoError(t, err, "open database")
	t.Cleanup(db.Close)

	return db
}
