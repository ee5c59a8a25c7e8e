package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalqa/assistant/internal/models"
)

// QueryLogsRepository handles data access for query logs
type QueryLogsRepository struct {
	db *pgxpool.Pool
}

// NewQueryLogsRepository creates a new query logs repository
func NewQueryLogsRepository(db *pgxpool.Pool) *QueryLogsRepository {
	return &QueryLogsRepository{db: db}
}

// Create inserts a query log and fills in its ID and CreatedAt
func (r *QueryLogsRepository) Create(ctx context.Context, log *models.QueryLog) error {
	sources := log.Sources
	if sources == nil {
		sources = []models.RetrievedSource{}
	}

	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	query := `
		INSERT INTO query_logs (question, answer, sources, processing_time, source_count, avg_similarity, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.db.QueryRow(ctx, query,
		log.Question, log.Answer, sourcesJSON, log.ProcessingTime, log.SourceCount,
		log.AvgSimilarity, log.IPAddress, log.UserAgent,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create query log: %w", err)
	}

	return nil
}

// List retrieves query logs newest first
func (r *QueryLogsRepository) List(ctx context.Context, limit, offset int) ([]models.QueryLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, question, answer, sources, processing_time, source_count, avg_similarity, ip_address, created_at
		FROM query_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list query logs: %w", err)
	}
	defer rows.Close()

	logs := []models.QueryLog{}

	for rows.Next() {
		var (
			log         models.QueryLog
			sourcesJSON []byte
		)

		err := rows.Scan(&log.ID, &log.Question, &log.Answer, &sourcesJSON, &log.ProcessingTime,
			&log.SourceCount, &log.AvgSimilarity, &log.IPAddress, &log.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}

		if err := json.Unmarshal(sourcesJSON, &log.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources for query log %d: %w", log.ID, err)
		}

		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query logs: %w", err)
	}

	return logs, nil
}

// QueryLogAggregates summarizes every stored query log.
type QueryLogAggregates struct {
	Total             int64
	AvgProcessingTime float64
	AvgSimilarity     float64
}

// Aggregates returns the query count and mean processing time and similarity.
// Averages skip NULLs and are zero when there are no logs.
func (r *QueryLogsRepository) Aggregates(ctx context.Context) (QueryLogAggregates, error) {
	var agg QueryLogAggregates

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(processing_time), 0), COALESCE(AVG(avg_similarity), 0)
		FROM query_logs`,
	).Scan(&agg.Total, &agg.AvgProcessingTime, &agg.AvgSimilarity)
	if err != nil {
		return QueryLogAggregates{}, fmt.Errorf("failed to aggregate query logs: %w", err)
	}

	return agg, nil
}
