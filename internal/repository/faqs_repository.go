package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalqa/assistant/internal/apperrors"
	"github.com/legalqa/assistant/internal/models"
)

// FAQsRepository handles data access for FAQs
type FAQsRepository struct {
	db *pgxpool.Pool
}

// NewFAQsRepository creates a new FAQs repository
func NewFAQsRepository(db *pgxpool.Pool) *FAQsRepository {
	return &FAQsRepository{db: db}
}

const faqColumns = `id, question, answer, category, created_at, updated_at`

func scanFAQ(row pgx.Row) (*models.FAQ, error) {
	var faq models.FAQ
	if err := row.Scan(&faq.ID, &faq.Question, &faq.Answer, &faq.Category, &faq.CreatedAt, &faq.UpdatedAt); err != nil {
		return nil, err
	}

	return &faq, nil
}

// Create inserts a new FAQ
func (r *FAQsRepository) Create(ctx context.Context, req *models.CreateFAQRequest) (*models.FAQ, error) {
	query := `
		INSERT INTO faqs (question, answer, category)
		VALUES ($1, $2, $3)
		RETURNING ` + faqColumns

	faq, err := scanFAQ(r.db.QueryRow(ctx, query,
		strings.TrimSpace(req.Question), strings.TrimSpace(req.Answer), strings.TrimSpace(req.Category)))
	if err != nil {
		return nil, fmt.Errorf("failed to create faq: %w", err)
	}

	return faq, nil
}

// GetByID retrieves a single FAQ by ID
func (r *FAQsRepository) GetByID(ctx context.Context, id int64) (*models.FAQ, error) {
	faq, err := scanFAQ(r.db.QueryRow(ctx, `SELECT `+faqColumns+` FROM faqs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("faq", "faq not found")
		}

		return nil, fmt.Errorf("failed to get faq: %w", err)
	}

	return faq, nil
}

func buildFAQsWhere(filters *models.ListFAQsFilters) (string, []any) {
	if filters == nil || filters.Category == "" {
		return "", nil
	}

	return " WHERE category = $1", []any{filters.Category}
}

// List retrieves FAQs with optional filters, oldest first
func (r *FAQsRepository) List(ctx context.Context, filters *models.ListFAQsFilters) ([]models.FAQ, error) {
	query := `SELECT ` + faqColumns + ` FROM faqs`

	whereClause, args := buildFAQsWhere(filters)
	query += whereClause + " ORDER BY id"

	if filters != nil {
		if filters.Limit > 0 {
			args = append(args, filters.Limit)
			query += fmt.Sprintf(" LIMIT $%d", len(args))
		}

		if filters.Offset > 0 {
			args = append(args, filters.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list faqs: %w", err)
	}
	defer rows.Close()

	faqs := []models.FAQ{}

	for rows.Next() {
		faq, err := scanFAQ(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan faq: %w", err)
		}

		faqs = append(faqs, *faq)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating faqs: %w", err)
	}

	return faqs, nil
}

// Count returns the number of FAQs matching filters
func (r *FAQsRepository) Count(ctx context.Context, filters *models.ListFAQsFilters) (int64, error) {
	whereClause, args := buildFAQsWhere(filters)

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM faqs`+whereClause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count faqs: %w", err)
	}

	return count, nil
}

// CountByCategory returns FAQ counts per category, largest first
func (r *FAQsRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT category, COUNT(*) AS n
		FROM faqs
		GROUP BY category
		ORDER BY n DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count faqs by category: %w", err)
	}
	defer rows.Close()

	counts := []models.CategoryCount{}

	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}

		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	return counts, nil
}

// Delete removes an FAQ by ID
func (r *FAQsRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete faq: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("faq", "faq not found")
	}

	return nil
}

// DeleteAll removes every FAQ and returns how many were deleted
func (r *FAQsRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM faqs`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete faqs: %w", err)
	}

	return result.RowsAffected(), nil
}
