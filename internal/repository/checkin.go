package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gmapartments/booking-api/internal/checkin"
)

const (
	countChoicesSQL = `SELECT COUNT(*) FROM checkin_choices WHERE category = $1`

	insertChoiceSQL = `INSERT INTO checkin_choices (category, code, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (category, code) DO NOTHING`

	listChoicesSQL = `SELECT category, code, description FROM checkin_choices
		WHERE category = $1 ORDER BY code`
)

var _ checkin.Repository = (*CheckinRepository)(nil)

// CheckinRepository implements checkin.Repository backed by PostgreSQL.
type CheckinRepository struct {
	pool *pgxpool.Pool
}

// NewCheckinRepository returns a CheckinRepository that uses the given pool.
func NewCheckinRepository(pool *pgxpool.Pool) *CheckinRepository {
	return &CheckinRepository{pool: pool}
}

// CountByCategory returns how many choices are stored for the category.
func (r *CheckinRepository) CountByCategory(ctx context.Context, c checkin.Category) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countChoicesSQL, c).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting choices for %q: %w", c, err)
	}
	return count, nil
}

// InsertBatch stores choices in a single batched round trip. Existing
// category/code pairs are left untouched.
func (r *CheckinRepository) InsertBatch(ctx context.Context, choices []checkin.Choice) error {
	batch := &pgx.Batch{}
	for _, c := range choices {
		batch.Queue(insertChoiceSQL, c.Category, c.Code, c.Description)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range choices {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting choice batch: %w", err)
		}
	}
	return results.Close()
}

// ListByCategory returns the stored choices of a category ordered by code.
func (r *CheckinRepository) ListByCategory(ctx context.Context, c checkin.Category) ([]checkin.Choice, error) {
	rows, err := r.pool.Query(ctx, listChoicesSQL, c)
	if err != nil {
		return nil, fmt.Errorf("listing choices for %q: %w", c, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (checkin.Choice, error) {
		var ch checkin.Choice
		err := row.Scan(&ch.Category, &ch.Code, &ch.Description)
		return ch, err
	})
}
