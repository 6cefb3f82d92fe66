package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gmapartments/booking-api/internal/domain/discount"
)

const (
	createDiscountSQL = `INSERT INTO discounts (id, code, description, percent, start_date, end_date,
		min_nights, room_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	discountColumns = `id, code, description, percent, start_date, end_date,
		min_nights, room_ids, created_at`

	getDiscountByIDSQL = `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`

	findDiscountByCodeSQL = `SELECT ` + discountColumns + ` FROM discounts
		WHERE UPPER(code) = UPPER($1)`

	listDiscountsSQL = `SELECT ` + discountColumns + ` FROM discounts ORDER BY created_at`

	updateDiscountSQL = `UPDATE discounts SET code = $2, description = $3, percent = $4,
		start_date = $5, end_date = $6, min_nights = $7, room_ids = $8
		WHERE id = $1`

	deleteDiscountSQL = `DELETE FROM discounts WHERE id = $1`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Create persists a new discount.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, createDiscountSQL,
		d.ID, d.Code, d.Description, d.Percent, d.StartDate, d.EndDate,
		d.MinNights, d.RoomIDs, d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "discounts_code_key") {
			return discount.ErrDuplicateCode
		}
		return fmt.Errorf("creating discount %q: %w", d.ID, err)
	}
	return nil
}

// GetByID returns a single discount by its identifier.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*discount.Discount, error) {
	return r.queryOne(ctx, getDiscountByIDSQL, id)
}

// FindByCode looks up a discount by its code (case-insensitive). Returns
// discount.ErrInvalidCode when no such code exists.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (*discount.Discount, error) {
	d, err := r.queryOne(ctx, findDiscountByCodeSQL, code)
	if errors.Is(err, discount.ErrInvalidCode) {
		return nil, discount.ErrInvalidCode
	}
	return d, err
}

// List returns all discounts ordered by creation time.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discounts: %w", err)
	}
	return pgx.CollectRows(rows, scanDiscount)
}

// Update overwrites the stored discount.
func (r *DiscountRepository) Update(ctx context.Context, d *discount.Discount) error {
	tag, err := r.pool.Exec(ctx, updateDiscountSQL,
		d.ID, d.Code, d.Description, d.Percent, d.StartDate, d.EndDate,
		d.MinNights, d.RoomIDs,
	)
	if err != nil {
		if isUniqueViolation(err, "discounts_code_key") {
			return discount.ErrDuplicateCode
		}
		return fmt.Errorf("updating discount %q: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrInvalidCode
	}
	return nil
}

// Delete removes a discount.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, id)
	if err != nil {
		return fmt.Errorf("deleting discount %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrInvalidCode
	}
	return nil
}

func (r *DiscountRepository) queryOne(ctx context.Context, sql string, arg any) (*discount.Discount, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("querying discount: %w", err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrInvalidCode
		}
		return nil, fmt.Errorf("querying discount: %w", err)
	}
	return &d, nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Discount, error) {
	var (
		d       discount.Discount
		percent decimal.Decimal
	)
	err := row.Scan(
		&d.ID, &d.Code, &d.Description, &percent, &d.StartDate, &d.EndDate,
		&d.MinNights, &d.RoomIDs, &d.CreatedAt,
	)
	d.Percent = percent
	d.StartDate = d.StartDate.UTC()
	d.EndDate = d.EndDate.UTC()
	return d, err
}
