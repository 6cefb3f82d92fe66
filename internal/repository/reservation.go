package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gmapartments/booking-api/internal/domain/reservation"
)

const (
	createReservationSQL = `INSERT INTO reservations (id, user_id, room_id, event_id, check_in, check_out,
		number_of_people, total_cost, payment_intent_id, status,
		guest_first_name, guest_last_name, guest_phone, guest_email, coupon_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	reservationColumns = `id, user_id, room_id, event_id, check_in, check_out,
		number_of_people, total_cost, payment_intent_id, status,
		guest_first_name, guest_last_name, guest_phone, guest_email, coupon_used, created_at`

	getReservationByIDSQL = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	listReservationsSQL = `SELECT ` + reservationColumns + ` FROM reservations ORDER BY check_in`

	listOverlappingSQL = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE room_id = $1 AND status <> 'CANCELED' AND check_in <= $3 AND check_out > $2
		ORDER BY check_in`

	findByPaymentIntentSQL = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE payment_intent_id = $1`

	listCheckingInOnSQL = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status <> 'CANCELED' AND check_in = $1 ORDER BY created_at`

	listStaleUnpaidSQL = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status = 'UNPAID' AND created_at < $1 ORDER BY created_at`

	updateReservationSQL = `UPDATE reservations SET event_id = $2, check_in = $3, check_out = $4,
		number_of_people = $5, total_cost = $6, payment_intent_id = $7, status = $8,
		guest_first_name = $9, guest_last_name = $10, guest_phone = $11, guest_email = $12,
		coupon_used = $13
		WHERE id = $1`
)

var _ reservation.Repository = (*ReservationRepository)(nil)

// ReservationRepository implements reservation.Repository backed by PostgreSQL.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

// NewReservationRepository returns a ReservationRepository that uses the given pool.
func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// Create persists a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, rv *reservation.Reservation) error {
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, createReservationSQL,
		rv.ID, rv.UserID, rv.RoomID, rv.EventID, rv.CheckIn, rv.CheckOut,
		rv.NumberOfPeople, rv.TotalCost, rv.PaymentIntentID, rv.Status,
		rv.Guest.FirstName, rv.Guest.LastName, rv.Guest.Phone, rv.Guest.Email,
		rv.CouponUsed, rv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating reservation %q: %w", rv.ID, err)
	}
	return nil
}

// GetByID returns a single reservation by its identifier.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	return r.queryOne(ctx, getReservationByIDSQL, id)
}

// List returns all reservations ordered by check-in date.
func (r *ReservationRepository) List(ctx context.Context) ([]reservation.Reservation, error) {
	rows, err := r.pool.Query(ctx, listReservationsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	return pgx.CollectRows(rows, scanReservation)
}

// ListOverlapping returns non-canceled reservations of the room whose stay
// intersects the [from, to) range.
func (r *ReservationRepository) ListOverlapping(ctx context.Context, roomID string, from, to time.Time) ([]reservation.Reservation, error) {
	rows, err := r.pool.Query(ctx, listOverlappingSQL, roomID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing overlapping reservations for room %q: %w", roomID, err)
	}
	return pgx.CollectRows(rows, scanReservation)
}

// FindByPaymentIntent returns the reservation holding the given payment
// intent identifier.
func (r *ReservationRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*reservation.Reservation, error) {
	return r.queryOne(ctx, findByPaymentIntentSQL, paymentIntentID)
}

// ListCheckingInOn returns non-canceled reservations checking in on the
// given civil date.
func (r *ReservationRepository) ListCheckingInOn(ctx context.Context, day time.Time) ([]reservation.Reservation, error) {
	rows, err := r.pool.Query(ctx, listCheckingInOnSQL, day)
	if err != nil {
		return nil, fmt.Errorf("listing reservations checking in on %s: %w", day.Format("2006-01-02"), err)
	}
	return pgx.CollectRows(rows, scanReservation)
}

// ListStaleUnpaid returns unpaid reservations created before the cutoff.
func (r *ReservationRepository) ListStaleUnpaid(ctx context.Context, cutoff time.Time) ([]reservation.Reservation, error) {
	rows, err := r.pool.Query(ctx, listStaleUnpaidSQL, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing stale unpaid reservations: %w", err)
	}
	return pgx.CollectRows(rows, scanReservation)
}

// Update overwrites the stored reservation.
func (r *ReservationRepository) Update(ctx context.Context, rv *reservation.Reservation) error {
	tag, err := r.pool.Exec(ctx, updateReservationSQL,
		rv.ID, rv.EventID, rv.CheckIn, rv.CheckOut,
		rv.NumberOfPeople, rv.TotalCost, rv.PaymentIntentID, rv.Status,
		rv.Guest.FirstName, rv.Guest.LastName, rv.Guest.Phone, rv.Guest.Email,
		rv.CouponUsed,
	)
	if err != nil {
		return fmt.Errorf("updating reservation %q: %w", rv.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return reservation.ErrNotFound
	}
	return nil
}

func (r *ReservationRepository) queryOne(ctx context.Context, sql string, arg any) (*reservation.Reservation, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}

	rv, err := pgx.CollectExactlyOneRow(rows, scanReservation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reservation.ErrNotFound
		}
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return &rv, nil
}

func scanReservation(row pgx.CollectableRow) (reservation.Reservation, error) {
	var (
		rv   reservation.Reservation
		cost decimal.Decimal
	)
	err := row.Scan(
		&rv.ID, &rv.UserID, &rv.RoomID, &rv.EventID, &rv.CheckIn, &rv.CheckOut,
		&rv.NumberOfPeople, &cost, &rv.PaymentIntentID, &rv.Status,
		&rv.Guest.FirstName, &rv.Guest.LastName, &rv.Guest.Phone, &rv.Guest.Email,
		&rv.CouponUsed, &rv.CreatedAt,
	)
	rv.TotalCost = cost
	// Dates come back in UTC regardless of session timezone.
	rv.CheckIn = rv.CheckIn.UTC()
	rv.CheckOut = rv.CheckOut.UTC()
	return rv, err
}
