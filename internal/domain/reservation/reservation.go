package reservation

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for reservation validation.
var (
	ErrNotFound        = errors.New("reservation not found")
	ErrInvalidDates    = errors.New("check-out must be after check-in")
	ErrPastCheckIn     = errors.New("check-in date is in the past")
	ErrRoomUnavailable = errors.New("room is not available")
	ErrRoomOccupied    = errors.New("room is already reserved for these dates")
	ErrTooManyPeople   = errors.New("party exceeds room capacity")
)

// Status tracks the payment lifecycle of a reservation.
type Status string

const (
	StatusUnpaid   Status = "UNPAID"
	StatusPaid     Status = "PAID"
	StatusCanceled Status = "CANCELED"
)

// Guest holds the contact details recorded on the reservation itself. They
// may differ from the account holder: bookings are often made on behalf of
// someone else.
type Guest struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

// Reservation is a booking of a room for a date range. CheckIn and CheckOut
// are civil dates at midnight UTC; the night of CheckOut is not included.
// EventID holds the external calendar event mirroring the stay, when one has
// been created.
type Reservation struct {
	ID              string
	UserID          string
	RoomID          string
	EventID         string
	CheckIn         time.Time
	CheckOut        time.Time
	NumberOfPeople  int
	TotalCost       decimal.Decimal
	PaymentIntentID string
	Status          Status
	Guest           Guest
	CouponUsed      string
	CreatedAt       time.Time
}

// Nights returns the number of nights covered by the reservation.
func (r *Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Repository defines persistence operations for reservations.
type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context) ([]Reservation, error)
	// ListOverlapping returns reservations for the room whose stay intersects
	// the inclusive [from, to] date range: check_in <= to and check_out > from.
	// A stay beginning exactly on to counts; one ending exactly on from does
	// not, since the check-out night is free. Canceled reservations are
	// excluded.
	ListOverlapping(ctx context.Context, roomID string, from, to time.Time) ([]Reservation, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*Reservation, error)
	// ListCheckingInOn returns non-canceled reservations whose check-in falls
	// on the given civil date.
	ListCheckingInOn(ctx context.Context, day time.Time) ([]Reservation, error)
	// ListStaleUnpaid returns unpaid reservations created before the cutoff.
	ListStaleUnpaid(ctx context.Context, cutoff time.Time) ([]Reservation, error)
	Update(ctx context.Context, r *Reservation) error
}
