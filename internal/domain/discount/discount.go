package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for discount validation.
var (
	ErrInvalidCode      = errors.New("invalid discount code")
	ErrDuplicateCode    = errors.New("discount code already exists")
	ErrOutsideValidity  = errors.New("discount not valid for the reservation dates")
	ErrNotEnoughNights  = errors.New("reservation too short for this discount")
	ErrRoomNotEligible  = errors.New("discount does not apply to this room")
	ErrInvalidDateRange = errors.New("start date must be before end date")
)

// Discount is a percentage reduction applied to a reservation total when its
// stay falls inside the validity window and meets the minimum-nights rule.
// RoomIDs limits applicability; an empty list means the code applies to every
// room.
type Discount struct {
	ID          string
	Code        string
	Description string
	Percent     decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	MinNights   int
	RoomIDs     []string
	CreatedAt   time.Time
}

// AppliesTo reports whether the discount can be used for the given room.
func (d *Discount) AppliesTo(roomID string) bool {
	if len(d.RoomIDs) == 0 {
		return true
	}
	for _, id := range d.RoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}

// Repository defines persistence operations for discounts.
type Repository interface {
	Create(ctx context.Context, d *Discount) error
	GetByID(ctx context.Context, id string) (*Discount, error)
	FindByCode(ctx context.Context, code string) (*Discount, error)
	List(ctx context.Context) ([]Discount, error)
	Update(ctx context.Context, d *Discount) error
	Delete(ctx context.Context, id string) error
}
