package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Stay describes the parts of a reservation a discount code is checked
// against. CheckIn and CheckOut are civil dates at midnight UTC.
type Stay struct {
	RoomID   string
	CheckIn  time.Time
	CheckOut time.Time
	Total    decimal.Decimal
}

// Nights returns the number of nights in the stay.
func (s Stay) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

// Validator resolves a discount code against a stay and returns the amount to
// subtract from the reservation total.
type Validator interface {
	Validate(ctx context.Context, code string, stay Stay) (decimal.Decimal, error)
}

// RepoValidator implements Validator by looking up codes from a Repository.
type RepoValidator struct {
	repo Repository
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo}
}

// Validate checks the code's validity window, minimum-nights rule, and room
// applicability, then computes the percentage amount off the stay total.
// The whole stay must fall inside the window, matching how the booking office
// advertises seasonal codes.
func (v *RepoValidator) Validate(ctx context.Context, code string, stay Stay) (decimal.Decimal, error) {
	d, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return decimal.Zero, ErrInvalidCode
		}
		return decimal.Zero, errors.Wrap(err, "lookup discount")
	}

	if stay.CheckIn.Before(d.StartDate) || stay.CheckOut.After(d.EndDate) {
		return decimal.Zero, ErrOutsideValidity
	}

	if stay.Nights() < d.MinNights {
		return decimal.Zero, ErrNotEnoughNights
	}

	if !d.AppliesTo(stay.RoomID) {
		return decimal.Zero, ErrRoomNotEligible
	}

	amount := stay.Total.Mul(d.Percent).Div(decimal.NewFromInt(100)).Round(2)
	return amount, nil
}
