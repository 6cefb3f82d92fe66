package reservation

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gmapartments/booking-api/internal/domain/discount"
	"github.com/gmapartments/booking-api/internal/domain/structure"
)

// CreateRequest holds the input for placing a reservation.
type CreateRequest struct {
	UserID         string
	RoomID         string
	CheckIn        time.Time
	CheckOut       time.Time
	NumberOfPeople int
	Guest          Guest
	CouponCode     string
}

// Service encapsulates reservation placement, availability, payment
// transitions, and the stale-reservation sweep.
type Service struct {
	rooms        structure.RoomRepository
	reservations Repository
	discounts    discount.Validator
	now          func() time.Time
}

// NewService creates a reservation Service.
func NewService(rooms structure.RoomRepository, reservations Repository, discounts discount.Validator) *Service {
	return &Service{
		rooms:        rooms,
		reservations: reservations,
		discounts:    discounts,
		now:          time.Now,
	}
}

// Create validates the requested stay, checks the room for date conflicts,
// computes the nightly total with an optional discount code, and persists the
// reservation in the unpaid state.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Reservation, error) {
	if !req.CheckOut.After(req.CheckIn) {
		return nil, ErrInvalidDates
	}
	today := civilDate(s.now())
	if req.CheckIn.Before(today) {
		return nil, ErrPastCheckIn
	}

	room, err := s.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Status != structure.RoomAvailable {
		return nil, ErrRoomUnavailable
	}
	if req.NumberOfPeople <= 0 || req.NumberOfPeople > room.MaxPeople {
		return nil, ErrTooManyPeople
	}

	// Overlap check. Same-day turnover is allowed: an existing check-out on
	// the requested check-in date does not conflict.
	overlapping, err := s.reservations.ListOverlapping(ctx, req.RoomID, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, errors.Wrap(err, "list overlapping reservations")
	}
	for _, o := range overlapping {
		if o.CheckOut.After(req.CheckIn) && o.CheckIn.Before(req.CheckOut) {
			return nil, ErrRoomOccupied
		}
	}

	nights := decimal.NewFromInt(int64(int(req.CheckOut.Sub(req.CheckIn).Hours() / 24)))
	total := room.CostPerNight.Mul(nights)

	if req.CouponCode != "" {
		amount, err := s.discounts.Validate(ctx, req.CouponCode, discount.Stay{
			RoomID:   req.RoomID,
			CheckIn:  req.CheckIn,
			CheckOut: req.CheckOut,
			Total:    total,
		})
		if err != nil {
			return nil, errors.Wrap(err, "validate discount")
		}
		total = total.Sub(amount)
		if total.IsNegative() {
			total = decimal.Zero
		}
	}
	total = total.Round(2)

	r := &Reservation{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		RoomID:         req.RoomID,
		CheckIn:        req.CheckIn,
		CheckOut:       req.CheckOut,
		NumberOfPeople: req.NumberOfPeople,
		TotalCost:      total,
		// Quoted to the payment provider when the client starts checkout;
		// the success webhook references it to locate the reservation.
		PaymentIntentID: "pi_" + uuid.New().String(),
		Status:          StatusUnpaid,
		Guest:           req.Guest,
		CouponUsed:      req.CouponCode,
	}
	if err := s.reservations.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create reservation")
	}
	return r, nil
}

// Get returns one reservation by its identifier.
func (s *Service) Get(ctx context.Context, id string) (*Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// List returns all reservations ordered by check-in date.
func (s *Service) List(ctx context.Context) ([]Reservation, error) {
	return s.reservations.List(ctx)
}

// BusyDates returns the set of civil dates within [from, to] on which the
// room is taken, formatted as 2006-01-02 strings.
func (s *Service) BusyDates(ctx context.Context, roomID string, from, to time.Time) ([]string, error) {
	overlapping, err := s.reservations.ListOverlapping(ctx, roomID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "list overlapping reservations")
	}

	seen := make(map[string]struct{})
	for _, r := range overlapping {
		for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDate(0, 0, 1) {
			if d.Before(from) || d.After(to) {
				continue
			}
			seen[d.Format("2006-01-02")] = struct{}{}
		}
	}

	// Lexicographic order matches chronological order for this date format.
	busy := slices.Sorted(maps.Keys(seen))
	return busy, nil
}

// MarkPaid transitions the reservation bound to the payment intent into the
// paid state. Called from the payment webhook.
func (s *Service) MarkPaid(ctx context.Context, paymentIntentID string) (*Reservation, error) {
	r, err := s.reservations.FindByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	r.Status = StatusPaid
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, errors.Wrap(err, "update reservation")
	}
	return r, nil
}

// Cancel marks the reservation as canceled. The row is kept for bookkeeping.
func (s *Service) Cancel(ctx context.Context, id string) (*Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Status = StatusCanceled
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, errors.Wrap(err, "update reservation")
	}
	return r, nil
}

// ExpireStale cancels unpaid reservations older than ttl and returns the ones
// it touched, so callers can release held dates and notify guests.
func (s *Service) ExpireStale(ctx context.Context, ttl time.Duration) ([]Reservation, error) {
	cutoff := s.now().Add(-ttl)
	stale, err := s.reservations.ListStaleUnpaid(ctx, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "list stale reservations")
	}

	expired := make([]Reservation, 0, len(stale))
	for i := range stale {
		stale[i].Status = StatusCanceled
		if err := s.reservations.Update(ctx, &stale[i]); err != nil {
			return expired, errors.Wrapf(err, "expire reservation %s", stale[i].ID)
		}
		expired = append(expired, stale[i])
	}
	return expired, nil
}

// CheckingInToday returns non-canceled reservations whose stay begins today.
// Used by the self-check-in reminder task.
func (s *Service) CheckingInToday(ctx context.Context) ([]Reservation, error) {
	return s.reservations.ListCheckingInOn(ctx, civilDate(s.now()))
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
