package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmapartments/booking-api/internal/domain/discount"
	"github.com/gmapartments/booking-api/internal/domain/structure"
)

// --- Mock implementations ---

type mockRoomRepo struct {
	byID map[string]*structure.Room
}

func (m *mockRoomRepo) Create(_ context.Context, _ *structure.Room) error { return nil }
func (m *mockRoomRepo) List(_ context.Context) ([]structure.Room, error)  { return nil, nil }
func (m *mockRoomRepo) ListByStructure(_ context.Context, _ string) ([]structure.Room, error) {
	return nil, nil
}
func (m *mockRoomRepo) Update(_ context.Context, _ *structure.Room) error { return nil }
func (m *mockRoomRepo) Delete(_ context.Context, _ string) error          { return nil }

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*structure.Room, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, structure.ErrRoomNotFound
	}
	return r, nil
}

type mockReservationRepo struct {
	existing  []Reservation
	stale     []Reservation
	byIntent  map[string]*Reservation
	created   *Reservation
	updated   []*Reservation
	createErr error
}

func (m *mockReservationRepo) Create(_ context.Context, r *Reservation) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = r
	return nil
}

func (m *mockReservationRepo) GetByID(_ context.Context, id string) (*Reservation, error) {
	for i := range m.existing {
		if m.existing[i].ID == id {
			cp := m.existing[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockReservationRepo) List(_ context.Context) ([]Reservation, error) {
	return m.existing, nil
}

// ListOverlapping mirrors the SQL predicate exactly:
// check_in <= to AND check_out > from.
func (m *mockReservationRepo) ListOverlapping(_ context.Context, roomID string, from, to time.Time) ([]Reservation, error) {
	var out []Reservation
	for _, r := range m.existing {
		if r.RoomID != roomID || r.Status == StatusCanceled {
			continue
		}
		if r.CheckIn.After(to) || !r.CheckOut.After(from) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockReservationRepo) FindByPaymentIntent(_ context.Context, id string) (*Reservation, error) {
	r, ok := m.byIntent[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockReservationRepo) ListCheckingInOn(_ context.Context, day time.Time) ([]Reservation, error) {
	var out []Reservation
	for _, r := range m.existing {
		if r.Status != StatusCanceled && r.CheckIn.Equal(day) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReservationRepo) ListStaleUnpaid(_ context.Context, _ time.Time) ([]Reservation, error) {
	return m.stale, nil
}

func (m *mockReservationRepo) Update(_ context.Context, r *Reservation) error {
	m.updated = append(m.updated, r)
	return nil
}

type fixedDiscount struct {
	amount decimal.Decimal
	err    error
}

func (f fixedDiscount) Validate(_ context.Context, _ string, _ discount.Stay) (decimal.Decimal, error) {
	return f.amount, f.err
}

// --- Helpers ---

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(rooms *mockRoomRepo, repo *mockReservationRepo, d discount.Validator) *Service {
	svc := NewService(rooms, repo, d)
	svc.now = func() time.Time { return date(2025, time.July, 1) }
	return svc
}

func seaViewRoom() *structure.Room {
	return &structure.Room{
		ID:           "r1",
		StructureID:  "s1",
		Name:         "Sea View",
		Status:       structure.RoomAvailable,
		CostPerNight: decimal.NewFromInt(80),
		MaxPeople:    2,
	}
}

// --- Tests ---

func TestCreate_ComputesNightlyTotal(t *testing.T) {
	rooms := &mockRoomRepo{byID: map[string]*structure.Room{"r1": seaViewRoom()}}
	repo := &mockReservationRepo{}
	svc := newTestService(rooms, repo, fixedDiscount{})

	r, err := svc.Create(context.Background(), CreateRequest{
		UserID:         "u1",
		RoomID:         "r1",
		CheckIn:        date(2025, time.July, 10),
		CheckOut:       date(2025, time.July, 13),
		NumberOfPeople: 2,
		Guest:          Guest{FirstName: "Mario", LastName: "Rossi", Email: "mario@example.com"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusUnpaid, r.Status)
	assert.Equal(t, 3, r.Nights())
	assert.True(t, r.TotalCost.Equal(decimal.NewFromInt(240)), "total = %s", r.TotalCost)
	require.NotNil(t, repo.created)
}

func TestCreate_AppliesDiscount(t *testing.T) {
	rooms := &mockRoomRepo{byID: map[string]*structure.Room{"r1": seaViewRoom()}}
	repo := &mockReservationRepo{}
	svc := newTestService(rooms, repo, fixedDiscount{amount: decimal.NewFromInt(24)})

	r, err := svc.Create(context.Background(), CreateRequest{
		RoomID:         "r1",
		CheckIn:        date(2025, time.July, 10),
		CheckOut:       date(2025, time.July, 13),
		NumberOfPeople: 2,
		CouponCode:     "SUMMER10",
	})
	require.NoError(t, err)

	assert.True(t, r.TotalCost.Equal(decimal.NewFromInt(216)), "total = %s", r.TotalCost)
	assert.Equal(t, "SUMMER10", r.CouponUsed)
}

func TestCreate_InvalidDiscountRejected(t *testing.T) {
	rooms := &mockRoomRepo{byID: map[string]*structure.Room{"r1": seaViewRoom()}}
	svc := newTestService(rooms, &mockReservationRepo{}, fixedDiscount{err: discount.ErrInvalidCode})

	_, err := svc.Create(context.Background(), CreateRequest{
		RoomID:         "r1",
		CheckIn:        date(2025, time.July, 10),
		CheckOut:       date(2025, time.July, 13),
		NumberOfPeople: 2,
		CouponCode:     "NOPE",
	})
	assert.ErrorIs(t, err, discount.ErrInvalidCode)
}

func TestCreate_Validation(t *testing.T) {
	unavailable := seaViewRoom()
	unavailable.ID = "r2"
	unavailable.Status = structure.RoomUnavailable

	rooms := &mockRoomRepo{byID: map[string]*structure.Room{
		"r1": seaViewRoom(),
		"r2": unavailable,
	}}

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{
			name: "check-out before check-in",
			req: CreateRequest{
				RoomID: "r1", NumberOfPeople: 1,
				CheckIn:  date(2025, time.July, 13),
				CheckOut: date(2025, time.July, 10),
			},
			wantErr: ErrInvalidDates,
		},
		{
			name: "check-in in the past",
			req: CreateRequest{
				RoomID: "r1", NumberOfPeople: 1,
				CheckIn:  date(2025, time.June, 20),
				CheckOut: date(2025, time.June, 22),
			},
			wantErr: ErrPastCheckIn,
		},
		{
			name: "unavailable room",
			req: CreateRequest{
				RoomID: "r2", NumberOfPeople: 1,
				CheckIn:  date(2025, time.July, 10),
				CheckOut: date(2025, time.July, 12),
			},
			wantErr: ErrRoomUnavailable,
		},
		{
			name: "too many people",
			req: CreateRequest{
				RoomID: "r1", NumberOfPeople: 5,
				CheckIn:  date(2025, time.July, 10),
				CheckOut: date(2025, time.July, 12),
			},
			wantErr: ErrTooManyPeople,
		},
		{
			name: "unknown room",
			req: CreateRequest{
				RoomID: "missing", NumberOfPeople: 1,
				CheckIn:  date(2025, time.July, 10),
				CheckOut: date(2025, time.July, 12),
			},
			wantErr: structure.ErrRoomNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(rooms, &mockReservationRepo{}, fixedDiscount{})
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_OverlapRejected(t *testing.T) {
	rooms := &mockRoomRepo{byID: map[string]*structure.Room{"r1": seaViewRoom()}}
	repo := &mockReservationRepo{existing: []Reservation{{
		ID:       "existing",
		RoomID:   "r1",
		Status:   StatusPaid,
		CheckIn:  date(2025, time.July, 11),
		CheckOut: date(2025, time.July, 14),
	}}}
	svc := newTestService(rooms, repo, fixedDiscount{})

	_, err := svc.Create(context.Background(), CreateRequest{
		RoomID: "r1", NumberOfPeople: 2,
		CheckIn:  date(2025, time.July, 12),
		CheckOut: date(2025, time.July, 13),
	})
	assert.ErrorIs(t, err, ErrRoomOccupied)
}

func TestCreate_SameDayTurnoverAllowed(t *testing.T) {
	rooms := &mockRoomRepo{byID: map[string]*structure.Room{"r1": seaViewRoom()}}
	repo := &mockReservationRepo{existing: []Reservation{{
		ID:       "existing",
		RoomID:   "r1",
		Status:   StatusPaid,
		CheckIn:  date(2025, time.July, 8),
		CheckOut: date(2025, time.July, 10),
	}}}
	svc := newTestService(rooms, repo, fixedDiscount{})

	// New stay begins the day the previous guest checks out.
	_, err := svc.Create(context.Background(), CreateRequest{
		RoomID: "r1", NumberOfPeople: 2,
		CheckIn:  date(2025, time.July, 10),
		CheckOut: date(2025, time.July, 12),
	})
	assert.NoError(t, err)
}

func TestCreate_CanceledReservationDoesNotBlock(t *testing.T) {
	rooms := &mockRoomRepo{byID: map[string]*structure.Room{"r1": seaViewRoom()}}
	repo := &mockReservationRepo{existing: []Reservation{{
		ID:       "canceled",
		RoomID:   "r1",
		Status:   StatusCanceled,
		CheckIn:  date(2025, time.July, 10),
		CheckOut: date(2025, time.July, 14),
	}}}
	svc := newTestService(rooms, repo, fixedDiscount{})

	_, err := svc.Create(context.Background(), CreateRequest{
		RoomID: "r1", NumberOfPeople: 2,
		CheckIn:  date(2025, time.July, 11),
		CheckOut: date(2025, time.July, 13),
	})
	assert.NoError(t, err)
}

func TestBusyDates(t *testing.T) {
	repo := &mockReservationRepo{existing: []Reservation{
		{
			ID: "a", RoomID: "r1", Status: StatusPaid,
			CheckIn:  date(2025, time.July, 10),
			CheckOut: date(2025, time.July, 12),
		},
		{
			ID: "b", RoomID: "r1", Status: StatusUnpaid,
			CheckIn:  date(2025, time.July, 15),
			CheckOut: date(2025, time.July, 16),
		},
	}}
	svc := newTestService(&mockRoomRepo{}, repo, fixedDiscount{})

	busy, err := svc.BusyDates(context.Background(), "r1",
		date(2025, time.July, 1), date(2025, time.July, 31))
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-07-10", "2025-07-11", "2025-07-15"}, busy)
}

func TestBusyDates_RangeEndsOnCheckIn(t *testing.T) {
	repo := &mockReservationRepo{existing: []Reservation{
		{
			ID: "a", RoomID: "r1", Status: StatusPaid,
			CheckIn:  date(2025, time.July, 10),
			CheckOut: date(2025, time.July, 12),
		},
	}}
	svc := newTestService(&mockRoomRepo{}, repo, fixedDiscount{})

	// A stay starting on the last day of the window still occupies that night.
	busy, err := svc.BusyDates(context.Background(), "r1",
		date(2025, time.July, 1), date(2025, time.July, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-10"}, busy)

	// A window ending on a check-out day reports nothing: that night is free.
	busy, err = svc.BusyDates(context.Background(), "r1",
		date(2025, time.July, 12), date(2025, time.July, 20))
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestMarkPaid(t *testing.T) {
	repo := &mockReservationRepo{byIntent: map[string]*Reservation{
		"pi_123": {ID: "res-1", Status: StatusUnpaid, PaymentIntentID: "pi_123"},
	}}
	svc := newTestService(&mockRoomRepo{}, repo, fixedDiscount{})

	r, err := svc.MarkPaid(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, r.Status)
	require.Len(t, repo.updated, 1)
	assert.Equal(t, StatusPaid, repo.updated[0].Status)
}

func TestMarkPaid_UnknownIntent(t *testing.T) {
	svc := newTestService(&mockRoomRepo{}, &mockReservationRepo{}, fixedDiscount{})
	_, err := svc.MarkPaid(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	repo := &mockReservationRepo{existing: []Reservation{
		{ID: "res-1", Status: StatusUnpaid},
	}}
	svc := newTestService(&mockRoomRepo{}, repo, fixedDiscount{})

	r, err := svc.Cancel(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, r.Status)
}

func TestExpireStale(t *testing.T) {
	repo := &mockReservationRepo{stale: []Reservation{
		{ID: "old-1", Status: StatusUnpaid},
		{ID: "old-2", Status: StatusUnpaid},
	}}
	svc := newTestService(&mockRoomRepo{}, repo, fixedDiscount{})

	expired, err := svc.ExpireStale(context.Background(), time.Hour)
	require.NoError(t, err)

	require.Len(t, expired, 2)
	for _, r := range expired {
		assert.Equal(t, StatusCanceled, r.Status)
	}
	assert.Len(t, repo.updated, 2)
}

func TestCheckingInToday(t *testing.T) {
	repo := &mockReservationRepo{existing: []Reservation{
		{ID: "today", Status: StatusPaid, CheckIn: date(2025, time.July, 1)},
		{ID: "tomorrow", Status: StatusPaid, CheckIn: date(2025, time.July, 2)},
		{ID: "canceled", Status: StatusCanceled, CheckIn: date(2025, time.July, 1)},
	}}
	svc := newTestService(&mockRoomRepo{}, repo, fixedDiscount{})

	due, err := svc.CheckingInToday(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "today", due[0].ID)
}
