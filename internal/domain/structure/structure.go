package structure

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for structure and room lookups.
var (
	ErrNotFound     = errors.New("structure not found")
	ErrRoomNotFound = errors.New("room not found")
	ErrDuplicateCIS = errors.New("structure CIS already registered")
)

// Structure is a building that contains bookable rooms. The CIS code is the
// regional identification number assigned to the accommodation and must be
// unique.
type Structure struct {
	ID          string
	Name        string
	Description string
	Address     string
	CIS         string
	Images      []Image
}

// Image is a stored picture of a structure or a room, referenced by its
// path under the media volume.
type Image struct {
	Path string
	Alt  string
}

// RoomStatus marks whether a room can currently be booked.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "AVAILABLE"
	RoomUnavailable RoomStatus = "UNAVAILABLE"
)

// Room is a bookable unit inside a structure. CalendarID and
// BookingCalendarID hold the external calendar identifiers used to mirror
// availability to Google Calendar and Booking.com respectively.
type Room struct {
	ID                string
	StructureID       string
	Name              string
	Status            RoomStatus
	Services          string
	CostPerNight      decimal.Decimal
	MaxPeople         int
	CalendarID        string
	BookingCalendarID string
	Images            []Image
}

// Repository defines persistence operations for structures.
type Repository interface {
	Create(ctx context.Context, s *Structure) error
	GetByID(ctx context.Context, id string) (*Structure, error)
	List(ctx context.Context) ([]Structure, error)
	Update(ctx context.Context, s *Structure) error
	Delete(ctx context.Context, id string) error
}

// RoomRepository defines persistence operations for rooms.
type RoomRepository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context) ([]Room, error)
	ListByStructure(ctx context.Context, structureID string) ([]Room, error)
	Update(ctx context.Context, r *Room) error
	Delete(ctx context.Context, id string) error
}
