package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gmapartments/booking-api/internal/domain/structure"
)

const (
	createStructureSQL = `INSERT INTO structures (id, name, description, address, cis, images)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getStructureByIDSQL = `SELECT id, name, description, address, cis, images
		FROM structures WHERE id = $1`

	listStructuresSQL = `SELECT id, name, description, address, cis, images
		FROM structures ORDER BY name`

	updateStructureSQL = `UPDATE structures SET name = $2, description = $3, address = $4,
		cis = $5, images = $6 WHERE id = $1`

	deleteStructureSQL = `DELETE FROM structures WHERE id = $1`
)

var _ structure.Repository = (*StructureRepository)(nil)

// StructureRepository implements structure.Repository backed by PostgreSQL.
type StructureRepository struct {
	pool *pgxpool.Pool
}

// NewStructureRepository returns a StructureRepository that uses the given pool.
func NewStructureRepository(pool *pgxpool.Pool) *StructureRepository {
	return &StructureRepository{pool: pool}
}

// Create persists a new structure. A duplicate CIS code maps to
// structure.ErrDuplicateCIS.
func (r *StructureRepository) Create(ctx context.Context, s *structure.Structure) error {
	images, err := json.Marshal(s.Images)
	if err != nil {
		return fmt.Errorf("marshaling structure images: %w", err)
	}

	_, err = r.pool.Exec(ctx, createStructureSQL,
		s.ID, s.Name, s.Description, s.Address, s.CIS, images,
	)
	if err != nil {
		if isUniqueViolation(err, "structures_cis_key") {
			return structure.ErrDuplicateCIS
		}
		return fmt.Errorf("creating structure %q: %w", s.ID, err)
	}
	return nil
}

// GetByID returns a single structure by its identifier.
func (r *StructureRepository) GetByID(ctx context.Context, id string) (*structure.Structure, error) {
	rows, err := r.pool.Query(ctx, getStructureByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting structure %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanStructure)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, structure.ErrNotFound
		}
		return nil, fmt.Errorf("getting structure %q: %w", id, err)
	}
	return &s, nil
}

// List returns all structures ordered by name.
func (r *StructureRepository) List(ctx context.Context) ([]structure.Structure, error) {
	rows, err := r.pool.Query(ctx, listStructuresSQL)
	if err != nil {
		return nil, fmt.Errorf("listing structures: %w", err)
	}
	return pgx.CollectRows(rows, scanStructure)
}

// Update overwrites the stored structure.
func (r *StructureRepository) Update(ctx context.Context, s *structure.Structure) error {
	images, err := json.Marshal(s.Images)
	if err != nil {
		return fmt.Errorf("marshaling structure images: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateStructureSQL,
		s.ID, s.Name, s.Description, s.Address, s.CIS, images,
	)
	if err != nil {
		if isUniqueViolation(err, "structures_cis_key") {
			return structure.ErrDuplicateCIS
		}
		return fmt.Errorf("updating structure %q: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return structure.ErrNotFound
	}
	return nil
}

// Delete removes a structure. Rooms are removed with it via the foreign key
// cascade.
func (r *StructureRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteStructureSQL, id)
	if err != nil {
		return fmt.Errorf("deleting structure %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return structure.ErrNotFound
	}
	return nil
}

func scanStructure(row pgx.CollectableRow) (structure.Structure, error) {
	var (
		s      structure.Structure
		images []byte
	)
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Address, &s.CIS, &images)
	if err != nil {
		return s, err
	}
	if len(images) > 0 {
		err = json.Unmarshal(images, &s.Images)
	}
	return s, err
}

const (
	createRoomSQL = `INSERT INTO rooms (id, structure_id, name, status, services, cost_per_night,
		max_people, calendar_id, booking_calendar_id, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	roomColumns = `id, structure_id, name, status, services, cost_per_night,
		max_people, calendar_id, booking_calendar_id, images`

	getRoomByIDSQL       = `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	listRoomsSQL         = `SELECT ` + roomColumns + ` FROM rooms ORDER BY name`
	listRoomsByStructSQL = `SELECT ` + roomColumns + ` FROM rooms WHERE structure_id = $1 ORDER BY name`

	updateRoomSQL = `UPDATE rooms SET structure_id = $2, name = $3, status = $4, services = $5,
		cost_per_night = $6, max_people = $7, calendar_id = $8, booking_calendar_id = $9, images = $10
		WHERE id = $1`

	deleteRoomSQL = `DELETE FROM rooms WHERE id = $1`
)

var _ structure.RoomRepository = (*RoomRepository)(nil)

// RoomRepository implements structure.RoomRepository backed by PostgreSQL.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository returns a RoomRepository that uses the given pool.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// Create persists a new room.
func (r *RoomRepository) Create(ctx context.Context, rm *structure.Room) error {
	images, err := json.Marshal(rm.Images)
	if err != nil {
		return fmt.Errorf("marshaling room images: %w", err)
	}

	_, err = r.pool.Exec(ctx, createRoomSQL,
		rm.ID, rm.StructureID, rm.Name, rm.Status, rm.Services, rm.CostPerNight,
		rm.MaxPeople, rm.CalendarID, rm.BookingCalendarID, images,
	)
	if err != nil {
		return fmt.Errorf("creating room %q: %w", rm.ID, err)
	}
	return nil
}

// GetByID returns a single room by its identifier.
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*structure.Room, error) {
	rows, err := r.pool.Query(ctx, getRoomByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting room %q: %w", id, err)
	}

	rm, err := pgx.CollectExactlyOneRow(rows, scanRoom)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, structure.ErrRoomNotFound
		}
		return nil, fmt.Errorf("getting room %q: %w", id, err)
	}
	return &rm, nil
}

// List returns all rooms ordered by name.
func (r *RoomRepository) List(ctx context.Context) ([]structure.Room, error) {
	rows, err := r.pool.Query(ctx, listRoomsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	return pgx.CollectRows(rows, scanRoom)
}

// ListByStructure returns the rooms belonging to one structure.
func (r *RoomRepository) ListByStructure(ctx context.Context, structureID string) ([]structure.Room, error) {
	rows, err := r.pool.Query(ctx, listRoomsByStructSQL, structureID)
	if err != nil {
		return nil, fmt.Errorf("listing rooms of structure %q: %w", structureID, err)
	}
	return pgx.CollectRows(rows, scanRoom)
}

// Update overwrites the stored room.
func (r *RoomRepository) Update(ctx context.Context, rm *structure.Room) error {
	images, err := json.Marshal(rm.Images)
	if err != nil {
		return fmt.Errorf("marshaling room images: %w", err)
	}

	tag, err := r.pool.Exec(ctx, updateRoomSQL,
		rm.ID, rm.StructureID, rm.Name, rm.Status, rm.Services, rm.CostPerNight,
		rm.MaxPeople, rm.CalendarID, rm.BookingCalendarID, images,
	)
	if err != nil {
		return fmt.Errorf("updating room %q: %w", rm.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return structure.ErrRoomNotFound
	}
	return nil
}

// Delete removes a room.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteRoomSQL, id)
	if err != nil {
		return fmt.Errorf("deleting room %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return structure.ErrRoomNotFound
	}
	return nil
}

func scanRoom(row pgx.CollectableRow) (structure.Room, error) {
	var (
		rm     structure.Room
		cost   decimal.Decimal
		images []byte
	)
	err := row.Scan(
		&rm.ID, &rm.StructureID, &rm.Name, &rm.Status, &rm.Services, &cost,
		&rm.MaxPeople, &rm.CalendarID, &rm.BookingCalendarID, &images,
	)
	if err != nil {
		return rm, err
	}
	rm.CostPerNight = cost
	if len(images) > 0 {
		err = json.Unmarshal(images, &rm.Images)
	}
	return rm, err
}
