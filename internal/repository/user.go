package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gmapartments/booking-api/internal/domain/user"
)

const (
	createUserSQL = `INSERT INTO users (id, email, password_hash, first_name, last_name, telephone,
		status, user_type, has_accepted_terms, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	userColumns = `id, email, password_hash, first_name, last_name, telephone,
		status, user_type, has_accepted_terms, active, created_at`

	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	listUsersSQL      = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	updateUserSQL = `UPDATE users SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
		telephone = $6, status = $7, user_type = $8, has_accepted_terms = $9, active = $10
		WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create persists a new user. Duplicate emails and telephone numbers map to
// the corresponding domain errors.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, createUserSQL,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Telephone,
		u.Status, u.Type, u.HasAcceptedTerms, u.Active, u.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_email_key"):
			return user.ErrEmailTaken
		case isUniqueViolation(err, "users_telephone_key"):
			return user.ErrTelephoneTaken
		}
		return fmt.Errorf("creating user %q: %w", u.ID, err)
	}
	return nil
}

// GetByID returns a single user by its identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return &u, nil
}

// GetByEmail returns a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &u, nil
}

// List returns all users ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]user.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// Update overwrites the stored user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	tag, err := r.pool.Exec(ctx, updateUserSQL,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Telephone,
		u.Status, u.Type, u.HasAcceptedTerms, u.Active,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_email_key"):
			return user.ErrEmailTaken
		case isUniqueViolation(err, "users_telephone_key"):
			return user.ErrTelephoneTaken
		}
		return fmt.Errorf("updating user %q: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Telephone,
		&u.Status, &u.Type, &u.HasAcceptedTerms, &u.Active, &u.CreatedAt,
	)
	return u, err
}
