package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering with an email that is already in use.
var ErrEmailTaken = errors.New("email already registered")

// ErrTelephoneTaken is returned when a telephone number is already in use.
var ErrTelephoneTaken = errors.New("telephone already registered")

// Status tracks how far a user has progressed through profile completion.
// New accounts start in StatusPendingExtraData and move to StatusComplete
// once name and telephone have been provided.
type Status string

const (
	StatusPendingExtraData Status = "PENDING_EXTRA_DATA"
	StatusComplete         Status = "COMPLETE"
)

// Type distinguishes regular customers from administrative accounts.
type Type string

const (
	TypeCustomer Type = "CUSTOMER"
	TypeAdmin    Type = "ADMIN"
)

// User is an account on the booking platform.
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	FirstName        string
	LastName         string
	Telephone        string
	Status           Status
	Type             Type
	HasAcceptedTerms bool
	Active           bool
	CreatedAt        time.Time
}

// IsAdmin reports whether the user holds the administrative account type.
func (u *User) IsAdmin() bool {
	return u.Type == TypeAdmin
}

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u *User) error
}
