package user

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrProfileAlreadyComplete is returned when a user re-submits profile data
// after their account has already reached StatusComplete.
var ErrProfileAlreadyComplete = errors.New("profile already complete")

// Hasher hashes and verifies account passwords.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) (bool, error)
}

// RegisterRequest holds the input for account registration.
type RegisterRequest struct {
	Email            string
	Password         string
	HasAcceptedTerms bool
}

// CompleteProfileRequest holds the extra data required to finish registration.
type CompleteProfileRequest struct {
	FirstName string
	LastName  string
	Telephone string
}

// Service encapsulates account lifecycle logic: registration, profile
// completion, and logical deactivation.
type Service struct {
	users  Repository
	hasher Hasher
}

// NewService creates a user Service.
func NewService(users Repository, hasher Hasher) *Service {
	return &Service{users: users, hasher: hasher}
}

// normalizeEmail is applied to every stored and looked-up address so email
// uniqueness and login are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new customer account in the pending-extra-data state.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:               uuid.New().String(),
		Email:            normalizeEmail(req.Email),
		PasswordHash:     hash,
		Status:           StatusPendingExtraData,
		Type:             TypeCustomer,
		HasAcceptedTerms: req.HasAcceptedTerms,
		Active:           true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies the email/password pair and returns the matching
// user. It returns ErrNotFound for unknown emails and wrong passwords alike,
// so callers cannot distinguish the two cases.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, ErrNotFound
	}
	if !u.Active {
		return nil, ErrNotFound
	}
	ok, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil || !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

// CompleteProfile records the remaining registration data and transitions the
// account from StatusPendingExtraData to StatusComplete.
func (s *Service) CompleteProfile(ctx context.Context, userID string, req CompleteProfileRequest) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Status == StatusComplete {
		return nil, ErrProfileAlreadyComplete
	}

	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Telephone = req.Telephone
	u.Status = StatusComplete
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Deactivate performs a logical delete: the row stays, the account can no
// longer authenticate.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	u.Active = false
	return s.users.Update(ctx, u)
}
