package user

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockUserRepo struct {
	byID      map[string]*User
	byEmail   map[string]*User
	createErr error
	updated   *User
}

func newMockUserRepo(users ...*User) *mockUserRepo {
	m := &mockUserRepo{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
	}
	for _, u := range users {
		m.byID[u.ID] = u
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) List(_ context.Context) ([]User, error) { return nil, nil }

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	m.byID[u.ID] = u
	m.updated = u
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "h:" + plain, nil }

func (plainHasher) Verify(plain, hashed string) (bool, error) {
	return "h:"+plain == hashed, nil
}

// --- Tests ---

func TestRegister_NewCustomer(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, plainHasher{})

	u, err := svc.Register(context.Background(), RegisterRequest{
		Email:            "guest@example.com",
		Password:         "s3cret",
		HasAcceptedTerms: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, StatusPendingExtraData, u.Status)
	assert.Equal(t, TypeCustomer, u.Type)
	assert.True(t, u.Active)
	assert.Equal(t, "h:s3cret", u.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = ErrEmailTaken
	svc := NewService(repo, plainHasher{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "guest@example.com",
		Password: "s3cret",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	active := &User{ID: "u1", Email: "guest@example.com", PasswordHash: "h:s3cret", Active: true}
	inactive := &User{ID: "u2", Email: "gone@example.com", PasswordHash: "h:s3cret", Active: false}
	svc := NewService(newMockUserRepo(active, inactive), plainHasher{})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid credentials", email: "guest@example.com", password: "s3cret"},
		{name: "wrong password", email: "guest@example.com", password: "nope", wantErr: ErrNotFound},
		{name: "unknown email", email: "who@example.com", password: "s3cret", wantErr: ErrNotFound},
		{name: "deactivated account", email: "gone@example.com", password: "s3cret", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, u.Email)
		})
	}
}

func TestCompleteProfile(t *testing.T) {
	pending := &User{ID: "u1", Email: "guest@example.com", Status: StatusPendingExtraData, Active: true}
	repo := newMockUserRepo(pending)
	svc := NewService(repo, plainHasher{})

	u, err := svc.CompleteProfile(context.Background(), "u1", CompleteProfileRequest{
		FirstName: "Mario",
		LastName:  "Rossi",
		Telephone: "+390000000001",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, u.Status)
	assert.Equal(t, "Mario", u.FirstName)
	assert.Equal(t, "+390000000001", u.Telephone)
	require.NotNil(t, repo.updated)
	assert.Equal(t, StatusComplete, repo.updated.Status)
}

func TestCompleteProfile_AlreadyComplete(t *testing.T) {
	complete := &User{ID: "u1", Status: StatusComplete, Active: true}
	svc := NewService(newMockUserRepo(complete), plainHasher{})

	_, err := svc.CompleteProfile(context.Background(), "u1", CompleteProfileRequest{
		FirstName: "Mario", LastName: "Rossi", Telephone: "+39000",
	})
	assert.ErrorIs(t, err, ErrProfileAlreadyComplete)
}

func TestDeactivate_LogicalDelete(t *testing.T) {
	u := &User{ID: "u1", Email: "guest@example.com", Active: true}
	repo := newMockUserRepo(u)
	svc := NewService(repo, plainHasher{})

	require.NoError(t, svc.Deactivate(context.Background(), "u1"))
	require.NotNil(t, repo.updated)
	assert.False(t, repo.updated.Active)

	// The row is still there, it just cannot authenticate anymore.
	got, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestDeactivate_UnknownUser(t *testing.T) {
	svc := NewService(newMockUserRepo(), plainHasher{})
	err := svc.Deactivate(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
