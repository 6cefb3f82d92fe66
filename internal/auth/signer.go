package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds embedded in the claims. Refresh tokens are only accepted by
// the refresh endpoint; access tokens everywhere else.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// ErrInvalidToken is returned when a token fails signature or claims
// validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the validated contents of a booking API token.
type Claims struct {
	UserID string
	Kind   string
}

type tokenClaims struct {
	jwt.RegisteredClaims

	Kind string `json:"kind"`
}

// Signer issues and verifies HS256 JWT token pairs.
type Signer struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewSigner creates a Signer with the given signing key and token lifetimes.
func NewSigner(key string, issuer string, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{
		key:        []byte(key),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TokenPair holds a freshly issued access/refresh token pair.
type TokenPair struct {
	Access  string
	Refresh string
}

// Issue creates an access/refresh token pair for the user.
func (s *Signer) Issue(userID string) (TokenPair, error) {
	access, err := s.sign(userID, KindAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "sign access token")
	}
	refresh, err := s.sign(userID, KindRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "sign refresh token")
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Signer) sign(userID, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify parses and validates a token string. The expected kind must match:
// a refresh token presented as an access token is rejected.
func (s *Signer) Verify(tokenString, wantKind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(_ *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || claims.Kind != wantKind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: claims.Subject, Kind: claims.Kind}, nil
}
