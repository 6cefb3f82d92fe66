package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gmapartments/booking-api/internal/domain/user"
	"github.com/gmapartments/booking-api/pkg/httpmiddleware"
)

type userKey struct{}

// UserFromContext extracts the authenticated user set by RequireAuth.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userKey{}).(*user.User)
	return u, ok
}

// Middleware authenticates requests and enforces account-state rules.
type Middleware struct {
	signer *Signer
	users  user.Repository
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(signer *Signer, users user.Repository) *Middleware {
	return &Middleware{signer: signer, users: users}
}

// RequireAuth validates the bearer token, loads the account, and rejects
// inactive accounts. The user is stored in the request context.
func (m *Middleware) RequireAuth() httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := m.signer.Verify(token, KindAccess)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			u, err := m.users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !u.Active {
				writeAuthError(w, http.StatusForbidden, "account is not active")
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireComplete rejects accounts that have not finished the profile
// completion step. Must run after RequireAuth.
func (m *Middleware) RequireComplete() httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if u.Status != user.StatusComplete {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":       http.StatusForbidden,
					"message":    "profile completion required",
					"userStatus": u.Status,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects non-admin accounts. Must run after RequireAuth.
func (m *Middleware) RequireAdmin() httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if !u.IsAdmin() {
				writeAuthError(w, http.StatusForbidden, "admin account required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return h[len(prefix):], true
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    status,
		"message": msg,
	})
}
