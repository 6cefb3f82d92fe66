package httpmiddleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Incoming request IDs above this length are replaced rather than trusted.
const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDFromContext returns the request ID stored by RequestID, or ""
// when the middleware did not run.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID tags every request with an identifier. A usable X-Request-ID
// sent by the client is kept so IDs stay stable across proxies; anything
// missing, oversized, or containing non-printable bytes is replaced with a
// fresh UUID. The ID is echoed on the response header and stored in the
// request context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !usableRequestID(id) {
				id = uuid.New().String()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
