package httpmiddleware

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Recovery converts handler panics into 500 responses. The panic value and
// stack are logged; the client gets the API's usual JSON error shape.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				zctx.From(r.Context()).Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				w.Header().Set("Connection", "close")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusInternalServerError,
					"message": "internal server error",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
