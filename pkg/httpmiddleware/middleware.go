// Package httpmiddleware provides the HTTP middleware chain used by the
// booking API and its reverse proxy: panic recovery, CORS, host filtering,
// CSRF origin checks, rate limiting, request IDs, and request logging.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h in reverse order, so the first middleware in
// the list is the outermost one.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
