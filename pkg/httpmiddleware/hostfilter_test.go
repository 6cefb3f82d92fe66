package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAllowedHosts(t *testing.T) {
	tests := []struct {
		name  string
		allow []string
		host  string
		want  int
	}{
		{name: "exact match", allow: []string{"booking.example.com"}, host: "booking.example.com", want: http.StatusOK},
		{name: "exact match with port", allow: []string{"booking.example.com"}, host: "booking.example.com:8000", want: http.StatusOK},
		{name: "case insensitive", allow: []string{"Booking.Example.com"}, host: "booking.example.com", want: http.StatusOK},
		{name: "rejected host", allow: []string{"booking.example.com"}, host: "evil.example.net", want: http.StatusBadRequest},
		{name: "subdomain wildcard", allow: []string{".example.com"}, host: "api.example.com", want: http.StatusOK},
		{name: "wildcard matches bare domain", allow: []string{".example.com"}, host: "example.com", want: http.StatusOK},
		{name: "wildcard rejects other domain", allow: []string{".example.com"}, host: "example.org", want: http.StatusBadRequest},
		{name: "star allows all", allow: []string{"*"}, host: "anything.test", want: http.StatusOK},
		{name: "empty list allows all", allow: nil, host: "anything.test", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AllowedHosts(tt.allow)(okHandler())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = tt.host
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCSRFTrustedOrigins(t *testing.T) {
	handler := CSRFTrustedOrigins([]string{"https://booking.example.com"})(okHandler())

	tests := []struct {
		name   string
		method string
		origin string
		want   int
	}{
		{name: "GET passes regardless of origin", method: http.MethodGet, origin: "https://evil.test", want: http.StatusOK},
		{name: "POST with trusted origin", method: http.MethodPost, origin: "https://booking.example.com", want: http.StatusOK},
		{name: "POST with untrusted origin", method: http.MethodPost, origin: "https://evil.test", want: http.StatusForbidden},
		{name: "POST without origin", method: http.MethodPost, origin: "", want: http.StatusOK},
		{name: "trailing slash normalized", method: http.MethodPost, origin: "https://booking.example.com/", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
