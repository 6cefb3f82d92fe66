package httpmiddleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// AllowedHosts returns a middleware that rejects requests whose Host header
// is not in the allowlist. An empty list or a single "*" entry allows every
// host. Entries of the form ".example.com" match the domain and all of its
// subdomains.
func AllowedHosts(hosts []string) Middleware {
	allowAll := len(hosts) == 0
	exact := make(map[string]struct{}, len(hosts))
	var suffixes []string
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "*":
			allowAll = true
		case strings.HasPrefix(h, "."):
			suffixes = append(suffixes, h)
		case h != "":
			exact[h] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowAll || hostAllowed(r.Host, exact, suffixes) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    http.StatusBadRequest,
				"message": "invalid Host header",
			})
		})
	}
}

func hostAllowed(hostport string, exact map[string]struct{}, suffixes []string) bool {
	host := strings.ToLower(hostport)
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = strings.ToLower(h)
	}

	if _, ok := exact[host]; ok {
		return true
	}
	for _, s := range suffixes {
		if host == s[1:] || strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}
