package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin request handling.
type CORSConfig struct {
	// AllowOrigins lists origins permitted to make cross-origin requests.
	// Empty, or a single "*", allows every origin.
	AllowOrigins []string

	// AllowMethods is sent on preflight responses. Empty means
	// "GET, POST, PUT, DELETE, OPTIONS".
	AllowMethods []string

	// AllowHeaders is sent on preflight responses. When empty the headers
	// named in Access-Control-Request-Headers are echoed back.
	AllowHeaders []string

	// ExposeHeaders lists response headers scripts may read.
	ExposeHeaders []string

	// AllowCredentials permits cookies and Authorization headers on
	// cross-origin requests. Incompatible with the wildcard origin, so
	// enabling it switches to echoing the matched origin.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header, negative sends "0".
	MaxAge int
}

type cors struct {
	cfg CORSConfig

	wildcard bool
	origins  map[string]string // lowercased origin -> configured spelling

	methods string
	headers string
	expose  string
	maxAge  string
}

// CORS returns a middleware implementing the CORS protocol: preflight
// OPTIONS requests are answered directly, simple requests get the
// appropriate Allow-Origin and Expose-Headers, and Vary is maintained so
// shared caches never serve one origin's response to another.
func CORS(cfg CORSConfig) Middleware {
	c := &cors{
		cfg:      cfg,
		wildcard: len(cfg.AllowOrigins) == 0,
		origins:  make(map[string]string, len(cfg.AllowOrigins)),
		methods:  strings.Join(cfg.AllowMethods, ", "),
		headers:  strings.Join(cfg.AllowHeaders, ", "),
		expose:   strings.Join(cfg.ExposeHeaders, ", "),
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			c.wildcard = true
			break
		}
		c.origins[strings.ToLower(o)] = o
	}
	if cfg.AllowCredentials {
		// The spec forbids "*" with credentials.
		c.wildcard = false
	}
	if c.methods == "" {
		c.methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	switch {
	case cfg.MaxAge > 0:
		c.maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		c.maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				if !c.wildcard {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				c.preflight(w, r, origin)
				return
			}

			c.actual(w, origin)
			next.ServeHTTP(w, r)
		})
	}
}

func (c *cors) allowValue(origin string) string {
	if c.wildcard {
		return "*"
	}
	return c.origins[strings.ToLower(origin)]
}

func (c *cors) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	allow := c.allowValue(origin)
	if allow == "" {
		// Disallowed origin: 204 with no CORS headers, the browser blocks it.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Allow-Methods", c.methods)
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	} else if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	}
	if c.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *cors) actual(w http.ResponseWriter, origin string) {
	h := w.Header()
	if !c.wildcard {
		h.Add("Vary", "Origin")
	}
	allow := c.allowValue(origin)
	if allow == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", allow)
	if c.cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.expose != "" {
		h.Set("Access-Control-Expose-Headers", c.expose)
	}
}
