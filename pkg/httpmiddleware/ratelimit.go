package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	// Max requests allowed per Window.
	Max int
	// Window length of the sliding window.
	Window time.Duration
	// KeyFunc derives the limiter key from a request. Nil means client IP.
	KeyFunc func(*http.Request) string
}

// bucket holds the request counts of the current window and the one before
// it. The previous count is weighted by its remaining overlap with the
// sliding window, which smooths bursts at window boundaries.
type bucket struct {
	prev      float64
	curr      float64
	currStart time.Time
	prevStart time.Time
}

type limiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &limiter{cfg: cfg, buckets: make(map[string]*bucket)}
}

// take records a request for key and reports whether it fits the limit,
// along with the remaining allowance and when the window resets.
func (l *limiter) take(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil {
		b = &bucket{currStart: now}
		l.buckets[key] = b
	}

	if now.Sub(b.currStart) >= l.cfg.Window {
		b.prev, b.prevStart = b.curr, b.currStart
		b.curr = 0
		b.currStart = now.Truncate(l.cfg.Window)
		if now.Sub(b.prevStart) >= 2*l.cfg.Window {
			b.prev = 0
		}
	}

	weight := 1 - now.Sub(b.currStart).Seconds()/l.cfg.Window.Seconds()
	if weight < 0 {
		weight = 0
	}
	used := b.prev*weight + b.curr
	resetAt = b.currStart.Add(l.cfg.Window)

	if used >= float64(l.cfg.Max) {
		return 0, resetAt, false
	}

	b.curr++
	remaining = int(float64(l.cfg.Max) - used - 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

// evictStale drops buckets that have been idle for two full windows.
func (l *limiter) evictStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.currStart) >= 2*l.cfg.Window {
			delete(l.buckets, key)
		}
	}
}

// RateLimit enforces a sliding-window limit per client. Every response
// carries X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset;
// rejected requests get 429 with Retry-After and a JSON body.
//
// This variant never frees idle buckets. Long-running servers should use
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit plus a background goroutine that evicts
// idle client buckets until ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * l.cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evictStale(now)
			}
		}
	}()
	return l.middleware()
}

func (l *limiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := l.take(l.cfg.KeyFunc(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retryAfter := time.Until(resetAt)
				if retryAfter < 0 {
					retryAfter = 0
				}
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop set by the proxy, then
// X-Real-IP, then the connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
