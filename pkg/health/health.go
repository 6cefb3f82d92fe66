// Package health provides Kubernetes-style liveness and readiness probes.
//
// Checks run in background goroutines at a fixed interval and use
// consecutive failure/success thresholds to avoid flapping, mirroring
// Kubernetes probe semantics.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Kind distinguishes liveness checks (is the process functional) from
// readiness checks (can the service take traffic).
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// CheckFunc reports nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Thresholds control how many consecutive results flip a check's state.
type Thresholds struct {
	// Fail marks the check unhealthy after this many consecutive failures.
	Fail int
	// OK marks the check healthy again after this many consecutive successes.
	OK int
}

// DefaultThresholds match common Kubernetes probe defaults.
var DefaultThresholds = Thresholds{Fail: 3, OK: 1}

// check holds configuration and runtime state for one registered check.
//
// run() executes from a single goroutine, so the consecutive counters need
// no synchronization. healthy and lastErr are read by HTTP handlers from
// arbitrary goroutines and use atomics.
type check struct {
	name       string
	kind       Kind
	timeout    time.Duration
	fn         CheckFunc
	thresholds Thresholds

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.consecutiveOK = 0
		c.consecutiveFails++
		if c.consecutiveFails >= c.thresholds.Fail {
			c.healthy.Store(false)
		}
		return
	}
	c.consecutiveFails = 0
	c.consecutiveOK++
	if c.consecutiveOK >= c.thresholds.OK {
		c.healthy.Store(true)
	}
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Service manages liveness and readiness checks and serves the probe
// endpoints.
type Service struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*check
	cancel context.CancelFunc
}

// New creates a Service. It starts not-ready; call SetReady(true) after
// initialization completes.
func New() *Service {
	return &Service{}
}

// Add registers a check. Kind decides which endpoint it affects. Checks
// assume healthy until proven otherwise.
func (s *Service) Add(kind Kind, name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &check{
		name:       name,
		kind:       kind,
		timeout:    timeout,
		fn:         fn,
		thresholds: DefaultThresholds,
	}
	c.healthy.Store(true)
	s.checks = append(s.checks, c)
}

// Start launches one goroutine per registered check, each running at the
// given interval until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	checks := make([]*check, len(s.checks))
	copy(checks, s.checks)
	s.mu.Unlock()

	for _, c := range checks {
		go func(c *check) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}(c)
	}
}

// Stop cancels all background check goroutines. Safe to call repeatedly.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown to drain traffic.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check is passing.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	for _, c := range s.snapshot(Readiness) {
		if _, failed := c.failure(); failed {
			return false
		}
	}
	return true
}

func (s *Service) snapshot(kind Kind) []*check {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*check, 0, len(s.checks))
	for _, c := range s.checks {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness checks pass, 503
// otherwise with per-check failure details.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := make(map[string]string)
	for _, c := range s.snapshot(Liveness) {
		if msg, failed := c.failure(); failed {
			failures[c.name] = msg
		}
	}
	writeStatus(w, failures)
}

// ReadyEndpoint serves /readyz: 200 only when the service is marked ready
// and all readiness checks pass.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := make(map[string]string)
	for _, c := range s.snapshot(Readiness) {
		if msg, failed := c.failure(); failed {
			failures[c.name] = msg
		}
	}
	if !s.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
