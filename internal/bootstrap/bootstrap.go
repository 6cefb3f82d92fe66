// Package bootstrap runs the ordered startup sequence executed before the
// API starts serving: wait for the database, migrate, publish static assets,
// and import reference data.
package bootstrap

import (
	"context"
	"net"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Step is one named unit of the startup sequence.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run executes steps in order, stopping at the first failure.
func Run(ctx context.Context, steps ...Step) error {
	for _, step := range steps {
		start := time.Now()
		if err := step.Run(ctx); err != nil {
			return errors.Wrapf(err, "bootstrap step %s", step.Name)
		}
		zctx.From(ctx).Info("Bootstrap step done",
			zap.String("step", step.Name),
			zap.Duration("took", time.Since(start)),
		)
	}
	return nil
}

// WaitTCP blocks until the address accepts TCP connections or the timeout
// elapses. Containers come up in arbitrary order, so the API must tolerate a
// database that is still starting.
func WaitTCP(ctx context.Context, addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	lg := zctx.From(ctx)

	var lastErr error
	for attempt := 1; time.Now().Before(deadline); attempt++ {
		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err

		lg.Info("Waiting for TCP endpoint",
			zap.String("addr", addr),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return errors.Wrapf(lastErr, "%s did not accept connections within %s", addr, timeout)
}
