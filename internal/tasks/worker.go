package tasks

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler executes one task.
type Handler func(ctx context.Context, t *Task) error

// Dequeuer is the queue side consumed by the worker. Implemented by Broker.
type Dequeuer interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
}

// Worker consumes the broker queue with a fixed number of goroutines and
// dispatches tasks to registered handlers.
type Worker struct {
	broker      Dequeuer
	handlers    map[Kind]Handler
	concurrency int
	pollTimeout time.Duration
}

// NewWorker creates a Worker with the given concurrency.
func NewWorker(broker Dequeuer, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		broker:      broker,
		handlers:    make(map[Kind]Handler),
		concurrency: concurrency,
		pollTimeout: 5 * time.Second,
	}
}

// Register binds a handler to a task kind. Later registrations of the same
// kind replace earlier ones.
func (w *Worker) Register(kind Kind, h Handler) {
	w.handlers[kind] = h
}

// Run consumes tasks until ctx is cancelled. Handler errors are logged, not
// fatal: one bad task must not stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.consume(ctx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (w *Worker) consume(ctx context.Context) error {
	lg := zctx.From(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		t, err := w.broker.Dequeue(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lg.Error("Dequeue failed", zap.Error(err))
			// Back off before retrying so a broken broker does not spin.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if t == nil {
			continue
		}

		w.dispatch(ctx, t)
	}
}

func (w *Worker) dispatch(ctx context.Context, t *Task) {
	lg := zctx.From(ctx).With(
		zap.String("task_id", t.ID),
		zap.String("kind", string(t.Kind)),
	)

	h, ok := w.handlers[t.Kind]
	if !ok {
		lg.Warn("No handler registered for task kind")
		return
	}

	start := time.Now()
	if err := h(zctx.Base(ctx, lg), t); err != nil {
		lg.Error("Task failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return
	}
	lg.Info("Task done", zap.Duration("took", time.Since(start)))
}
