package tasks

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Enqueuer is the queue side used by the scheduler. Implemented by Broker.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind Kind, payload any) error
}

// Scheduler enqueues recurring jobs at fixed intervals. It only produces
// tasks; the worker pool executes them, so multiple API replicas can share a
// single scheduler.
type Scheduler struct {
	broker Enqueuer
	jobs   []scheduledJob
}

type scheduledJob struct {
	kind     Kind
	interval time.Duration
}

// NewScheduler creates an empty Scheduler.
func NewScheduler(broker Enqueuer) *Scheduler {
	return &Scheduler{broker: broker}
}

// Every enqueues the given task kind once per interval.
func (s *Scheduler) Every(interval time.Duration, kind Kind) {
	s.jobs = append(s.jobs, scheduledJob{kind: kind, interval: interval})
}

// Run ticks all registered jobs until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			ticker := time.NewTicker(job.interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := s.broker.Enqueue(ctx, job.kind, nil); err != nil {
						zctx.From(ctx).Error("Enqueue scheduled task failed",
							zap.String("kind", string(job.kind)),
							zap.Error(err),
						)
					}
				}
			}
		})
	}
	return g.Wait()
}
