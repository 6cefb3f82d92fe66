// Package tasks implements the background job queue: a Redis list broker,
// a worker pool consuming it, and a scheduler enqueueing periodic jobs.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Kind identifies the handler a task is dispatched to.
type Kind string

const (
	// KindExpireReservations sweeps unpaid reservations past their TTL.
	KindExpireReservations Kind = "reservations.expire"
	// KindCheckinReminders notifies guests checking in today.
	KindCheckinReminders Kind = "reservations.checkin_reminders"
	// KindPaymentConfirmation emails the guest after a successful payment.
	KindPaymentConfirmation Kind = "reservations.payment_confirmation"
)

// Task is the envelope stored on the queue.
type Task struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Broker pushes and pops task envelopes on a Redis list.
type Broker struct {
	client redis.UniversalClient
	queue  string
}

// NewBroker creates a Broker using the given list key as the queue.
func NewBroker(client redis.UniversalClient, queue string) *Broker {
	return &Broker{client: client, queue: queue}
}

// Enqueue pushes a task with the given payload. A nil payload is allowed for
// kinds that carry no arguments.
func (b *Broker) Enqueue(ctx context.Context, kind Kind, payload any) error {
	t := Task{
		ID:         uuid.New().String(),
		Kind:       kind,
		EnqueuedAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "marshal payload")
		}
		t.Payload = raw
	}

	data, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "marshal task")
	}
	if err := b.client.LPush(ctx, b.queue, data).Err(); err != nil {
		return errors.Wrapf(err, "enqueue %s", kind)
	}
	return nil
}

// Dequeue blocks up to timeout waiting for a task. Returns (nil, nil) when
// the timeout elapses without work.
func (b *Broker) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	res, err := b.client.BRPop(ctx, timeout, b.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "dequeue")
	}
	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, errors.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}

	var t Task
	if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
		return nil, errors.Wrap(err, "unmarshal task")
	}
	return &t, nil
}
