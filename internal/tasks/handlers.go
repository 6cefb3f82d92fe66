package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gmapartments/booking-api/internal/domain/reservation"
	"github.com/gmapartments/booking-api/internal/domain/user"
	"github.com/gmapartments/booking-api/internal/notify"
)

// PaymentConfirmationPayload names the reservation to confirm.
type PaymentConfirmationPayload struct {
	ReservationID string `json:"reservation_id"`
}

// Handlers holds the task implementations and their dependencies.
type Handlers struct {
	reservations *reservation.Service
	users        user.Repository
	mailer       notify.Mailer
	sms          notify.SMSSender
	unpaidTTL    time.Duration
}

// NewHandlers creates the task handlers. unpaidTTL is how long an unpaid
// reservation may exist before the sweep deletes it.
func NewHandlers(
	reservations *reservation.Service,
	users user.Repository,
	mailer notify.Mailer,
	sms notify.SMSSender,
	unpaidTTL time.Duration,
) *Handlers {
	return &Handlers{
		reservations: reservations,
		users:        users,
		mailer:       mailer,
		sms:          sms,
		unpaidTTL:    unpaidTTL,
	}
}

// RegisterAll binds every handler to its task kind on the worker.
func (h *Handlers) RegisterAll(w *Worker) {
	w.Register(KindExpireReservations, h.ExpireReservations)
	w.Register(KindCheckinReminders, h.CheckinReminders)
	w.Register(KindPaymentConfirmation, h.PaymentConfirmation)
}

// ExpireReservations cancels unpaid reservations older than the TTL, freeing
// the dates they were holding.
func (h *Handlers) ExpireReservations(ctx context.Context, _ *Task) error {
	expired, err := h.reservations.ExpireStale(ctx, h.unpaidTTL)
	if err != nil {
		return errors.Wrap(err, "expire stale reservations")
	}
	if len(expired) > 0 {
		zctx.From(ctx).Info("Expired unpaid reservations", zap.Int("count", len(expired)))
	}
	return nil
}

// CheckinReminders sends an SMS to every guest whose stay begins today.
func (h *Handlers) CheckinReminders(ctx context.Context, _ *Task) error {
	arrivals, err := h.reservations.CheckingInToday(ctx)
	if err != nil {
		return errors.Wrap(err, "list today's arrivals")
	}

	for _, rv := range arrivals {
		phone, name, err := h.guestContact(ctx, &rv)
		if err != nil {
			zctx.From(ctx).Warn("Skipping reminder, no contact for reservation",
				zap.String("reservation_id", rv.ID),
				zap.Error(err),
			)
			continue
		}
		body := fmt.Sprintf(
			"Hi %s, your stay starts today. Please complete the online self check-in before arrival.",
			name,
		)
		if err := h.sms.SendSMS(ctx, phone, body); err != nil {
			zctx.From(ctx).Error("Check-in reminder failed",
				zap.String("reservation_id", rv.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// PaymentConfirmation emails the guest that the reservation is confirmed.
func (h *Handlers) PaymentConfirmation(ctx context.Context, t *Task) error {
	var payload PaymentConfirmationPayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		return errors.Wrap(err, "unmarshal payload")
	}

	rv, err := h.reservations.Get(ctx, payload.ReservationID)
	if err != nil {
		return errors.Wrapf(err, "load reservation %s", payload.ReservationID)
	}

	email := rv.Guest.Email
	name := rv.Guest.FirstName
	if email == "" {
		u, err := h.users.GetByID(ctx, rv.UserID)
		if err != nil {
			return errors.Wrap(err, "load account holder")
		}
		email, name = u.Email, u.FirstName
	}

	subject := "Your reservation is confirmed"
	body := fmt.Sprintf(
		"Hi %s,\n\nyour payment was received and your reservation from %s to %s is confirmed.\n\nSee you soon!",
		name,
		rv.CheckIn.Format("2006-01-02"),
		rv.CheckOut.Format("2006-01-02"),
	)
	return h.mailer.SendMail(ctx, email, subject, body)
}

func (h *Handlers) guestContact(ctx context.Context, rv *reservation.Reservation) (phone, name string, err error) {
	if rv.Guest.Phone != "" {
		return rv.Guest.Phone, rv.Guest.FirstName, nil
	}
	u, err := h.users.GetByID(ctx, rv.UserID)
	if err != nil {
		return "", "", err
	}
	if u.Telephone == "" {
		return "", "", errors.New("no telephone on file")
	}
	return u.Telephone, u.FirstName, nil
}
