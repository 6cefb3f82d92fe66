package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/gmapartments/booking-api/internal/domain/reservation"
	"github.com/gmapartments/booking-api/internal/tasks"
)

// signatureTolerance bounds how old a webhook timestamp may be, limiting
// replay of captured payloads.
const signatureTolerance = 5 * time.Minute

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// paymentWebhook handles payment provider callbacks. The payload is
// authenticated with an HMAC signature header before any processing.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "reading body failed")
		return
	}

	if err := verifySignature(r.Header.Get("Stripe-Signature"), body, h.cfg.WebhookSecret, time.Now()); err != nil {
		zctx.From(r.Context()).Warn("Webhook signature rejected", zap.Error(err))
		h.writeError(w, r, http.StatusBadRequest, "invalid signature")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed event")
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.handlePaymentSucceeded(w, r, event.Data.Object.ID)
	default:
		// Unhandled event types are acknowledged so the provider stops
		// retrying them.
		zctx.From(r.Context()).Debug("Ignoring webhook event", zap.String("type", event.Type))
		h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (h *Handler) handlePaymentSucceeded(w http.ResponseWriter, r *http.Request, paymentIntentID string) {
	rv, err := h.reservations.MarkPaid(r.Context(), paymentIntentID)
	if err != nil {
		if errors.Is(err, reservation.ErrNotFound) {
			// Acknowledge: the intent belongs to no known reservation and a
			// retry will not change that.
			zctx.From(r.Context()).Warn("Payment intent matches no reservation",
				zap.String("payment_intent_id", paymentIntentID),
			)
			h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "processing payment failed")
		return
	}

	if err := h.broker.Enqueue(r.Context(), tasks.KindPaymentConfirmation, tasks.PaymentConfirmationPayload{
		ReservationID: rv.ID,
	}); err != nil {
		// The reservation is already paid; losing the confirmation email is
		// not worth failing the webhook over.
		zctx.From(r.Context()).Error("Enqueue payment confirmation failed", zap.Error(err))
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "processed"})
}

// verifySignature checks a t=...,v1=... signature header: v1 is the
// hex-encoded HMAC-SHA256 of "<t>.<body>" under the shared secret.
func verifySignature(header string, body []byte, secret string, now time.Time) error {
	if header == "" {
		return errors.New("missing signature header")
	}

	var (
		ts   int64
		sigs [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return errors.Wrap(err, "parse timestamp")
			}
			ts = parsed
		case "v1":
			sig, err := hex.DecodeString(v)
			if err != nil {
				return errors.Wrap(err, "decode signature")
			}
			sigs = append(sigs, sig)
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return errors.New("incomplete signature header")
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return errors.New("timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, sig := range sigs {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return errors.New("no matching signature")
}
