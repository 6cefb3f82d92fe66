package notify

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// SMSSender sends a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// TwilioSender sends SMS through the Twilio Messages API. Requests run
// behind a circuit breaker so a provider outage does not stall the task
// workers on every message.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
}

var _ SMSSender = (*TwilioSender)(nil)

// NewTwilioSender creates a TwilioSender. The breaker trips after 3
// consecutive failures and resets after 30 seconds in the open state.
func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com",
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "twilio",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// SendSMS posts one message to the Twilio API.
func (s *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.post(ctx, to, body)
	})
	if err != nil {
		return errors.Wrapf(err, "send sms to %q", to)
	}

	zctx.From(ctx).Info("SMS sent", zap.String("to", to))
	return nil
}

func (s *TwilioSender) post(ctx context.Context, to, body string) error {
	form := url.Values{
		"To":   {to},
		"From": {s.from},
		"Body": {body},
	}
	endpoint := s.baseURL + "/2010-04-01/Accounts/" + s.accountSID + "/Messages.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("twilio responded %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// LogSender logs messages instead of delivering them. Used in development
// when no SMS provider is configured.
type LogSender struct{}

var _ SMSSender = (*LogSender)(nil)

// SendSMS logs the message and reports success.
func (LogSender) SendSMS(ctx context.Context, to, body string) error {
	zctx.From(ctx).Info("SMS suppressed, no provider configured",
		zap.String("to", to),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
