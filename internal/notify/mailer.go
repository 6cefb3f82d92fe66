// Package notify sends guest-facing email and SMS messages.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Mailer sends a plain-text email message.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	host   string
	port   int
	user   string
	pass   string
	sender string
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates an SMTPMailer. sender is the From header shown to
// recipients; user authenticates against the relay.
func NewSMTPMailer(host string, port int, user, pass, sender string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, sender: sender}
}

// SendMail delivers a plain-text message to a single recipient.
func (m *SMTPMailer) SendMail(ctx context.Context, to, subject, body string) error {
	headers := "From: " + m.sender + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n"

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)

	if err := smtp.SendMail(addr, auth, m.user, []string{to}, []byte(headers+body)); err != nil {
		return errors.Wrapf(err, "send mail to %q", to)
	}

	zctx.From(ctx).Info("Email sent",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// LogMailer logs messages instead of delivering them. Used in development
// when no SMTP relay is configured.
type LogMailer struct{}

var _ Mailer = (*LogMailer)(nil)

// SendMail logs the message and reports success.
func (LogMailer) SendMail(ctx context.Context, to, subject, body string) error {
	zctx.From(ctx).Info("Email suppressed, no SMTP relay configured",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
