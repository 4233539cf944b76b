package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/obs"
)

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends HTML mail over a plain-auth SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (m *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	msg := "From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"utf-8\"\r\n" +
		"\r\n" + htmlBody

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	obs.LogRequest(map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339),
		"level":   "info",
		"msg":     "email dispatched",
		"to":      to,
		"subject": subject,
	})
	return nil
}

// LogSender is the no-relay fallback for local development. It records that
// a message would have gone out without ever logging the body, so plaintext
// keys stay out of the logs too.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	obs.LogRequest(map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339),
		"level":   "info",
		"msg":     "email suppressed (no relay configured)",
		"to":      to,
		"subject": subject,
	})
	return nil
}
