package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// defaultSendTimeout bounds a whole SMTP conversation. Callers may invoke
// Notify while holding database locks, so a stalled server must not hang the
// request.
const defaultSendTimeout = 10 * time.Second

// Config holds SMTP notifier configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

// EmailNotifier delivers notifications over SMTP.
type EmailNotifier struct {
	cfg    Config
	logger zerolog.Logger
}

// NewEmailNotifier creates an SMTP-backed notifier.
func NewEmailNotifier(cfg Config, logger zerolog.Logger) *EmailNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}

	return &EmailNotifier{
		cfg:    cfg,
		logger: logger.With().Str("component", "email_notifier").Logger(),
	}
}

// Notify sends a plain-text email to the recipient. The dial and every
// subsequent protocol exchange share one deadline, the earlier of the
// configured timeout and the context deadline.
func (n *EmailNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + n.cfg.From,
		"To: " + recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	deadline := time.Now().Add(n.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	conn, err := (&net.Dialer{Deadline: deadline}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial smtp server %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set smtp deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return fmt.Errorf("smtp starttls failed: %w", err)
		}
	}

	if n.cfg.User != "" {
		auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("smtp mail command failed: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("smtp rcpt command failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data command failed: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish email body: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp quit failed: %w", err)
	}

	n.logger.Debug().
		Str("recipient", recipient).
		Str("subject", subject).
		Msg("notification delivered")

	return nil
}

// NoopNotifier discards notifications. Used when SMTP is not configured.
type NoopNotifier struct {
	logger zerolog.Logger
}

// NewNoopNotifier creates a notifier that logs and drops every message.
func NewNoopNotifier(logger zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger.With().Str("component", "noop_notifier").Logger()}
}

// Notify logs the notification and drops it.
func (n *NoopNotifier) Notify(_ context.Context, recipient, subject, _ string) error {
	n.logger.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Msg("notification dropped: SMTP not configured")
	return nil
}
