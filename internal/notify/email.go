package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/voc-service/internal/config"
)

// ErrEmailDisabled is returned when no SMTP host is configured.
var ErrEmailDisabled = errors.New("email delivery disabled")

// Email is a single outbound message with a markdown body.
type Email struct {
	To       string
	Subject  string
	Markdown string
}

// Mailer delivers Email over SMTP.
type Mailer struct {
	cfg      config.NotificationConfig
	dialer   *gomail.Dialer
	renderer *MarkdownRenderer
}

// NewMailer constructs the mailer. It is disabled when the SMTP host is empty.
func NewMailer(cfg config.NotificationConfig, renderer *MarkdownRenderer) *Mailer {
	var dialer *gomail.Dialer
	if cfg.SMTPHost != "" {
		dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return &Mailer{cfg: cfg, dialer: dialer, renderer: renderer}
}

// Enabled reports whether SMTP is configured.
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

// Send renders and delivers email, bounded by ctx and the configured timeout.
func (m *Mailer) Send(ctx context.Context, email Email) error {
	if !m.Enabled() {
		return ErrEmailDisabled
	}
	msg, err := m.buildMessage(email)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	wait := m.cfg.Timeout()
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 && d < wait {
			wait = d
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", email.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

func (m *Mailer) buildMessage(email Email) (*gomail.Message, error) {
	to := strings.TrimSpace(email.To)
	if to == "" {
		return nil, errors.New("email recipient is required")
	}
	htmlBody, err := m.renderer.ToHTML(email.Markdown)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.EmailFrom, m.cfg.EmailFromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Markdown)
	msg.AddAlternative("text/html", htmlBody)
	return msg, nil
}
