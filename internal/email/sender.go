// Package email renders and delivers transactional mail.
package email

import (
	"context"

	"fieldsurvey/platform/config"
)

const (
	subjectWelcome       = "Welcome to Field Survey"
	subjectPasswordReset = "Reset your Field Survey password"
)

// Sender delivers the transactional mails the survey backend sends.
type Sender interface {
	SendWelcomeEmail(ctx context.Context, toEmail string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error
}

// NoopSender drops every mail. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendWelcomeEmail(context.Context, string) error               { return nil }
func (NoopSender) SendPasswordResetEmail(context.Context, string, string) error { return nil }

// NewSender returns an SMTP sender when SMTP_HOST is set and a NoopSender
// otherwise.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg)
}
