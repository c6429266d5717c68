// Package notification mails volunteers when auth events happen. It is the
// only consumer of the mail sender.
package notification

import (
	"context"
	"fmt"

	"fieldsurvey/internal/email"
	"fieldsurvey/internal/events"
	"fieldsurvey/platform/logger"
)

type Module struct {
	sender email.Sender
	log    *logger.Logger
}

func New(sender email.Sender, log *logger.Logger) *Module {
	return &Module{sender: sender, log: log}
}

func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NameUserSignedUp, m)
	bus.Subscribe(events.NamePasswordResetRequested, m)
}

// Handle sends the mail for one event. Delivery failures are logged and
// returned so the bus records them; nothing retries.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	var (
		kind string
		err  error
		log  = m.log.WithContext(ctx)
	)
	switch e := event.(type) {
	case events.UserSignedUp:
		kind, err = "welcome", m.sender.SendWelcomeEmail(ctx, e.Email)
		log = log.With("userId", e.UserID)
	case events.PasswordResetRequested:
		kind, err = "password reset", m.sender.SendPasswordResetEmail(ctx, e.Email, e.ResetURL)
		log = log.With("userId", e.UserID)
	default:
		return nil
	}
	if err != nil {
		log.Error("mail not sent", "mail", kind, "error", err)
		return fmt.Errorf("send %s mail: %w", kind, err)
	}
	log.Info("mail sent", "mail", kind)
	return nil
}

var _ events.Handler = (*Module)(nil)
