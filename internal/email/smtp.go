package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fieldsurvey/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

// SMTPSender delivers mail through one relay with go-mail. Each send dials
// its own connection; volume is a handful of account mails.
type SMTPSender struct {
	host     string
	fromName string
	fromAddr string
	opts     []gomail.Option
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	opts := []gomail.Option{
		gomail.WithPort(cfg.GetSMTPPort()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpTimeout),
	}
	if cfg.GetSMTPUsername() != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.GetSMTPUsername()),
			gomail.WithPassword(cfg.GetSMTPPassword()),
		)
	}
	return &SMTPSender{
		host:     cfg.GetSMTPHost(),
		fromName: cfg.GetEmailFromName(),
		fromAddr: cfg.GetEmailFromAddress(),
		opts:     opts,
	}
}

// message builds an HTML mail with a plain text alternative.
func (s *SMTPSender) message(to, page string, data mailData) (*gomail.Msg, error) {
	html, err := render(page, data)
	if err != nil {
		return nil, err
	}
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromAddr); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(data.Title)
	msg.SetBodyString(gomail.TypeTextPlain, data.plainText())
	msg.AddAlternativeString(gomail.TypeTextHTML, html)
	return msg, nil
}

func (s *SMTPSender) send(ctx context.Context, to, page string, data mailData) error {
	msg, err := s.message(to, page, data)
	if err != nil {
		return err
	}
	client, err := gomail.NewClient(s.host, s.opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", s.host, err)
	}
	return nil
}

func (s *SMTPSender) SendWelcomeEmail(ctx context.Context, toEmail string) error {
	return s.send(ctx, toEmail, "welcome.html", mailData{
		Title:      subjectWelcome,
		Heading:    "Your account is ready",
		Subheading: "Sign in from the Field Survey app to join a study and start recording observations.",
	})
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error {
	return s.send(ctx, toEmail, "password_reset.html", mailData{
		Title:    subjectPasswordReset,
		Heading:  "Reset your password",
		CTALabel: "Choose a new password",
		CTAURL:   resetURL,
	})
}

func (d mailData) plainText() string {
	var b strings.Builder
	b.WriteString(d.Heading + "\n\n")
	if d.Subheading != "" {
		b.WriteString(d.Subheading + "\n\n")
	}
	if d.CTAURL != "" {
		b.WriteString(d.CTALabel + ": " + d.CTAURL + "\n")
	}
	return b.String()
}

var _ Sender = (*SMTPSender)(nil)
