package email

import (
	"strings"
	"testing"
)

type smtpConfig struct{ host string }

func (c smtpConfig) GetSMTPHost() string         { return c.host }
func (c smtpConfig) GetSMTPPort() int            { return 587 }
func (c smtpConfig) GetSMTPUsername() string     { return "" }
func (c smtpConfig) GetSMTPPassword() string     { return "" }
func (c smtpConfig) GetEmailFromName() string    { return "Field Survey" }
func (c smtpConfig) GetEmailFromAddress() string { return "noreply@survey.example" }
func (c smtpConfig) IsEmailEnabled() bool        { return c.host != "" }

func TestNewSenderFallsBackToNoop(t *testing.T) {
	if _, ok := NewSender(smtpConfig{}).(NoopSender); !ok {
		t.Fatal("expected NoopSender without SMTP host")
	}
	if _, ok := NewSender(smtpConfig{host: "smtp.example"}).(*SMTPSender); !ok {
		t.Fatal("expected SMTPSender with SMTP host")
	}
}

func TestRenderPasswordReset(t *testing.T) {
	html, err := render("password_reset.html", mailData{
		Title:    subjectPasswordReset,
		Heading:  "Reset your password",
		CTALabel: "Choose a new password",
		CTAURL:   "https://survey.example/reset-password?token=abc",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Reset your password", "token=abc", "ignore this mail"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected rendered mail to contain %q", want)
		}
	}
}

func TestMessage(t *testing.T) {
	s := NewSMTPSender(smtpConfig{host: "smtp.example"})
	data := mailData{Title: subjectWelcome, Heading: "Your account is ready"}
	if _, err := s.message("volunteer@example.org", "welcome.html", data); err != nil {
		t.Fatalf("build message: %v", err)
	}
	if _, err := s.message("not an address", "welcome.html", data); err == nil {
		t.Fatal("expected invalid recipient to fail")
	}
}

func TestPlainTextIncludesLink(t *testing.T) {
	text := mailData{Heading: "Reset your password", CTALabel: "Choose a new password", CTAURL: "https://x/r?token=abc"}.plainText()
	if !strings.Contains(text, "Choose a new password: https://x/r?token=abc") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestRenderUnknownPage(t *testing.T) {
	if _, err := render("invoice.html", mailData{}); err == nil {
		t.Fatal("expected unknown page to fail")
	}
	if _, err := render("base.html", mailData{}); err == nil {
		t.Fatal("expected the layout not to be addressable as a page")
	}
}
