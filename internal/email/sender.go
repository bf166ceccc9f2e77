// Package email delivers outreach and operator emails over SMTP or the Brevo API.
package email

import (
	"context"
	"fmt"
	"strings"

	"prospector_backend/platform/config"
)

// Message is a single outbound email. HTML is optional; Text is always sent.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	ReplyTo string
}

// Sender delivers email. Ping verifies credentials without sending anything.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Ping(ctx context.Context) error
	Provider() string
}

// SenderConfig is the configuration needed to pick and build a Sender.
type SenderConfig interface {
	config.EmailConfig
	config.SMTPConfig
}

// NewSender builds the configured provider. It returns nil when email is disabled.
func NewSender(cfg SenderConfig) (Sender, error) {
	switch strings.ToLower(cfg.GetEmailProvider()) {
	case "", "none":
		return nil, nil
	case "smtp":
		if cfg.GetSMTPHost() == "" {
			return nil, fmt.Errorf("SMTP_HOST is required for the smtp email provider")
		}
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	case "brevo":
		if cfg.GetBrevoAPIKey() == "" {
			return nil, fmt.Errorf("BREVO_API_KEY is required for the brevo email provider")
		}
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}
}
