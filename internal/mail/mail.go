// Package mail delivers notification emails through a configurable provider.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers one message and returns the provider's message id when it
// reports one.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type Config struct {
	Provider       string
	From           string
	FromName       string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string
	MailgunDomain  string
	MailgunAPIKey  string
}

// NewSender picks the provider named by cfg.Provider.
func NewSender(cfg Config) (Sender, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("mail sender address is required")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "log":
		return &LogSender{From: cfg.From}, nil
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPPort == "" || cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
			return nil, errors.New("invalid SMTP configuration")
		}
		return &SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
			FromName: cfg.FromName,
		}, nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, errors.New("invalid SendGrid configuration")
		}
		return &SendGridSender{Key: cfg.SendGridAPIKey, From: cfg.From, FromName: cfg.FromName}, nil
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, errors.New("invalid Mailgun configuration")
		}
		return &MailgunSender{Domain: cfg.MailgunDomain, Key: cfg.MailgunAPIKey, From: cfg.From, FromName: cfg.FromName}, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

func formatAddress(name string, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%q <%s>", name, address)
}
