package mail

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

type MailgunSender struct {
	Domain   string
	Key      string
	From     string
	FromName string
}

func (s *MailgunSender) Send(ctx context.Context, msg Message) (string, error) {
	mg := mailgun.NewMailgun(s.Domain, s.Key)

	message := mg.NewMessage(formatAddress(s.FromName, s.From), msg.Subject, "")
	message.SetHtml(msg.HTML)
	if err := message.AddRecipient(formatAddress(msg.ToName, msg.To)); err != nil {
		return "", fmt.Errorf("mailgun recipient: %w", err)
	}

	_, id, err := mg.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return id, nil
}
