package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridSender struct {
	Key      string
	From     string
	FromName string
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	from := sgmail.NewEmail(s.FromName, s.From)
	to := sgmail.NewEmail(msg.ToName, msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)

	client := sendgrid.NewSendClient(s.Key)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}

	if response.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("sendgrid send: unexpected status %d", response.StatusCode)
	}

	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
