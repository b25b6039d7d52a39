package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/apperrors"
)

// Mailer sends a single e-mail
type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, htmlContent, plainText string) error
}

type sendClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer sends e-mail through SendGrid
type SendGridMailer struct {
	client   sendClient
	fromName string
	fromAddr string
}

// NewSendGridMailer returns a mailer using apiKey
func NewSendGridMailer(apiKey, fromName, fromAddr string) *SendGridMailer {
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

// Send delivers one message. A 4xx or 5xx status from SendGrid is an error.
func (m *SendGridMailer) Send(_ context.Context, toName, toEmail, subject, htmlContent, plainText string) error {
	from := mail.NewEmail(m.fromName, m.fromAddr)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	response, err := m.client.Send(message)
	if err != nil {
		return apperrors.Network("sendgrid", err)
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", toEmail)
		return apperrors.Network("sendgrid", fmt.Errorf("status %d", response.StatusCode))
	}
	zap.S().Infow("email sent successfully", "to", toEmail, "subject", subject)
	return nil
}
