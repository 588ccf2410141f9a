package gateway

import (
	"context"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"netasampark/models"
)

// SMTPEmail delivers email through the configured SMTP relay.
type SMTPEmail struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPEmail(dialer *gomail.Dialer, from string) *SMTPEmail {
	return &SMTPEmail{dialer: dialer, from: from}
}

func (s *SMTPEmail) Name() string { return "smtp_email" }

func (s *SMTPEmail) Send(ctx context.Context, req Request) Result {
	if s.dialer == nil {
		return failure("SMTP relay not configured")
	}

	subject := req.Subject
	if subject == "" {
		subject = "Message from Campaign"
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", req.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", req.Content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return failure(err.Error())
	}

	return Result{Success: true, MessageID: "email_" + uuid.NewString(), Status: models.StatusSent}
}
