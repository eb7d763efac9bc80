package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridSendPath = "/v3/mail/send"

// SendGrid sends email through the SendGrid v3 API.
type SendGrid struct {
	client   *sendgrid.Client
	fromAddr string
	fromName string
}

// NewSendGrid creates a SendGrid sender against the public API.
func NewSendGrid(apiKey, fromAddr, fromName string) *SendGrid {
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		fromAddr: fromAddr,
		fromName: fromName,
	}
}

// NewSendGridWithHost creates a SendGrid sender against another API host,
// e.g. a regional endpoint or a test server.
func NewSendGridWithHost(apiKey, host, fromAddr, fromName string) *SendGrid {
	s := NewSendGrid(apiKey, fromAddr, fromName)
	s.client.BaseURL = host + sendGridSendPath
	return s
}

// SendEmail implements EmailSender.
func (s *SendGrid) SendEmail(ctx context.Context, e Email) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail(e.ToName, e.To)

	text := e.Text
	if text == "" {
		text = e.Subject
	}
	message := mail.NewSingleEmail(from, e.Subject, to, text, e.HTML)

	for _, a := range e.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetType(a.MimeType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		message.AddAttachment(att)
	}

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// Name returns "sendgrid"
func (s *SendGrid) Name() string {
	return "sendgrid"
}
