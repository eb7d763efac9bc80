// Package notify delivers rendered alerts over the email and SMS channels.
package notify

import "context"

// Attachment is a file carried by an email.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Email is one rendered email to a single recipient.
type Email struct {
	To          string
	ToName      string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// SMS is one text message to a single phone number. From overrides the
// sender's configured number when set.
type SMS struct {
	To   string
	From string
	Body string
}

// EmailSender delivers email.
type EmailSender interface {
	// SendEmail delivers one email. A nil error means the provider accepted
	// the message; delivery beyond that is not tracked.
	SendEmail(ctx context.Context, e Email) error

	// Name returns the provider name for logging
	Name() string
}

// SMSSender delivers text messages.
type SMSSender interface {
	SendSMS(ctx context.Context, m SMS) error
	Name() string
}
