package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Terminal prints messages instead of sending them. It stands in for real
// providers during local development.
type Terminal struct {
	mu  sync.Mutex // Serializes concurrent writes
	out io.Writer
}

// NewTerminal creates a terminal sender writing to stderr
func NewTerminal() *Terminal {
	return NewTerminalWithWriter(os.Stderr)
}

// NewTerminalWithWriter creates a terminal sender writing to w
func NewTerminalWithWriter(w io.Writer) *Terminal {
	return &Terminal{out: w}
}

// SendEmail implements EmailSender.
func (t *Terminal) SendEmail(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n📧 [email] %s\n", e.Subject)
	fmt.Fprintf(t.out, "   To: %s\n", e.To)
	if e.Text != "" {
		fmt.Fprintf(t.out, "   %s\n", e.Text)
	}
	for _, a := range e.Attachments {
		fmt.Fprintf(t.out, "   Attachment: %s (%s, %d bytes)\n", a.Filename, a.MimeType, len(a.Data))
	}
	return nil
}

// SendSMS implements SMSSender.
func (t *Terminal) SendSMS(ctx context.Context, m SMS) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n📱 [sms] To: %s\n", m.To)
	fmt.Fprintf(t.out, "   %s\n", m.Body)
	return nil
}

// Name returns "terminal"
func (t *Terminal) Name() string {
	return "terminal"
}
