package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio REST API this package uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Twilio sends SMS through the Twilio Messages API.
type Twilio struct {
	api  messageCreator
	from string
}

// NewTwilio creates a Twilio sender authenticated with an account SID and
// auth token.
func NewTwilio(accountSID, authToken, from string) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{api: client.Api, from: from}
}

// SendSMS implements SMSSender. The Twilio client is not context aware, so
// cancellation is only honoured before the request starts.
func (t *Twilio) SendSMS(ctx context.Context, m SMS) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.From
	if from == "" {
		from = t.from
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(m.To)
	params.SetFrom(from)
	params.SetBody(m.Body)

	if _, err := t.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}

// Name returns "twilio"
func (t *Twilio) Name() string {
	return "twilio"
}
