package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeMessages struct {
	params []*twilioApi.CreateMessageParams
	err    error
}

func (f *fakeMessages) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	return &twilioApi.ApiV2010Message{}, nil
}

func TestTwilio_SendSMS(t *testing.T) {
	fake := &fakeMessages{}
	tw := &Twilio{api: fake, from: "+15550001111"}

	err := tw.SendSMS(context.Background(), SMS{To: "+27820000001", Body: "EMERGENCY"})
	require.NoError(t, err)

	require.Len(t, fake.params, 1)
	assert.Equal(t, "+27820000001", *fake.params[0].To)
	assert.Equal(t, "+15550001111", *fake.params[0].From)
	assert.Equal(t, "EMERGENCY", *fake.params[0].Body)
}

func TestTwilio_SendSMSFromOverride(t *testing.T) {
	fake := &fakeMessages{}
	tw := &Twilio{api: fake, from: "+15550001111"}

	require.NoError(t, tw.SendSMS(context.Background(), SMS{To: "+1", From: "+2", Body: "b"}))
	assert.Equal(t, "+2", *fake.params[0].From)
}

func TestTwilio_SendSMSError(t *testing.T) {
	tw := &Twilio{api: &fakeMessages{err: errors.New("21211 invalid To")}, from: "+1"}

	err := tw.SendSMS(context.Background(), SMS{To: "nope", Body: "b"})
	assert.ErrorContains(t, err, "21211")
}

func TestTwilio_SendSMSCancelled(t *testing.T) {
	fake := &fakeMessages{}
	tw := &Twilio{api: fake, from: "+1"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tw.SendSMS(ctx, SMS{To: "+2", Body: "b"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.params)
}
