package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/guardian/internal/alert"
)

var sentAt = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(MessageConfig{})
	require.NoError(t, err)
	return r
}

func TestRenderer_EmailTier1(t *testing.T) {
	r := newTestRenderer(t)
	sender := alert.Sender{UserID: "u1", Name: "Thandi", Email: "thandi@example.com"}

	e, err := r.Email(sender, "Ama", 1, alert.Context{Message: "Help me"}, sentAt)
	require.NoError(t, err)

	assert.Equal(t, "🚨 EMERGENCY ALERT: Thandi needs help", e.Subject)
	assert.Contains(t, e.HTML, "EMERGENCY SAFETY ALERT")
	assert.Contains(t, e.HTML, "Dear Ama")
	assert.Contains(t, e.HTML, "thandi@example.com")
	assert.Contains(t, e.HTML, "Help me")
	assert.Contains(t, e.HTML, "10111")
	assert.Contains(t, e.HTML, "0800 428 428")
	assert.NotContains(t, e.HTML, "escalation")
	assert.NotContains(t, e.HTML, "View on map")
	assert.Empty(t, e.Attachments)
}

func TestRenderer_EmailEscalatedWithMedia(t *testing.T) {
	r := newTestRenderer(t)
	c := alert.Context{
		Location: &alert.Location{Latitude: -33.9249, Longitude: 18.4241},
		Audio:    &alert.Media{Data: []byte("RIFF"), MimeType: "audio/wav"},
		Photo:    &alert.Media{Data: []byte{0xff, 0xd8}, MimeType: "image/jpeg"},
	}

	e, err := r.Email(alert.Sender{UserID: "u1"}, "", 3, c, sentAt)
	require.NoError(t, err)

	assert.Contains(t, e.Subject, "ESCALATED")
	assert.Contains(t, e.Subject, "A Guardian user")
	assert.Contains(t, e.HTML, "Tier 3 escalation")
	assert.Contains(t, e.HTML, "https://www.google.com/maps?q=-33.924900,18.424100")
	require.Len(t, e.Attachments, 2)
	assert.Equal(t, "emergency-audio.wav", e.Attachments[0].Filename)
	assert.Equal(t, "emergency-photo.jpg", e.Attachments[1].Filename)
}

func TestRenderer_EmailEscapesUserInput(t *testing.T) {
	r := newTestRenderer(t)

	e, err := r.Email(alert.Sender{Name: "<b>x</b>"}, "", 1, alert.Context{Message: "<script>alert(1)</script>"}, sentAt)
	require.NoError(t, err)
	assert.NotContains(t, e.HTML, "<script>")
	assert.Contains(t, e.HTML, "&lt;script&gt;")
}

func TestRenderer_ProvidedLinkUsedVerbatim(t *testing.T) {
	r := newTestRenderer(t)
	c := alert.Context{Location: &alert.Location{Link: "https://maps.example.com/p/abc"}}

	assert.Contains(t, r.SMS(alert.Sender{}, 1, c, sentAt, false), "https://maps.example.com/p/abc")
}

func TestRenderer_TimeZone(t *testing.T) {
	r := newTestRenderer(t)

	// Default zone is SAST (UTC+2).
	assert.Contains(t, r.SMS(alert.Sender{}, 1, alert.Context{}, sentAt, false), "20:30 SAST")

	// A valid sender zone wins; an unknown one falls back.
	assert.Contains(t, r.SMS(alert.Sender{TimeZone: "Europe/London"}, 1, alert.Context{}, sentAt, false), "18:30 GMT")
	assert.Contains(t, r.SMS(alert.Sender{TimeZone: "Nowhere/Special"}, 1, alert.Context{}, sentAt, false), "20:30 SAST")
}

func TestRenderer_SMS(t *testing.T) {
	r := newTestRenderer(t)
	c := alert.Context{
		Message: "Car won't start",
		Photo:   &alert.Media{Data: []byte{1}, MimeType: "image/jpeg"},
	}

	body := r.SMS(alert.Sender{Name: "Thandi"}, 2, c, sentAt, true)
	assert.Contains(t, body, "EMERGENCY ALERT: Thandi needs help.")
	assert.Contains(t, body, "Tier 2 escalation")
	assert.Contains(t, body, `"Car won't start"`)
	assert.Contains(t, body, "Audio/photo sent by email.")
	assert.Contains(t, body, "SA Police 10111")

	plain := r.SMS(alert.Sender{Name: "Thandi"}, 1, alert.Context{}, sentAt, true)
	assert.NotContains(t, plain, "Tier")
	assert.NotContains(t, plain, "sent by email")
}

func TestRenderer_CustomEmergencyNumbers(t *testing.T) {
	r, err := NewRenderer(MessageConfig{
		TimeZone:         "UTC",
		EmergencyNumbers: []EmergencyNumber{{Label: "Emergency", Number: "112"}},
	})
	require.NoError(t, err)

	assert.Contains(t, r.SMS(alert.Sender{}, 1, alert.Context{}, sentAt, false), "Emergency 112")
}
