package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation_DefaultsPass(t *testing.T) {
	assert.NoError(t, validateConfig(DefaultConfig()))
}

func TestValidation_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad tier delay", func(c *Config) { c.Escalation.TierDelay = "soon" }, "escalation.tier_delay"},
		{"zero tier delay", func(c *Config) { c.Escalation.TierDelay = "0s" }, "escalation.tier_delay"},
		{"max tier too high", func(c *Config) { c.Escalation.MaxTier = 4 }, "escalation.max_tier"},
		{"max tier zero", func(c *Config) { c.Escalation.MaxTier = 0 }, "escalation.max_tier"},
		{"empty buffer", func(c *Config) { c.Capture.BufferSeconds = 0 }, "capture.buffer_seconds"},
		{"negative concurrency", func(c *Config) { c.Dispatch.MaxConcurrentSends = -1 }, "dispatch.max_concurrent_sends"},
		{"negative rate", func(c *Config) { c.Dispatch.SMSPerMinute = -5 }, "dispatch.rate"},
		{"half emergency number", func(c *Config) {
			c.Dispatch.EmergencyNumbers = []EmergencyNumber{{Label: "Police"}}
		}, "dispatch.emergency_numbers[0]"},
		{"unknown email provider", func(c *Config) { c.Email.Provider = "smtp" }, "email.provider"},
		{"sendgrid without key", func(c *Config) {
			c.Email.Provider = "sendgrid"
			c.Email.FromAddress = "alerts@example.com"
		}, "email.api_key"},
		{"unknown sms provider", func(c *Config) { c.SMS.Provider = "pigeon" }, "sms.provider"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty store", func(c *Config) { c.Store.Path = "" }, "store.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, err.Error(), "config."+tt.field)
		})
	}
}

func TestValidation_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Escalation.MaxTier = 9
	cfg.Log.Level = "loud"

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escalation.max_tier")
	assert.Contains(t, err.Error(), "log.level")
}

func TestValidation_IncompleteTwilioIsAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SMS.Provider = "twilio"
	assert.NoError(t, validateConfig(cfg))
}
