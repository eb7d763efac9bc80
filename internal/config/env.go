package config

import (
	"os"
	"strings"
)

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{"GUARDIAN_USER_ID", func(c *Config, v string) { c.User.ID = v }},
	{"GUARDIAN_USER_NAME", func(c *Config, v string) { c.User.Name = v }},
	{"GUARDIAN_USER_EMAIL", func(c *Config, v string) { c.User.Email = v }},
	{"GUARDIAN_ADDR", func(c *Config, v string) { c.Server.Addr = v }},
	{"GUARDIAN_DB", func(c *Config, v string) { c.Store.Path = v }},
	{"GUARDIAN_TIER_DELAY", func(c *Config, v string) { c.Escalation.TierDelay = v }},
	{"GUARDIAN_DISPATCHER_URL", func(c *Config, v string) { c.Escalation.DispatcherURL = v }},
	{"GUARDIAN_EMAIL_PROVIDER", func(c *Config, v string) { c.Email.Provider = v }},
	{"GUARDIAN_SMS_PROVIDER", func(c *Config, v string) { c.SMS.Provider = v }},
	{"GUARDIAN_LOG_LEVEL", func(c *Config, v string) { c.Log.Level = strings.ToLower(v) }},
	{"GUARDIAN_LOG_FILE", func(c *Config, v string) { c.Log.File = v }},

	// Provider secrets use the providers' conventional names.
	{"SENDGRID_API_KEY", func(c *Config, v string) { c.Email.APIKey = v }},
	{"TWILIO_ACCOUNT_SID", func(c *Config, v string) { c.SMS.AccountSID = v }},
	{"TWILIO_AUTH_TOKEN", func(c *Config, v string) { c.SMS.AuthToken = v }},
	{"TWILIO_FROM_NUMBER", func(c *Config, v string) { c.SMS.FromNumber = v }},
	{"SMS_GATEWAY_TOKEN", func(c *Config, v string) { c.SMS.GatewayToken = v }},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
