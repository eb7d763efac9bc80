package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.Server.MaxBodyMB < 1 {
		errs = append(errs, &ValidationError{
			Field:   "server.max_body_mb",
			Value:   cfg.Server.MaxBodyMB,
			Message: "must be at least 1",
		})
	}

	if cfg.Store.Path == "" {
		errs = append(errs, &ValidationError{
			Field:   "store.path",
			Value:   cfg.Store.Path,
			Message: "must not be empty",
		})
	}

	durations := []struct {
		field string
		value string
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeout},
		{"escalation.tier_delay", cfg.Escalation.TierDelay},
		{"escalation.progress_interval", cfg.Escalation.ProgressInterval},
		{"capture.settle_delay", cfg.Capture.SettleDelay},
		{"capture.locate_timeout", cfg.Capture.LocateTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, &ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
			continue
		}
		if parsed <= 0 {
			errs = append(errs, &ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: "must be positive",
			})
		}
	}

	// MaxTier must be within the tier range
	if cfg.Escalation.MaxTier < 1 || cfg.Escalation.MaxTier > 3 {
		errs = append(errs, &ValidationError{
			Field:   "escalation.max_tier",
			Value:   cfg.Escalation.MaxTier,
			Message: "must be between 1 and 3",
		})
	}

	if cfg.Capture.BufferSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "capture.buffer_seconds",
			Value:   cfg.Capture.BufferSeconds,
			Message: "must be at least 1",
		})
	}

	if cfg.Dispatch.MaxConcurrentSends < 0 {
		errs = append(errs, &ValidationError{
			Field:   "dispatch.max_concurrent_sends",
			Value:   cfg.Dispatch.MaxConcurrentSends,
			Message: "must be non-negative (0 = unbounded)",
		})
	}
	if cfg.Dispatch.EmailPerMinute < 0 || cfg.Dispatch.SMSPerMinute < 0 {
		errs = append(errs, &ValidationError{
			Field:   "dispatch.rate",
			Value:   fmt.Sprintf("email=%d sms=%d", cfg.Dispatch.EmailPerMinute, cfg.Dispatch.SMSPerMinute),
			Message: "must be non-negative (0 = off)",
		})
	}
	for i, n := range cfg.Dispatch.EmergencyNumbers {
		if n.Label == "" || n.Number == "" {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("dispatch.emergency_numbers[%d]", i),
				Value:   n,
				Message: "label and number are required",
			})
		}
	}

	switch cfg.Email.Provider {
	case "terminal":
	case "sendgrid":
		if cfg.Email.APIKey == "" {
			errs = append(errs, &ValidationError{
				Field:   "email.api_key",
				Value:   "",
				Message: "required for sendgrid (or set SENDGRID_API_KEY)",
			})
		}
		if cfg.Email.FromAddress == "" {
			errs = append(errs, &ValidationError{
				Field:   "email.from_address",
				Value:   "",
				Message: "required for sendgrid",
			})
		}
	default:
		errs = append(errs, &ValidationError{
			Field:   "email.provider",
			Value:   cfg.Email.Provider,
			Message: "must be one of: sendgrid, terminal",
		})
	}

	// Incomplete SMS credentials disable the channel rather than fail.
	switch cfg.SMS.Provider {
	case "", "terminal", "twilio", "gateway":
	default:
		errs = append(errs, &ValidationError{
			Field:   "sms.provider",
			Value:   cfg.SMS.Provider,
			Message: "must be one of: twilio, gateway, terminal, or empty",
		})
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.Log.Level] {
		errs = append(errs, &ValidationError{
			Field:   "log.level",
			Value:   cfg.Log.Level,
			Message: "must be one of: debug, info, warn, error",
		})
	}
	switch cfg.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, &ValidationError{
			Field:   "log.format",
			Value:   cfg.Log.Format,
			Message: "must be console, json, or empty",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
