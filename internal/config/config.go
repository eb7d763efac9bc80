// Package config loads guardian configuration from .guardian.yaml, the
// environment, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up by LoadConfig.
const FileName = ".guardian.yaml"

// Config holds all guardian configuration.
// It is immutable after creation via LoadConfig().
type Config struct {
	// User identifies the account owner named in every alert
	User UserConfig `yaml:"user"`

	// Server configures the dispatcher endpoint
	Server ServerConfig `yaml:"server"`

	// Store locates the trusted contacts database
	Store StoreConfig `yaml:"store"`

	// Escalation controls tier timing
	Escalation EscalationConfig `yaml:"escalation"`

	// Capture controls the context capture buffer and its devices
	Capture CaptureConfig `yaml:"capture"`

	// Dispatch controls alert rendering and send fan-out
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Email selects and configures the email provider
	Email EmailConfig `yaml:"email"`

	// SMS selects and configures the SMS provider
	SMS SMSConfig `yaml:"sms"`

	// Log controls log output
	Log LogConfig `yaml:"log"`
}

// UserConfig is the sender identity.
type UserConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	TimeZone string `yaml:"time_zone"`
}

// ServerConfig controls the HTTP dispatcher endpoint.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string `yaml:"addr"`

	// MaxBodyMB caps request bodies; photos and audio travel inline
	MaxBodyMB int `yaml:"max_body_mb"`

	// AllowedOrigins lists CORS origins; "*" allows any
	AllowedOrigins []string `yaml:"allowed_origins"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// StoreConfig locates the SQLite contacts database.
type StoreConfig struct {
	// Path is the database file. Relative paths resolve from the config directory.
	Path string `yaml:"path"`
}

// EscalationConfig controls the coordinator.
type EscalationConfig struct {
	// TierDelay is the wait before the next tier is notified
	TierDelay string `yaml:"tier_delay"`

	// ProgressInterval is how often countdown progress is published
	ProgressInterval string `yaml:"progress_interval"`

	// MaxTier is the last tier notified (1-3)
	MaxTier int `yaml:"max_tier"`

	// DispatcherURL, when set, sends tier notifications to a remote
	// guardian server instead of dispatching in-process
	DispatcherURL string `yaml:"dispatcher_url,omitempty"`
}

// CaptureConfig controls the context capture buffer.
type CaptureConfig struct {
	// BufferSeconds is the rolling audio window
	BufferSeconds int `yaml:"buffer_seconds"`

	// SettleDelay lets the camera adjust exposure before the frame is grabbed
	SettleDelay string `yaml:"settle_delay"`

	// LocateTimeout bounds the geolocation fix
	LocateTimeout string `yaml:"locate_timeout"`

	// Microphone streams raw PCM to stdout, e.g. ["arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"]
	Microphone []string `yaml:"microphone,omitempty"`

	// Camera writes one still image to stdout
	Camera []string `yaml:"camera,omitempty"`

	// Locator prints "lat,lng" to stdout
	Locator []string `yaml:"locator,omitempty"`

	// Location is a fixed "lat,lng" used when no locator command is set
	Location string `yaml:"location,omitempty"`
}

// EmergencyNumber is a hotline printed in every alert.
type EmergencyNumber struct {
	Label  string `yaml:"label"`
	Number string `yaml:"number"`
}

// DispatchConfig controls the delivery dispatcher.
type DispatchConfig struct {
	// TimeZone renders the alert timestamp when the sender has none
	TimeZone string `yaml:"time_zone"`

	// EmergencyNumbers replaces the built-in hotline list when set
	EmergencyNumbers []EmergencyNumber `yaml:"emergency_numbers,omitempty"`

	// MaxConcurrentSends caps in-flight sends per tier (0 = unbounded)
	MaxConcurrentSends int `yaml:"max_concurrent_sends"`

	// EmailPerMinute and SMSPerMinute throttle each channel (0 = off)
	EmailPerMinute int `yaml:"email_per_minute"`
	SMSPerMinute   int `yaml:"sms_per_minute"`

	// RateBurst is the limiter burst when throttling is on
	RateBurst int `yaml:"rate_burst"`
}

// EmailConfig selects the email provider.
type EmailConfig struct {
	// Provider is "sendgrid" or "terminal"
	Provider string `yaml:"provider"`

	APIKey      string `yaml:"api_key,omitempty"`
	FromAddress string `yaml:"from_address"`
	FromName    string `yaml:"from_name"`
}

// SMSConfig selects the SMS provider. An empty provider disables SMS.
type SMSConfig struct {
	// Provider is "twilio", "gateway", "terminal", or empty
	Provider string `yaml:"provider"`

	AccountSID string `yaml:"account_sid,omitempty"`
	AuthToken  string `yaml:"auth_token,omitempty"`
	FromNumber string `yaml:"from_number"`

	GatewayURL   string `yaml:"gateway_url,omitempty"`
	GatewayToken string `yaml:"gateway_token,omitempty"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`

	// Format is console, json, or empty to pick by terminal
	Format string `yaml:"format"`

	// File enables a rotated JSON log file
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TierDelayDuration parses the tier delay as a Duration.
func (c *Config) TierDelayDuration() (time.Duration, error) {
	return time.ParseDuration(c.Escalation.TierDelay)
}

// ProgressIntervalDuration parses the progress interval as a Duration.
func (c *Config) ProgressIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.Escalation.ProgressInterval)
}

// SettleDelayDuration parses the camera settle delay as a Duration.
func (c *Config) SettleDelayDuration() (time.Duration, error) {
	return time.ParseDuration(c.Capture.SettleDelay)
}

// LocateTimeoutDuration parses the geolocation timeout as a Duration.
func (c *Config) LocateTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Capture.LocateTimeout)
}

// ShutdownTimeoutDuration parses the server shutdown timeout as a Duration.
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Server.ShutdownTimeout)
}

// LoadConfig loads configuration from dir/.guardian.yaml.
// It applies defaults, then file values, then environment overrides,
// then validates. A missing file is not an error.
func LoadConfig(dir string) (*Config, error) {
	return load(filepath.Join(dir, FileName), false)
}

// LoadConfigFile loads configuration from an explicit path, which must exist.
func LoadConfigFile(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, required bool) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case required || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Store.Path != ":memory:" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(filepath.Dir(path), cfg.Store.Path)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
