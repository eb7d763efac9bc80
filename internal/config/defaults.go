package config

const (
	DefaultServerAddr        = ":8080"
	DefaultMaxBodyMB         = 25
	DefaultShutdownTimeout   = "10s"
	DefaultStorePath         = ".guardian/contacts.db"
	DefaultTierDelay         = "5m"
	DefaultProgressInterval  = "1s"
	DefaultMaxTier           = 3
	DefaultBufferSeconds     = 30
	DefaultSettleDelay       = "500ms"
	DefaultLocateTimeout     = "10s"
	DefaultTimeZone          = "Africa/Johannesburg"
	DefaultMaxConcurrentSend = 16
	DefaultRateBurst         = 5
	DefaultEmailProvider     = "terminal"
	DefaultFromName          = "Guardian Alerts"
	DefaultLogLevel          = "info"
	DefaultLogMaxSizeMB      = 50
	DefaultLogMaxBackups     = 3
	DefaultLogMaxAgeDays     = 28
)

// DefaultConfig returns a Config with all default values applied.
// SMS stays disabled until a provider is configured.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			MaxBodyMB:       DefaultMaxBodyMB,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Store: StoreConfig{
			Path: DefaultStorePath,
		},
		Escalation: EscalationConfig{
			TierDelay:        DefaultTierDelay,
			ProgressInterval: DefaultProgressInterval,
			MaxTier:          DefaultMaxTier,
		},
		Capture: CaptureConfig{
			BufferSeconds: DefaultBufferSeconds,
			SettleDelay:   DefaultSettleDelay,
			LocateTimeout: DefaultLocateTimeout,
		},
		Dispatch: DispatchConfig{
			TimeZone:           DefaultTimeZone,
			MaxConcurrentSends: DefaultMaxConcurrentSend,
			RateBurst:          DefaultRateBurst,
		},
		Email: EmailConfig{
			Provider: DefaultEmailProvider,
			FromName: DefaultFromName,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
	}
}
