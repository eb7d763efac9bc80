package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/capture"
	"github.com/RevCBH/guardian/internal/client"
	"github.com/RevCBH/guardian/internal/config"
	"github.com/RevCBH/guardian/internal/contacts"
	"github.com/RevCBH/guardian/internal/dispatch"
	"github.com/RevCBH/guardian/internal/escalation"
	"github.com/RevCBH/guardian/internal/logging"
	"github.com/RevCBH/guardian/internal/metrics"
	"github.com/RevCBH/guardian/internal/notify"
)

// Dispatch holds the in-process dispatcher and what it owns
type Dispatch struct {
	Store      *contacts.SQLiteStore
	Dispatcher *dispatch.Dispatcher
}

// Close releases the contacts store
func (d *Dispatch) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}

// newLogger builds the command logger. out replaces stderr when non-nil.
func newLogger(cfg *config.Config, out zapcore.WriteSyncer) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Output:     out,
	})
}

// openStore opens the contacts database, creating its directory.
func openStore(cfg *config.Config) (*contacts.SQLiteStore, error) {
	if cfg.Store.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return contacts.Open(cfg.Store.Path)
}

func notifyConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		EmailProvider:    cfg.Email.Provider,
		SMSProvider:      cfg.SMS.Provider,
		SendGridAPIKey:   cfg.Email.APIKey,
		FromAddress:      cfg.Email.FromAddress,
		FromName:         cfg.Email.FromName,
		TwilioAccountSID: cfg.SMS.AccountSID,
		TwilioAuthToken:  cfg.SMS.AuthToken,
		FromNumber:       cfg.SMS.FromNumber,
		GatewayURL:       cfg.SMS.GatewayURL,
		GatewayToken:     cfg.SMS.GatewayToken,
	}
}

func dispatchConfig(cfg *config.Config) dispatch.Config {
	numbers := make([]dispatch.EmergencyNumber, 0, len(cfg.Dispatch.EmergencyNumbers))
	for _, n := range cfg.Dispatch.EmergencyNumbers {
		numbers = append(numbers, dispatch.EmergencyNumber{Label: n.Label, Number: n.Number})
	}
	return dispatch.Config{
		MaxConcurrentSends: cfg.Dispatch.MaxConcurrentSends,
		EmailPerMinute:     cfg.Dispatch.EmailPerMinute,
		SMSPerMinute:       cfg.Dispatch.SMSPerMinute,
		RateBurst:          cfg.Dispatch.RateBurst,
		Message: dispatch.MessageConfig{
			TimeZone:         cfg.Dispatch.TimeZone,
			EmergencyNumbers: numbers,
		},
	}
}

// WireDispatch opens the store and builds the dispatcher with the
// configured channels. m may be nil.
func WireDispatch(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Dispatch, error) {
	email, sms, err := notify.FromConfig(notifyConfig(cfg))
	if err != nil {
		return nil, err
	}
	if sms == nil {
		logger.Warn("sms channel unavailable; contacts without email will not be reached",
			zap.String("provider", cfg.SMS.Provider))
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	d, err := dispatch.New(dispatchConfig(cfg), dispatch.Dependencies{
		Store:   store,
		Email:   email,
		SMS:     sms,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return &Dispatch{Store: store, Dispatcher: d}, nil
}

// wireNotifier picks the remote dispatcher when a URL is configured,
// the in-process one otherwise. The returned closer releases it.
func wireNotifier(cfg *config.Config, remote string, logger *zap.Logger) (escalation.TierNotifier, func() error, error) {
	if remote == "" {
		remote = cfg.Escalation.DispatcherURL
	}
	if remote != "" {
		logger.Info("using remote dispatcher", zap.String("url", remote))
		return client.New(remote, client.WithDialRetries(2, 500*time.Millisecond)), func() error { return nil }, nil
	}

	d, err := WireDispatch(cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return d.Dispatcher, d.Close, nil
}

// wireCapture builds the capture buffer from the configured device
// commands. fix, when set, overrides the configured locator.
func wireCapture(cfg *config.Config, fix *alert.Location, logger *zap.Logger) (*capture.Buffer, error) {
	settle, err := cfg.SettleDelayDuration()
	if err != nil {
		return nil, err
	}
	locate, err := cfg.LocateTimeoutDuration()
	if err != nil {
		return nil, err
	}

	deps := capture.Dependencies{Logger: logger}
	if len(cfg.Capture.Microphone) > 0 {
		deps.Microphone = &capture.ExecMicrophone{Command: cfg.Capture.Microphone}
	}
	if len(cfg.Capture.Camera) > 0 {
		deps.Camera = &capture.ExecCamera{Command: cfg.Capture.Camera}
	}

	switch {
	case fix != nil:
		deps.Locator = capture.StaticLocator{Location: fix}
	case len(cfg.Capture.Locator) > 0:
		deps.Locator = &capture.CommandLocator{Command: cfg.Capture.Locator}
	case cfg.Capture.Location != "":
		loc, err := alert.ParseLocation(cfg.Capture.Location)
		if err != nil {
			return nil, fmt.Errorf("capture.location: %w", err)
		}
		deps.Locator = capture.StaticLocator{Location: loc}
	}

	return capture.New(capture.Config{
		BufferSeconds: cfg.Capture.BufferSeconds,
		SettleDelay:   settle,
		LocateTimeout: locate,
	}, deps), nil
}

func sender(cfg *config.Config) alert.Sender {
	return alert.Sender{
		UserID:   cfg.User.ID,
		Name:     cfg.User.Name,
		Email:    cfg.User.Email,
		TimeZone: cfg.User.TimeZone,
	}
}

// emergencyNumbers formats the hotline list for display.
func emergencyNumbers(cfg *config.Config) []string {
	numbers := dispatch.DefaultEmergencyNumbers
	if len(cfg.Dispatch.EmergencyNumbers) > 0 {
		numbers = dispatchConfig(cfg).Message.EmergencyNumbers
	}
	out := make([]string, len(numbers))
	for i, n := range numbers {
		out[i] = n.Label + ": " + n.Number
	}
	return out
}
