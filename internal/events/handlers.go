package events

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/metrics"
)

// LogHandler returns a handler that logs events. Progress ticks are logged
// at debug level, failures at error level.
func LogHandler(logger *zap.Logger) Handler {
	return func(e Event) {
		level := zapcore.InfoLevel
		switch {
		case e.Type == TierProgress:
			level = zapcore.DebugLevel
		case e.IsFailure():
			level = zapcore.ErrorLevel
		}

		ce := logger.Check(level, string(e.Type))
		if ce == nil {
			return
		}

		fields := []zap.Field{zap.String("session", e.Session)}
		if e.Tier != nil {
			fields = append(fields, zap.Int("tier", *e.Tier))
		}
		switch p := e.Payload.(type) {
		case *alert.Outcome:
			fields = append(fields,
				zap.Int("contacts_found", p.ContactsFound),
				zap.Int("contacts_reached", p.ContactsReached),
				zap.Int("attempts", p.Attempts()),
				zap.Bool("next_tiers_available", p.NextTiersAvailable))
		case ArmedPayload:
			fields = append(fields, zap.Int("next_tier", p.NextTier), zap.Duration("delay", p.Delay))
		case ProgressPayload:
			fields = append(fields, zap.Float64("percent", p.Percent))
		case EndedPayload:
			fields = append(fields,
				zap.String("reason", p.Reason),
				zap.Int("tiers_notified", p.TiersNotified),
				zap.Int("contacts_reached", p.ContactsReached))
		case CapturedPayload:
			fields = append(fields,
				zap.Bool("location", p.Location),
				zap.Bool("audio", p.Audio),
				zap.Bool("photo", p.Photo))
		}
		if e.Error != "" {
			fields = append(fields, zap.String("error", e.Error))
		}
		ce.Write(fields...)
	}
}

// MetricsHandler returns a handler that counts finished sessions.
func MetricsHandler(m *metrics.Metrics) Handler {
	return func(e Event) {
		if !e.IsTerminal() {
			return
		}
		reason := ""
		if p, ok := e.Payload.(EndedPayload); ok {
			reason = p.Reason
		}
		state := "exhausted"
		if e.Type == SessionCancelled {
			state = "cancelled"
		}
		m.SessionEnded(state, reason)
	}
}
