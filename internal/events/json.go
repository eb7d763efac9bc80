package events

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// JSONEvent is the wire format for events written to stdout in JSON mode.
type JSONEvent struct {
	// Type identifies the event (e.g., "tier.notified", "session.cancelled")
	Type string `json:"type"`

	// Timestamp is when the event occurred (RFC3339 format)
	Timestamp time.Time `json:"timestamp"`

	// Session is the escalation session ID
	Session string `json:"session,omitempty"`

	// Tier is the tier this event relates to (nil if not tier-related)
	Tier *int `json:"tier,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// IsJSONMode returns true if JSON event output should be enabled.
// Checks: (1) explicit forceJSON flag, (2) non-TTY stdout.
func IsJSONMode(forceJSON bool) bool {
	if forceJSON {
		return true
	}

	if os.Stdout != nil {
		return !term.IsTerminal(int(os.Stdout.Fd()))
	}

	return true
}

// JSONEmitter writes events as JSON lines to a writer.
// Thread-safe for concurrent Emit calls.
type JSONEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONEmitter creates a new JSON emitter that writes to w.
// Each event is written as a single JSON line (newline-delimited).
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{enc: json.NewEncoder(w)}
}

// Emit converts the Event to JSONEvent wire format and writes it.
func (e *JSONEmitter) Emit(event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.enc.Encode(ToJSONEvent(event))
}

// JSONEmitterHandler returns a Handler that emits events as JSON lines.
// Write errors are logged, not propagated.
func JSONEmitterHandler(emitter *JSONEmitter, logger *zap.Logger) Handler {
	return func(e Event) {
		if err := emitter.Emit(e); err != nil {
			logger.Warn("failed to emit JSON event", zap.String("type", string(e.Type)), zap.Error(err))
		}
	}
}

// ToJSONEvent converts an Event to the wire format JSONEvent.
func ToJSONEvent(e Event) JSONEvent {
	return JSONEvent{
		Type:      string(e.Type),
		Timestamp: e.Time,
		Session:   e.Session,
		Tier:      e.Tier,
		Payload:   e.Payload,
		Error:     e.Error,
	}
}
