package events

import (
	"fmt"
	"strings"
	"time"
)

// Event represents a single occurrence in an escalation session
type Event struct {
	// Time is when the event occurred (set by bus on emit)
	Time time.Time `json:"time"`

	// Type identifies what happened
	Type EventType `json:"type"`

	// Session is the escalation session ID
	Session string `json:"session,omitempty"`

	// Tier is the tier this event relates to (nil if not tier-related)
	Tier *int `json:"tier,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// EventType is a string constant identifying the event category
type EventType string

// Session lifecycle events
const (
	SessionStarted   EventType = "session.started"
	SessionCancelled EventType = "session.cancelled" // Terminal
	SessionExhausted EventType = "session.exhausted" // Terminal
	SessionFailed    EventType = "session.failed"    // Terminal
)

// Context capture events
const (
	// ContextCaptured is emitted once per session after capture settles
	// Payload: CapturedPayload
	ContextCaptured EventType = "context.captured"
)

// Tier lifecycle events
const (
	// TierDispatching is emitted before the dispatcher is called
	TierDispatching EventType = "tier.dispatching"

	// TierNotified is emitted with the dispatcher outcome
	// Payload: *alert.Outcome
	TierNotified EventType = "tier.notified"

	// TierArmed is emitted when the escalation timer starts
	// Payload: ArmedPayload
	TierArmed EventType = "tier.armed"

	// TierProgress is emitted about once per second while a timer runs.
	// Dropped rather than queued when a subscriber falls behind.
	// Payload: ProgressPayload
	TierProgress EventType = "tier.progress"
)

// CapturedPayload reports which context fields are present.
type CapturedPayload struct {
	Message  bool `json:"message"`
	Location bool `json:"location"`
	Audio    bool `json:"audio"`
	Photo    bool `json:"photo"`
}

// ArmedPayload describes a pending escalation.
type ArmedPayload struct {
	NextTier int           `json:"next_tier"`
	Delay    time.Duration `json:"delay"`
}

// ProgressPayload is the elapsed share of the current tier delay.
type ProgressPayload struct {
	Percent   float64       `json:"percent"`
	Remaining time.Duration `json:"remaining"`
}

// EndedPayload summarizes a finished session.
type EndedPayload struct {
	Reason          string `json:"reason,omitempty"`
	TiersNotified   int    `json:"tiers_notified"`
	ContactsReached int    `json:"contacts_reached"`
}

// NewEvent creates an event with the given type and session
func NewEvent(eventType EventType, session string) Event {
	return Event{
		Type:    eventType,
		Session: session,
	}
}

// WithTier returns a copy of the event with the tier set
func (e Event) WithTier(tier int) Event {
	e.Tier = &tier
	return e
}

// WithPayload returns a copy of the event with the payload set
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// WithError returns a copy of the event with the error message set
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsFailure returns true if this is a failure event type
func (e Event) IsFailure() bool {
	return strings.HasSuffix(string(e.Type), ".failed")
}

// IsTerminal returns true if the session ends with this event
func (e Event) IsTerminal() bool {
	switch e.Type {
	case SessionCancelled, SessionExhausted, SessionFailed:
		return true
	}
	return false
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Session != "" {
		parts = append(parts, e.Session)
	}

	if e.Tier != nil {
		parts = append(parts, fmt.Sprintf("tier=%d", *e.Tier))
	}

	if e.Error != "" {
		parts = append(parts, "error="+e.Error)
	}

	return strings.Join(parts, " ")
}
