package escalation

import (
	"time"

	"github.com/RevCBH/guardian/internal/alert"
)

// State is the coarse session state.
type State int

const (
	StateIdle State = iota
	StateTierActive
	StateCancelled
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTierActive:
		return "tier_active"
	case StateCancelled:
		return "cancelled"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateExhausted
}

// Reason says why a session became Exhausted.
type Reason string

const (
	// ReasonCompleted means every tier with contacts was notified.
	ReasonCompleted Reason = "completed"

	// ReasonNoContacts means the user has nobody to notify.
	ReasonNoContacts Reason = "no_contacts"

	// ReasonFailed means a tier notification failed outright.
	ReasonFailed Reason = "failed"
)

// Phase refines TierActive for display.
type Phase string

const (
	PhaseCapturing   Phase = "capturing"
	PhaseDispatching Phase = "dispatching"
	PhaseWaiting     Phase = "waiting"
)

// Consent lists the context fields the user agreed to capture.
type Consent struct {
	Location bool
	Audio    bool
	Photo    bool
}

// Snapshot is a read-only view of the current session.
type Snapshot struct {
	SessionID string
	State     State
	Phase     Phase
	Tier      int
	Reason    Reason
	Err       error

	// Progress is the elapsed share of the tier delay, 0 to 100, while
	// waiting to escalate.
	Progress  float64
	Remaining time.Duration

	Outcomes        []alert.Outcome
	ContactsReached int
	StartedAt       time.Time
}

// TiersNotified returns how many tier calls completed.
func (s Snapshot) TiersNotified() int {
	return len(s.Outcomes)
}
