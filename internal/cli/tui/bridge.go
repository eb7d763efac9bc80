package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/escalation"
	"github.com/RevCBH/guardian/internal/events"
)

// Bridge connects the event bus to the bubbletea program
type Bridge struct {
	send func(tea.Msg)
}

// NewBridge creates a new bridge for the given program
func NewBridge(program *tea.Program) *Bridge {
	return &Bridge{send: program.Send}
}

// Handler returns an event handler function for the event bus
func (b *Bridge) Handler() events.Handler {
	return func(evt events.Event) {
		if msg := eventToMsg(evt); msg != nil {
			b.send(msg)
		}
	}
}

// SendQuit sends a QuitMsg to the program
func (b *Bridge) SendQuit() {
	b.send(QuitMsg{})
}

// eventToMsg converts an events.Event to a tea.Msg
func eventToMsg(evt events.Event) tea.Msg {
	tier := 0
	if evt.Tier != nil {
		tier = *evt.Tier
	}

	switch evt.Type {
	case events.SessionStarted:
		return SessionStartedMsg{SessionID: evt.Session}

	case events.ContextCaptured:
		p, _ := evt.Payload.(events.CapturedPayload)
		return CapturedMsg{Message: p.Message, Location: p.Location, Audio: p.Audio, Photo: p.Photo}

	case events.TierDispatching:
		return TierDispatchingMsg{Tier: tier}

	case events.TierNotified:
		o, ok := evt.Payload.(*alert.Outcome)
		if !ok || o == nil {
			return nil
		}
		return TierNotifiedMsg{Outcome: *o}

	case events.TierArmed:
		p, _ := evt.Payload.(events.ArmedPayload)
		return TierArmedMsg{Tier: tier, NextTier: p.NextTier, Delay: p.Delay}

	case events.TierProgress:
		p, _ := evt.Payload.(events.ProgressPayload)
		return ProgressMsg{Percent: p.Percent, Remaining: p.Remaining}

	case events.SessionCancelled, events.SessionExhausted, events.SessionFailed:
		p, _ := evt.Payload.(events.EndedPayload)
		state := escalation.StateExhausted
		if evt.Type == events.SessionCancelled {
			state = escalation.StateCancelled
		}
		return SessionEndedMsg{
			State:           state,
			Reason:          escalation.Reason(p.Reason),
			Error:           evt.Error,
			ContactsReached: p.ContactsReached,
		}

	default:
		return nil
	}
}
