// Package tui renders the alert screen: armed, alerting with tier progress,
// and the final summary.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/escalation"
)

// Screen is the current stage of the alert flow
type Screen int

const (
	ScreenArmed Screen = iota
	ScreenAlerting
	ScreenEnded
)

// Controller starts and stops escalation sessions.
type Controller interface {
	Activate(message string, consent escalation.Consent) (string, error)
	Cancel() bool
}

// Options configures the alert screen
type Options struct {
	SenderName       string
	Message          string
	Consent          escalation.Consent
	MaxTier          int
	TierDelay        time.Duration
	EmergencyNumbers []string
}

// Model is the bubbletea model for the alert screen
type Model struct {
	// Configuration
	Options    Options
	Styles     Styles
	controller Controller

	// Session state
	Screen      Screen
	SessionID   string
	Phase       string
	Tier        int
	Captured    *CapturedMsg
	Outcomes    []alert.Outcome
	Reached     int
	Percent     float64
	Remaining   time.Duration
	NextTier    int
	StartTime   time.Time
	EndState    escalation.State
	EndReason   escalation.Reason
	EndError    string
	ActivateErr error

	// Log pane
	LogLines []string
	LogLimit int
	ShowLogs bool
	Width    int
	Height   int

	// Control
	Quitting bool
}

// NewModel creates the alert screen in the armed state
func NewModel(controller Controller, opts Options) *Model {
	if opts.MaxTier <= 0 {
		opts.MaxTier = alert.MaxTier
	}
	return &Model{
		Options:    opts,
		Styles:     DefaultStyles(),
		controller: controller,
		Screen:     ScreenArmed,
		LogLimit:   200,
	}
}

// SetController attaches the session controller. Call before the program runs.
func (m *Model) SetController(c Controller) {
	m.controller = c
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg is sent every second to update the elapsed timer
type TickMsg time.Time

// tickCmd returns a command that sends TickMsg every second
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// QuitMsg asks the screen to cancel any session and exit
type QuitMsg struct{}

// SessionStartedMsg indicates the alert went out
type SessionStartedMsg struct {
	SessionID string
}

// CapturedMsg reports which context fields were captured
type CapturedMsg struct {
	Message  bool
	Location bool
	Audio    bool
	Photo    bool
}

// TierDispatchingMsg indicates a tier is being notified
type TierDispatchingMsg struct {
	Tier int
}

// TierNotifiedMsg carries a tier's delivery outcome
type TierNotifiedMsg struct {
	Outcome alert.Outcome
}

// TierArmedMsg indicates the next tier is scheduled
type TierArmedMsg struct {
	Tier     int
	NextTier int
	Delay    time.Duration
}

// ProgressMsg updates the countdown
type ProgressMsg struct {
	Percent   float64
	Remaining time.Duration
}

// SessionEndedMsg indicates the session reached a terminal state
type SessionEndedMsg struct {
	State           escalation.State
	Reason          escalation.Reason
	Error           string
	ContactsReached int
}
