package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/guardian/internal/escalation"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case TickMsg:
		// Continue ticking for timer updates
		return m, tickCmd()

	case QuitMsg:
		return m.quit()

	case SessionStartedMsg:
		m.SessionID = msg.SessionID
		m.Phase = "capturing context"

	case CapturedMsg:
		m.Captured = &msg

	case TierDispatchingMsg:
		m.Tier = msg.Tier
		m.Phase = "notifying tier"
		m.Percent = 0
		m.Remaining = 0

	case TierNotifiedMsg:
		m.Outcomes = append(m.Outcomes, msg.Outcome)
		m.Reached += msg.Outcome.ContactsReached

	case TierArmedMsg:
		m.Phase = "waiting"
		m.NextTier = msg.NextTier
		m.Percent = 0
		m.Remaining = msg.Delay

	case ProgressMsg:
		m.Percent = msg.Percent
		m.Remaining = msg.Remaining

	case SessionEndedMsg:
		m.Screen = ScreenEnded
		m.EndState = msg.State
		m.EndReason = msg.Reason
		m.EndError = msg.Error
		m.Reached = msg.ContactsReached
		m.Phase = ""

	case LogMsg:
		m.appendLog(msg.Line)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m.quit()
	case "l":
		m.ShowLogs = !m.ShowLogs
		return m, nil
	}

	switch m.Screen {
	case ScreenArmed:
		if msg.String() == "enter" {
			m.activate()
		}
	case ScreenAlerting:
		if msg.String() == "s" {
			m.controller.Cancel()
		}
	}
	return m, nil
}

func (m *Model) activate() {
	id, err := m.controller.Activate(m.Options.Message, m.Options.Consent)
	if err != nil {
		m.ActivateErr = err
		return
	}
	m.ActivateErr = nil
	m.Screen = ScreenAlerting
	m.SessionID = id
	m.Phase = "capturing context"
	m.StartTime = time.Now()
}

// quit cancels a running session before exiting.
func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.Screen == ScreenAlerting {
		m.controller.Cancel()
		m.EndState = escalation.StateCancelled
	}
	m.Quitting = true
	return m, tea.Quit
}

func (m *Model) appendLog(line string) {
	m.LogLines = append(m.LogLines, line)
	if m.LogLimit > 0 && len(m.LogLines) > m.LogLimit {
		m.LogLines = m.LogLines[len(m.LogLines)-m.LogLimit:]
	}
}
