package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains all lipgloss styles for the TUI
type Styles struct {
	// Header styling
	Title lipgloss.Style
	Alert lipgloss.Style
	Timer lipgloss.Style

	// Tier styling
	TierActive lipgloss.Style
	TierDone   lipgloss.Style
	TierEmpty  lipgloss.Style

	// Progress bar colors
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	// Phase text
	PhaseText lipgloss.Style

	// Outcome counts
	Success lipgloss.Style
	Failed  lipgloss.Style
	Skipped lipgloss.Style

	// Final summary
	Safe      lipgloss.Style
	Warning   lipgloss.Style
	Emergency lipgloss.Style

	// Footer styling
	Footer    lipgloss.Style
	FooterKey lipgloss.Style

	// Log area styling
	LogTitle lipgloss.Style
	LogLine  lipgloss.Style
}

// DefaultStyles returns the default TUI styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Alert: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1),
		Timer: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		TierActive: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		TierDone:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		TierEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),

		ProgressFilled: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ProgressEmpty:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),

		PhaseText: lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Italic(true),

		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Skipped: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		Safe:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		Emergency: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),

		Footer:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		FooterKey: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),

		LogTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true),
		LogLine:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Icons used in the TUI
const (
	IconActive   = "●"
	IconComplete = "✓"
	IconFailed   = "✗"
	IconSkipped  = "–"
	IconAlert    = "🚨"
	IconSafe     = "🛡"
	IconWaiting  = "⏳"
)
