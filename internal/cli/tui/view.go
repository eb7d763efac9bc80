package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/escalation"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder
	switch m.Screen {
	case ScreenArmed:
		b.WriteString(m.renderArmed())
	case ScreenAlerting:
		b.WriteString(m.renderAlerting())
	case ScreenEnded:
		b.WriteString(m.renderEnded())
	}

	if m.ShowLogs {
		b.WriteString(m.renderLogs())
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderArmed() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n\n", m.Styles.Title.Render(IconSafe+" Guardian armed"), m.Styles.Timer.Render(m.Options.SenderName))
	b.WriteString("  Press enter to alert your trusted contacts.\n")
	fmt.Fprintf(&b, "  Tiers 1-%d are notified %s apart until you mark yourself safe.\n\n",
		m.Options.MaxTier, formatDuration(m.Options.TierDelay))

	c := m.Options.Consent
	fmt.Fprintf(&b, "  Share: location %s  audio %s  photo %s\n", m.tick(c.Location), m.tick(c.Audio), m.tick(c.Photo))
	if m.Options.Message != "" {
		fmt.Fprintf(&b, "  Message: %q\n", m.Options.Message)
	}
	if m.ActivateErr != nil {
		fmt.Fprintf(&b, "\n  %s\n", m.Styles.Failed.Render("Could not start alert: "+m.ActivateErr.Error()))
	}
	return b.String()
}

func (m *Model) renderAlerting() string {
	var b strings.Builder

	elapsed := time.Since(m.StartTime).Round(time.Second)
	fmt.Fprintf(&b, "%s  %s\n\n",
		m.Styles.Alert.Render(IconAlert+" ALERT ACTIVE"),
		m.Styles.Timer.Render(fmt.Sprintf("[%s]", formatDuration(elapsed))))

	for tier := 1; tier <= m.Options.MaxTier; tier++ {
		b.WriteString(m.renderTier(tier))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.Phase {
	case "waiting":
		bar := m.renderProgressBar(m.Percent, 30)
		fmt.Fprintf(&b, "  %s Tier %d in %s %s\n", IconWaiting, m.NextTier, formatDuration(m.Remaining.Round(time.Second)), bar)
	case "notifying tier":
		fmt.Fprintf(&b, "  %s\n", m.Styles.PhaseText.Render(fmt.Sprintf("Notifying tier %d...", m.Tier)))
	case "":
	default:
		fmt.Fprintf(&b, "  %s\n", m.Styles.PhaseText.Render(capitalize(m.Phase)+"..."))
	}

	fmt.Fprintf(&b, "  Contacts reached: %s\n", m.Styles.Success.Render(fmt.Sprint(m.Reached)))
	return b.String()
}

// renderTier renders one tier line: ✓ Tier 1  2 reached  email 1/1  sms 1/1
func (m *Model) renderTier(tier int) string {
	label := fmt.Sprintf("Tier %d", tier)

	if tier > len(m.Outcomes) {
		if tier == m.Tier && m.Phase == "notifying tier" {
			return fmt.Sprintf("  %s %s", m.Styles.TierActive.Render(IconActive), m.Styles.TierActive.Render(label))
		}
		return fmt.Sprintf("  %s %s", m.Styles.TierEmpty.Render(IconActive), m.Styles.TierEmpty.Render(label))
	}

	o := m.Outcomes[tier-1]
	if o.ContactsFound == 0 {
		return fmt.Sprintf("  %s %s  %s", m.Styles.TierEmpty.Render(IconSkipped), label, m.Styles.Skipped.Render("no contacts in this tier"))
	}

	icon := m.Styles.TierDone.Render(IconComplete)
	if o.ContactsReached == 0 {
		icon = m.Styles.Failed.Render(IconFailed)
	}
	return fmt.Sprintf("  %s %s  %d reached  %s  %s", icon, label, o.ContactsReached, m.renderChannel("email", o.EmailSuccess, o.EmailFailed, false), m.renderChannel("sms", o.SMSSuccess, o.SMSFailed, o.SMSSkipped))
}

// renderChannel shows sent/attempted; a skipped channel never reads as sent.
func (m *Model) renderChannel(name string, ok, failed int, skipped bool) string {
	if skipped {
		return m.Styles.Skipped.Render(name + " unavailable")
	}
	text := fmt.Sprintf("%s %d/%d", name, ok, ok+failed)
	if failed > 0 {
		return m.Styles.Failed.Render(text)
	}
	return m.Styles.Success.Render(text)
}

func (m *Model) renderEnded() string {
	var b strings.Builder

	switch {
	case m.EndState == escalation.StateCancelled:
		fmt.Fprintf(&b, "%s\n\n", m.Styles.Safe.Render(IconSafe+" You're marked safe"))
		fmt.Fprintf(&b, "  Escalation stopped. %s\n", m.reachedSentence())

	case m.EndReason == escalation.ReasonNoContacts:
		fmt.Fprintf(&b, "%s\n\n", m.Styles.Emergency.Render(alert.NoContactsMessage))
		b.WriteString("  Nobody could be alerted. Call emergency services now:\n")
		b.WriteString(m.renderEmergencyNumbers())

	case m.EndReason == escalation.ReasonFailed:
		fmt.Fprintf(&b, "%s\n\n", m.Styles.Emergency.Render("Alert delivery failed"))
		if m.EndError != "" {
			fmt.Fprintf(&b, "  %s\n", m.EndError)
		}
		fmt.Fprintf(&b, "  %s Call emergency services now:\n", m.reachedSentence())
		b.WriteString(m.renderEmergencyNumbers())

	case m.Reached == 0:
		fmt.Fprintf(&b, "%s\n\n", m.Styles.Warning.Render("No contacts could be reached"))
		b.WriteString("  Every tier was tried. Call emergency services now:\n")
		b.WriteString(m.renderEmergencyNumbers())

	default:
		fmt.Fprintf(&b, "%s\n\n", m.Styles.Warning.Render("All tiers notified"))
		fmt.Fprintf(&b, "  %s No further escalation.\n", m.reachedSentence())
	}

	if len(m.Outcomes) > 0 {
		b.WriteString("\n")
		for tier := 1; tier <= len(m.Outcomes); tier++ {
			b.WriteString(m.renderTier(tier))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) reachedSentence() string {
	if m.Reached == 1 {
		return "1 contact was reached."
	}
	return fmt.Sprintf("%d contacts were reached.", m.Reached)
}

func (m *Model) renderEmergencyNumbers() string {
	var b strings.Builder
	for _, n := range m.Options.EmergencyNumbers {
		fmt.Fprintf(&b, "    %s\n", m.Styles.Emergency.Render(n))
	}
	return b.String()
}

// renderProgressBar creates a progress bar of the given width
func (m *Model) renderProgressBar(percent float64, width int) string {
	filled := min(int(percent/100*float64(width)), width)
	filled = max(filled, 0)

	return "[" +
		m.Styles.ProgressFilled.Render(strings.Repeat("█", filled)) +
		m.Styles.ProgressEmpty.Render(strings.Repeat("░", width-filled)) +
		"]"
}

func (m *Model) renderLogs() string {
	var b strings.Builder
	b.WriteString("\n" + m.Styles.LogTitle.Render("  Logs") + "\n")

	lines := m.LogLines
	if limit := 8; len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	for _, line := range lines {
		b.WriteString("  " + m.Styles.LogLine.Render(line) + "\n")
	}
	return b.String()
}

// renderFooter renders the help text for the current screen
func (m *Model) renderFooter() string {
	key := m.Styles.FooterKey.Render
	var help string
	switch m.Screen {
	case ScreenArmed:
		help = fmt.Sprintf("  %s send alert · %s quit", key("enter"), key("q"))
	case ScreenAlerting:
		help = fmt.Sprintf("  %s I'm safe · %s logs · %s quit (cancels alert)", key("s"), key("l"), key("q"))
	default:
		help = fmt.Sprintf("  %s logs · %s quit", key("l"), key("q"))
	}
	return m.Styles.Footer.Render(help)
}

func (m *Model) tick(on bool) string {
	if on {
		return m.Styles.Success.Render(IconComplete)
	}
	return m.Styles.Skipped.Render(IconFailed)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatDuration formats a duration as MM:SS, or HH:MM:SS past an hour
func formatDuration(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
