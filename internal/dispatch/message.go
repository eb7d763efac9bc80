package dispatch

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/notify"
)

// DefaultTimeZone is used when the sender's time zone is unknown.
const DefaultTimeZone = "Africa/Johannesburg"

// fallbackSenderName stands in for senders without a display name.
const fallbackSenderName = "A Guardian user"

// EmergencyNumber is a hotline printed in every alert.
type EmergencyNumber struct {
	Label  string `yaml:"label"`
	Number string `yaml:"number"`
}

// DefaultEmergencyNumbers are the South African hotlines.
var DefaultEmergencyNumbers = []EmergencyNumber{
	{Label: "SA Police", Number: "10111"},
	{Label: "GBV Command Centre", Number: "0800 428 428"},
}

// MessageConfig controls alert rendering
type MessageConfig struct {
	TimeZone         string
	EmergencyNumbers []EmergencyNumber
}

// Renderer turns an alert into email and SMS bodies.
type Renderer struct {
	defaultLoc *time.Location
	numbers    []EmergencyNumber
	tmpl       *template.Template
}

// NewRenderer parses the email template and resolves the default zone.
func NewRenderer(cfg MessageConfig) (*Renderer, error) {
	zone := cfg.TimeZone
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", zone, err)
	}

	numbers := cfg.EmergencyNumbers
	if len(numbers) == 0 {
		numbers = DefaultEmergencyNumbers
	}

	tmpl, err := template.New("email").Parse(emailTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse email template: %w", err)
	}

	return &Renderer{defaultLoc: loc, numbers: numbers, tmpl: tmpl}, nil
}

type emailData struct {
	SenderName  string
	SenderEmail string
	ContactName string
	Time        string
	Tier        int
	Escalated   bool
	Message     string
	MapLink     string
	HasAudio    bool
	HasPhoto    bool
	Numbers     []EmergencyNumber
}

// Email renders the alert email for one contact.
func (r *Renderer) Email(sender alert.Sender, contactName string, tier int, c alert.Context, sentAt time.Time) (notify.Email, error) {
	data := emailData{
		SenderName:  senderName(sender),
		SenderEmail: sender.Email,
		ContactName: contactName,
		Time:        r.formatTime(sender, sentAt),
		Tier:        tier,
		Escalated:   tier > alert.MinTier,
		Message:     c.Message,
		HasAudio:    c.Audio != nil,
		HasPhoto:    c.Photo != nil,
		Numbers:     r.numbers,
	}
	if c.Location != nil {
		data.MapLink = c.Location.MapLink()
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return notify.Email{}, fmt.Errorf("render email: %w", err)
	}

	e := notify.Email{
		ToName:  contactName,
		Subject: subject(data.SenderName, tier),
		HTML:    buf.String(),
		Text:    r.SMS(sender, tier, c, sentAt, false),
	}
	if c.Audio != nil {
		e.Attachments = append(e.Attachments, notify.Attachment{
			Filename: "emergency-audio" + extension(c.Audio.MimeType),
			MimeType: c.Audio.MimeType,
			Data:     c.Audio.Data,
		})
	}
	if c.Photo != nil {
		e.Attachments = append(e.Attachments, notify.Attachment{
			Filename: "emergency-photo" + extension(c.Photo.MimeType),
			MimeType: c.Photo.MimeType,
			Data:     c.Photo.Data,
		})
	}
	return e, nil
}

// SMS renders the condensed text. mediaByEmail adds a pointer to the email
// when audio or a photo could not travel by text.
func (r *Renderer) SMS(sender alert.Sender, tier int, c alert.Context, sentAt time.Time, mediaByEmail bool) string {
	var b strings.Builder
	b.WriteString("EMERGENCY ALERT: ")
	b.WriteString(senderName(sender))
	b.WriteString(" needs help.")
	if tier > alert.MinTier {
		fmt.Fprintf(&b, " (Tier %d escalation, earlier contacts did not respond)", tier)
	}
	if c.Message != "" {
		fmt.Fprintf(&b, " Message: %q.", c.Message)
	}
	if c.Location != nil {
		b.WriteString(" Location: ")
		b.WriteString(c.Location.MapLink())
	}
	fmt.Fprintf(&b, " Sent %s.", r.formatTime(sender, sentAt))
	if mediaByEmail && c.HasMedia() {
		b.WriteString(" Audio/photo sent by email.")
	}
	if len(r.numbers) > 0 {
		n := r.numbers[0]
		fmt.Fprintf(&b, " If you cannot reach them call %s %s.", n.Label, n.Number)
	}
	return b.String()
}

func (r *Renderer) formatTime(sender alert.Sender, t time.Time) string {
	loc := r.defaultLoc
	if sender.TimeZone != "" {
		if l, err := time.LoadLocation(sender.TimeZone); err == nil {
			loc = l
		}
	}
	return t.In(loc).Format("Mon 2 Jan 2006, 15:04 MST")
}

func senderName(s alert.Sender) string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return fallbackSenderName
}

func subject(name string, tier int) string {
	if tier > alert.MinTier {
		return fmt.Sprintf("🚨 ESCALATED EMERGENCY ALERT (Tier %d): %s needs help", tier, name)
	}
	return fmt.Sprintf("🚨 EMERGENCY ALERT: %s needs help", name)
}

func extension(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch base {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/webm", "video/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}

const emailTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #dc2626; color: #ffffff; padding: 20px; text-align: center;">
    <h1 style="margin: 0;">🚨 EMERGENCY SAFETY ALERT</h1>
  </div>
  {{- if .Escalated}}
  <div style="background: #fef3c7; color: #92400e; padding: 12px; font-weight: bold;">
    Tier {{.Tier}} escalation: higher-priority contacts have not responded.
  </div>
  {{- end}}
  <div style="padding: 20px; background: #fef2f2;">
    {{- if .ContactName}}
    <p>Dear {{.ContactName}},</p>
    {{- end}}
    <p style="font-size: 18px;"><strong>{{.SenderName}}</strong> has triggered an emergency alert and may need immediate help.</p>
    <p><strong>Time:</strong> {{.Time}}</p>
    {{- if .SenderEmail}}
    <p><strong>Contact:</strong> {{.SenderEmail}}</p>
    {{- end}}
    {{- if .MapLink}}
    <p><strong>Location:</strong> <a href="{{.MapLink}}">View on map</a></p>
    {{- end}}
    {{- if .Message}}
    <p><strong>Message:</strong> {{.Message}}</p>
    {{- end}}
    {{- if or .HasAudio .HasPhoto}}
    <p><strong>Attached:</strong>{{if .HasAudio}} ambient audio recording{{end}}{{if and .HasAudio .HasPhoto}},{{end}}{{if .HasPhoto}} photo{{end}}</p>
    {{- end}}
  </div>
  <div style="padding: 20px; background: #ffffff; border: 1px solid #e5e7eb;">
    <h3 style="margin-top: 0;">What to do</h3>
    <ol>
      <li>Try to contact {{.SenderName}} immediately.</li>
      <li>If you cannot reach them, or believe they are in danger, call emergency services:</li>
    </ol>
    <ul>
      {{- range .Numbers}}
      <li><strong>{{.Label}}:</strong> {{.Number}}</li>
      {{- end}}
    </ul>
  </div>
  <p style="color: #6b7280; font-size: 12px; text-align: center;">You are receiving this because {{.SenderName}} listed you as a trusted contact.</p>
</body>
</html>
`
