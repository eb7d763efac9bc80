// Package alert holds the payload and result types shared by the escalation
// coordinator, the delivery dispatcher and the HTTP boundary between them.
package alert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Tier bounds. Tier 1 is notified first.
const (
	MinTier = 1
	MaxTier = 3
)

var (
	// ErrNoContacts means the user has no high-threat contacts in any tier.
	// It is a hard failure, distinct from an empty tier.
	ErrNoContacts = errors.New("no trusted contacts configured")

	// ErrInvalidRequest marks a malformed tier-notification request.
	ErrInvalidRequest = errors.New("invalid alert request")
)

// NoContactsMessage is shown to users who have nobody to notify.
const NoContactsMessage = "No trusted contacts configured"

// Media is one captured binary artifact (an audio clip or a photo).
type Media struct {
	Data     []byte
	MimeType string
}

// Location is a geolocation fix. Link, when set, is used as-is instead of
// building a map link from the coordinates.
type Location struct {
	Latitude  float64
	Longitude float64
	Link      string
}

// MapLink returns a navigable map URL for the location.
func (l Location) MapLink() string {
	if l.Link != "" {
		return l.Link
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%s,%s",
		strconv.FormatFloat(l.Latitude, 'f', 6, 64),
		strconv.FormatFloat(l.Longitude, 'f', 6, 64))
}

// String renders the location the way it travels on the wire.
func (l Location) String() string {
	if l.Link != "" {
		return l.Link
	}
	return strconv.FormatFloat(l.Latitude, 'f', 6, 64) + "," +
		strconv.FormatFloat(l.Longitude, 'f', 6, 64)
}

// ParseLocation accepts either "lat,lng" or an http(s) link.
func ParseLocation(s string) (*Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return &Location{Link: s}, nil
	}

	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("location %q: want \"lat,lng\" or a URL", s)
	}
	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || latF < -90 || latF > 90 {
		return nil, fmt.Errorf("location %q: invalid latitude", s)
	}
	lngF, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil || lngF < -180 || lngF > 180 {
		return nil, fmt.Errorf("location %q: invalid longitude", s)
	}
	return &Location{Latitude: latF, Longitude: lngF}, nil
}

// Context is the situational evidence attached to every tier of one
// activation. Nil fields were not captured. A Context is never mutated
// after the coordinator builds it.
type Context struct {
	Message  string
	Location *Location
	Audio    *Media
	Photo    *Media
}

// HasMedia reports whether audio or a photo was captured.
func (c Context) HasMedia() bool {
	return c.Audio != nil || c.Photo != nil
}

// Sender identifies the person raising the alert.
type Sender struct {
	UserID   string
	Name     string
	Email    string
	TimeZone string
}

// Outcome is the dispatcher's report for one tier-notification attempt.
type Outcome struct {
	Tier               int  `json:"tier"`
	ContactsFound      int  `json:"contacts_found"`
	ContactsReached    int  `json:"contacts_reached"`
	EmailSuccess       int  `json:"email_success"`
	EmailFailed        int  `json:"email_failed"`
	SMSSuccess         int  `json:"sms_success"`
	SMSFailed          int  `json:"sms_failed"`
	SMSSkipped         bool `json:"sms_skipped,omitempty"`
	NextTiersAvailable bool `json:"next_tiers_available"`
}

// Attempts returns the number of channel sends that were actually tried.
func (o Outcome) Attempts() int {
	return o.EmailSuccess + o.EmailFailed + o.SMSSuccess + o.SMSFailed
}
