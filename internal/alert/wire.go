package alert

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Request is the dispatcher endpoint payload. Optional fields are pointers
// so that "not captured" survives the round trip.
type Request struct {
	UserID      string  `json:"userId" binding:"required"`
	UserName    string  `json:"userName"`
	UserEmail   string  `json:"userEmail"`
	Message     *string `json:"message,omitempty"`
	Location    *string `json:"location,omitempty"`
	AudioBase64 *string `json:"audioBase64,omitempty"`
	ImageBase64 *string `json:"imageBase64,omitempty"`
	Tier        int     `json:"tier" binding:"required,min=1,max=3"`
	TimeZone    string  `json:"timeZone,omitempty"`
}

// Response is the dispatcher endpoint result. On hard failure only Success
// and Message are meaningful.
type Response struct {
	Success            bool   `json:"success"`
	Message            string `json:"message,omitempty"`
	Tier               int    `json:"tier,omitempty"`
	NextTiersAvailable bool   `json:"nextTiersAvailable"`
	EmailSuccessCount  int    `json:"emailSuccessCount"`
	EmailFailedCount   int    `json:"emailFailedCount"`
	SMSSuccessCount    int    `json:"smsSuccessCount"`
	SMSFailedCount     int    `json:"smsFailedCount"`
	ContactsFound      int    `json:"contactsFound"`
	ContactsReached    int    `json:"contactsReached"`
	SMSSkipped         bool   `json:"smsSkipped,omitempty"`
}

// NewRequest encodes a sender, tier and context for the wire.
func NewRequest(sender Sender, tier int, c Context) Request {
	req := Request{
		UserID:    sender.UserID,
		UserName:  sender.Name,
		UserEmail: sender.Email,
		Tier:      tier,
		TimeZone:  sender.TimeZone,
	}
	if msg := strings.TrimSpace(c.Message); msg != "" {
		req.Message = &msg
	}
	if c.Location != nil {
		loc := c.Location.String()
		req.Location = &loc
	}
	if c.Audio != nil {
		s := encodeMedia(c.Audio)
		req.AudioBase64 = &s
	}
	if c.Photo != nil {
		s := encodeMedia(c.Photo)
		req.ImageBase64 = &s
	}
	return req
}

// Validate checks the fields the dispatcher cannot work without.
func (r Request) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if r.Tier < MinTier || r.Tier > MaxTier {
		return fmt.Errorf("%w: tier must be between %d and %d, got %d", ErrInvalidRequest, MinTier, MaxTier, r.Tier)
	}
	return nil
}

// Sender extracts the sender identity.
func (r Request) Sender() Sender {
	return Sender{
		UserID:   r.UserID,
		Name:     r.UserName,
		Email:    r.UserEmail,
		TimeZone: r.TimeZone,
	}
}

// Context decodes the optional payload fields.
func (r Request) Context() (Context, error) {
	var c Context
	if r.Message != nil {
		c.Message = strings.TrimSpace(*r.Message)
	}
	if r.Location != nil {
		loc, err := ParseLocation(*r.Location)
		if err != nil {
			return Context{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		c.Location = loc
	}
	if r.AudioBase64 != nil {
		m, err := decodeMedia(*r.AudioBase64, "audio/wav")
		if err != nil {
			return Context{}, fmt.Errorf("%w: audioBase64: %v", ErrInvalidRequest, err)
		}
		c.Audio = m
	}
	if r.ImageBase64 != nil {
		m, err := decodeMedia(*r.ImageBase64, "image/jpeg")
		if err != nil {
			return Context{}, fmt.Errorf("%w: imageBase64: %v", ErrInvalidRequest, err)
		}
		c.Photo = m
	}
	return c, nil
}

// ResponseFromOutcome builds the success payload.
func ResponseFromOutcome(o *Outcome) Response {
	return Response{
		Success:            true,
		Tier:               o.Tier,
		NextTiersAvailable: o.NextTiersAvailable,
		EmailSuccessCount:  o.EmailSuccess,
		EmailFailedCount:   o.EmailFailed,
		SMSSuccessCount:    o.SMSSuccess,
		SMSFailedCount:     o.SMSFailed,
		ContactsFound:      o.ContactsFound,
		ContactsReached:    o.ContactsReached,
		SMSSkipped:         o.SMSSkipped,
	}
}

// Outcome converts a successful response back into an Outcome.
func (r Response) Outcome() *Outcome {
	return &Outcome{
		Tier:               r.Tier,
		ContactsFound:      r.ContactsFound,
		ContactsReached:    r.ContactsReached,
		EmailSuccess:       r.EmailSuccessCount,
		EmailFailed:        r.EmailFailedCount,
		SMSSuccess:         r.SMSSuccessCount,
		SMSFailed:          r.SMSFailedCount,
		SMSSkipped:         r.SMSSkipped,
		NextTiersAvailable: r.NextTiersAvailable,
	}
}

// encodeMedia produces a data URL so the MIME type travels with the bytes.
func encodeMedia(m *Media) string {
	return "data:" + m.MimeType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}

// decodeMedia accepts a bare base64 string or a data URL.
func decodeMedia(s, fallbackType string) (*Media, error) {
	mimeType := ""
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, fmt.Errorf("malformed data URL")
		}
		mimeType, _, _ = strings.Cut(header, ";")
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
		if mimeType == "application/octet-stream" {
			mimeType = fallbackType
		}
	}
	return &Media{Data: data, MimeType: mimeType}, nil
}
