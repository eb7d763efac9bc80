package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RevCBH/guardian/internal/alert"
)

// Contact is a person the account owner trusts to be notified.
type Contact struct {
	ID                 string `yaml:"id"`
	UserID             string `yaml:"user_id"`
	Name               string `yaml:"name"`
	Phone              string `yaml:"phone,omitempty"`
	Email              string `yaml:"email,omitempty"`
	Tier               int    `yaml:"tier"`
	NotifyOnHighThreat bool   `yaml:"notify_on_high_threat"`
	NotifyOnIncident   bool   `yaml:"notify_on_incident"`
}

// HasEmail reports whether the email channel can reach this contact.
func (c *Contact) HasEmail() bool {
	return strings.TrimSpace(c.Email) != ""
}

// HasPhone reports whether the SMS channel can reach this contact.
func (c *Contact) HasPhone() bool {
	return strings.TrimSpace(c.Phone) != ""
}

// Validate enforces the record invariants: a reachable address and a tier
// in range.
func (c *Contact) Validate() error {
	var errs []error
	if c.UserID == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	if !c.HasEmail() && !c.HasPhone() {
		errs = append(errs, errors.New("at least one of phone or email is required"))
	}
	if c.Tier < alert.MinTier || c.Tier > alert.MaxTier {
		errs = append(errs, fmt.Errorf("tier must be between %d and %d, got %d", alert.MinTier, alert.MaxTier, c.Tier))
	}
	if len(errs) > 0 {
		return fmt.Errorf("contact %q: %w", c.Name, errors.Join(errs...))
	}
	return nil
}

// TierLookup is the read-only view the dispatcher needs. The lookups are
// logically independent and scoped to one user.
type TierLookup interface {
	// HighThreatContacts returns the user's contacts in the given tier that
	// opted into high-threat alerts.
	HighThreatContacts(ctx context.Context, userID string, tier int) ([]*Contact, error)

	// HasHighThreatContacts reports whether the user has any high-threat
	// contact in any tier.
	HasHighThreatContacts(ctx context.Context, userID string) (bool, error)

	// HasContactsAbove reports whether any high-threat contact exists at a
	// tier strictly greater than the given one.
	HasContactsAbove(ctx context.Context, userID string, tier int) (bool, error)
}
