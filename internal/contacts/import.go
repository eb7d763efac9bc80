package contacts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile parses the YAML document accepted by `guardian contacts import`.
// Entries inherit the file's user_id and default to tier 1 with both
// notification flags on.
func LoadFile(path string) ([]*Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contacts file: %w", err)
	}

	var raw struct {
		UserID   string `yaml:"user_id"`
		Contacts []struct {
			ID                 string `yaml:"id"`
			Name               string `yaml:"name"`
			Phone              string `yaml:"phone"`
			Email              string `yaml:"email"`
			Tier               *int   `yaml:"tier"`
			NotifyOnHighThreat *bool  `yaml:"notify_on_high_threat"`
			NotifyOnIncident   *bool  `yaml:"notify_on_incident"`
		} `yaml:"contacts"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse contacts file: %w", err)
	}

	out := make([]*Contact, 0, len(raw.Contacts))
	for _, rc := range raw.Contacts {
		c := &Contact{
			ID:                 rc.ID,
			UserID:             raw.UserID,
			Name:               rc.Name,
			Phone:              rc.Phone,
			Email:              rc.Email,
			Tier:               1,
			NotifyOnHighThreat: true,
			NotifyOnIncident:   true,
		}
		if rc.Tier != nil {
			c.Tier = *rc.Tier
		}
		if rc.NotifyOnHighThreat != nil {
			c.NotifyOnHighThreat = *rc.NotifyOnHighThreat
		}
		if rc.NotifyOnIncident != nil {
			c.NotifyOnIncident = *rc.NotifyOnIncident
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
