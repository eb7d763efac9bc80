package contacts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oklog/ulid/v2"
)

const contactColumns = `id, user_id, name, phone, email, tier, notify_on_high_threat, notify_on_incident`

// HighThreatContacts implements TierLookup.
func (s *SQLiteStore) HighThreatContacts(ctx context.Context, userID string, tier int) ([]*Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM trusted_contacts
		WHERE user_id = ? AND tier = ? AND notify_on_high_threat = 1
		ORDER BY name, id
	`

	rows, err := s.conn.QueryContext(ctx, query, userID, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to query tier %d contacts: %w", tier, err)
	}
	defer rows.Close()

	return scanContacts(rows)
}

// HasHighThreatContacts implements TierLookup.
func (s *SQLiteStore) HasHighThreatContacts(ctx context.Context, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trusted_contacts
			WHERE user_id = ? AND notify_on_high_threat = 1
		)
	`

	var exists bool
	if err := s.conn.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check contacts: %w", err)
	}
	return exists, nil
}

// HasContactsAbove implements TierLookup.
func (s *SQLiteStore) HasContactsAbove(ctx context.Context, userID string, tier int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM trusted_contacts
			WHERE user_id = ? AND tier > ? AND notify_on_high_threat = 1
		)
	`

	var exists bool
	if err := s.conn.QueryRowContext(ctx, query, userID, tier).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check tiers above %d: %w", tier, err)
	}
	return exists, nil
}

// Save inserts or replaces a contact. A missing ID is generated.
// Only the import command writes; the escalation engine never does.
func (s *SQLiteStore) Save(ctx context.Context, c *Contact) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = ulid.Make().String()
	}

	query := `
		INSERT INTO trusted_contacts (` + contactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			tier = excluded.tier,
			notify_on_high_threat = excluded.notify_on_high_threat,
			notify_on_incident = excluded.notify_on_incident
	`

	_, err := s.conn.ExecContext(ctx, query,
		c.ID,
		c.UserID,
		c.Name,
		nullString(c.Phone),
		nullString(c.Email),
		c.Tier,
		c.NotifyOnHighThreat,
		c.NotifyOnIncident,
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

// ListByUser returns every contact of a user ordered by tier.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]*Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM trusted_contacts
		WHERE user_id = ?
		ORDER BY tier, name, id
	`

	rows, err := s.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	return scanContacts(rows)
}

func scanContacts(rows *sql.Rows) ([]*Contact, error) {
	var out []*Contact
	for rows.Next() {
		var (
			c            Contact
			phone, email sql.NullString
		)
		err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.Name,
			&phone,
			&email,
			&c.Tier,
			&c.NotifyOnHighThreat,
			&c.NotifyOnIncident,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		c.Phone = phone.String
		c.Email = email.String
		out = append(out, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
