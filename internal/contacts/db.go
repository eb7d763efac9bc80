// Package contacts stores trusted contacts and answers the tier queries the
// delivery dispatcher runs for every escalation step.
package contacts

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a contacts store backed by SQLite.
type SQLiteStore struct {
	conn *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// It enables WAL mode for file databases and runs migrations.
func Open(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// :memory: gives every pooled connection its own database
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	} else if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS trusted_contacts (
    id                    TEXT PRIMARY KEY,
    user_id               TEXT NOT NULL,
    name                  TEXT NOT NULL,
    phone                 TEXT,
    email                 TEXT,
    tier                  INTEGER NOT NULL DEFAULT 1 CHECK (tier BETWEEN 1 AND 3),
    notify_on_high_threat INTEGER NOT NULL DEFAULT 1,
    notify_on_incident    INTEGER NOT NULL DEFAULT 1,
    created_at            DATETIME DEFAULT CURRENT_TIMESTAMP,
    CHECK (COALESCE(phone, '') <> '' OR COALESCE(email, '') <> '')
);

CREATE INDEX IF NOT EXISTS idx_contacts_user_tier ON trusted_contacts(user_id, tier);
`

	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
