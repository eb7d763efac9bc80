package contacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *SQLiteStore, cs ...*Contact) {
	t.Helper()
	for _, c := range cs {
		require.NoError(t, s.Save(context.Background(), c))
	}
}

func TestOpen_WALMode(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "contacts.db"))
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.conn.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestHighThreatContacts_FiltersByUserTierAndFlag(t *testing.T) {
	s := openTestStore(t)
	seed(t, s,
		&Contact{UserID: "u1", Name: "Ama", Email: "ama@example.com", Tier: 1, NotifyOnHighThreat: true},
		&Contact{UserID: "u1", Name: "Ben", Phone: "+27820000001", Tier: 1, NotifyOnHighThreat: false},
		&Contact{UserID: "u1", Name: "Cleo", Phone: "+27820000002", Tier: 2, NotifyOnHighThreat: true},
		&Contact{UserID: "u2", Name: "Dan", Email: "dan@example.com", Tier: 1, NotifyOnHighThreat: true},
	)

	got, err := s.HighThreatContacts(context.Background(), "u1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ama", got[0].Name)
	assert.Equal(t, "", got[0].Phone)
	assert.NotEmpty(t, got[0].ID)
}

func TestHasHighThreatContacts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	has, err := s.HasHighThreatContacts(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, has)

	seed(t, s, &Contact{UserID: "u1", Name: "Ama", Email: "ama@example.com", Tier: 3, NotifyOnHighThreat: true})

	has, err = s.HasHighThreatContacts(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestHasContactsAbove_IgnoresEmptyMiddleTier(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seed(t, s,
		&Contact{UserID: "u1", Name: "Ama", Email: "ama@example.com", Tier: 1, NotifyOnHighThreat: true},
		&Contact{UserID: "u1", Name: "Zola", Email: "zola@example.com", Tier: 3, NotifyOnHighThreat: true},
	)

	above1, err := s.HasContactsAbove(ctx, "u1", 1)
	require.NoError(t, err)
	assert.True(t, above1)

	above2, err := s.HasContactsAbove(ctx, "u1", 2)
	require.NoError(t, err)
	assert.True(t, above2)

	above3, err := s.HasContactsAbove(ctx, "u1", 3)
	require.NoError(t, err)
	assert.False(t, above3)
}

func TestSave_RejectsInvalid(t *testing.T) {
	s := openTestStore(t)

	err := s.Save(context.Background(), &Contact{UserID: "u1", Name: "Nobody", Tier: 1})
	assert.ErrorContains(t, err, "phone or email")

	err = s.Save(context.Background(), &Contact{UserID: "u1", Name: "Far", Email: "far@example.com", Tier: 4})
	assert.ErrorContains(t, err, "tier")
}

func TestSave_UpdatesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := &Contact{UserID: "u1", Name: "Ama", Email: "ama@example.com", Tier: 1, NotifyOnHighThreat: true}
	seed(t, s, c)

	c.Tier = 2
	require.NoError(t, s.Save(ctx, c))

	all, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].Tier)
}

func TestQueriesFailAfterClose(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.HighThreatContacts(context.Background(), "u1", 1)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	doc := `
user_id: u1
contacts:
  - name: Ama
    email: ama@example.com
  - name: Cleo
    phone: "+27820000002"
    tier: 2
    notify_on_high_threat: false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "u1", got[0].UserID)
	assert.Equal(t, 1, got[0].Tier)
	assert.True(t, got[0].NotifyOnHighThreat)

	assert.Equal(t, 2, got[1].Tier)
	assert.False(t, got[1].NotifyOnHighThreat)
	assert.True(t, got[1].NotifyOnIncident)
}

func TestLoadFile_InvalidContact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: u1\ncontacts:\n  - name: Ghost\n"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
