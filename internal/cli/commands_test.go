package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv writes a config file in a temp dir and clears overrides that
// would leak in from the environment.
func testEnv(t *testing.T, extra string) string {
	t.Helper()
	for _, v := range []string{
		"GUARDIAN_USER_ID", "GUARDIAN_DB", "GUARDIAN_TIER_DELAY",
		"GUARDIAN_DISPATCHER_URL", "GUARDIAN_EMAIL_PROVIDER", "GUARDIAN_SMS_PROVIDER",
		"GUARDIAN_LOG_LEVEL", "GUARDIAN_LOG_FILE",
	} {
		t.Setenv(v, "")
	}

	dir := t.TempDir()
	doc := `user:
  id: u1
  name: Thandi
store:
  path: contacts.db
escalation:
  tier_delay: 1h
log:
  level: error
  format: json
` + extra
	path := filepath.Join(dir, ".guardian.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func writeContacts(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := New()
	out := new(bytes.Buffer)
	app.Root().SetOut(out)
	app.Root().SetErr(new(bytes.Buffer))
	app.Root().SetArgs(args)
	err := app.Execute()
	return out.String(), err
}

const tierOneOnly = `
user_id: u1
contacts:
  - name: Ama
    email: ama@example.com
  - name: Ben
    email: ben@example.com
    phone: "+27820000001"
`

func TestContactsImportAndList(t *testing.T) {
	cfgPath := testEnv(t, "")

	out, err := execute(t, "-c", cfgPath, "contacts", "import", writeContacts(t, `
user_id: u1
contacts:
  - name: Zola
    email: zola@example.com
    tier: 3
  - name: Ama
    email: ama@example.com
`))
	require.NoError(t, err)
	assert.Equal(t, "Imported 2 contact(s)\n", out)
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), "contacts.db"))

	out, err = execute(t, "-c", cfgPath, "contacts", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "TIER")
	assert.Contains(t, lines[1], "Ama")
	assert.Contains(t, lines[2], "Zola")
	assert.Contains(t, lines[2], "-")
}

func TestContactsList_Empty(t *testing.T) {
	cfgPath := testEnv(t, "")

	out, err := execute(t, "-c", cfgPath, "contacts", "list", "--user", "nobody")
	require.NoError(t, err)
	assert.Equal(t, "No trusted contacts configured\n", out)
}

func TestContactsImport_InvalidFile(t *testing.T) {
	cfgPath := testEnv(t, "")

	_, err := execute(t, "-c", cfgPath, "contacts", "import", writeContacts(t, "user_id: u1\ncontacts:\n  - name: Ghost\n"))
	assert.ErrorContains(t, err, "phone or email")
}

func jsonEventTypes(t *testing.T, out string) []string {
	t.Helper()
	var types []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var evt struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &evt), sc.Text())
		types = append(types, evt.Type)
	}
	return types
}

func TestAlertJSON_SingleTierEndsImmediately(t *testing.T) {
	cfgPath := testEnv(t, "")
	_, err := execute(t, "-c", cfgPath, "contacts", "import", writeContacts(t, tierOneOnly))
	require.NoError(t, err)

	out, err := execute(t, "-c", cfgPath, "alert", "--json", "-m", "Followed home", "--location", "-26.2041,28.0473")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"session.started",
		"context.captured",
		"tier.dispatching",
		"tier.notified",
		"session.exhausted",
	}, jsonEventTypes(t, out))
}

func TestAlertJSON_NoContacts(t *testing.T) {
	cfgPath := testEnv(t, "")

	out, err := execute(t, "-c", cfgPath, "alert", "--json", "-m", "help")
	require.ErrorIs(t, err, ErrNotDelivered)
	assert.ErrorContains(t, err, "No trusted contacts configured")

	types := jsonEventTypes(t, out)
	require.NotEmpty(t, types)
	assert.Equal(t, "session.exhausted", types[len(types)-1])
	assert.NotContains(t, types, "tier.armed")
}

func TestAlert_RequiresUser(t *testing.T) {
	cfgPath := testEnv(t, "")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  path: contacts.db\n"), 0o644))

	_, err := execute(t, "-c", cfgPath, "alert", "--json")
	assert.ErrorContains(t, err, "no user configured")
}

func TestAlert_BadLocation(t *testing.T) {
	cfgPath := testEnv(t, "")

	_, err := execute(t, "-c", cfgPath, "alert", "--json", "--location", "north")
	assert.ErrorContains(t, err, "--location")
}

func TestEmergencyNumbers(t *testing.T) {
	cfgPath := testEnv(t, `dispatch:
  emergency_numbers:
    - label: Police
      number: "10111"
`)
	app := New()
	app.configPath = cfgPath
	cfg, err := app.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"Police: 10111"}, emergencyNumbers(cfg))
}

func TestLoadConfig_VerboseForcesDebug(t *testing.T) {
	cfgPath := testEnv(t, "")
	app := New()
	app.configPath = cfgPath
	app.verbose = true

	cfg, err := app.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}
