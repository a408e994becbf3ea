package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, msg, err := Load("")
	require.NoError(t, err)
	require.Contains(t, msg, "default")
	require.Equal(t, "8000", c.Server.Port)
	require.Equal(t, 60, c.Auth.TokenTTLMinutes)
	require.Equal(t, 5, c.Query.RateLimitPerMinute)
	require.Equal(t, 5, c.Query.SuggestionLimit)
	require.Equal(t, 3, c.Client.MinSuggestionLength)
	require.Equal(t, "http://127.0.0.1:8000", c.Client.APIURL)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lookupdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
query:
  rate_limit_per_minute: 2
database:
  path: ~/data/lookup.db
`), 0o600))
	t.Setenv("LOOKUPDESK_CLIENT_API_URL", "http://lookup.internal:9090")

	c, msg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, msg, path)
	require.Equal(t, "9090", c.Server.Port)
	require.Equal(t, 2, c.Query.RateLimitPerMinute)
	require.Equal(t, "http://lookup.internal:9090", c.Client.APIURL)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "data", "lookup.db"), c.Database.Path)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
