package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_NoSources(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	var want Config
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(&want, cfg))
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeTemp(t, "cfg.json", `{
		"server_url": "http://tk.example:9000",
		"cache_ttl": "2m",
		"status_poll_interval": 10000000000,
		"max_retries": 5
	}`)

	cfg, err := LoadConfig(newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "http://tk.example:9000", cfg.ServerURL)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.StatusPollInterval)
	assert.Equal(t, 5, cfg.MaxRetries)
	// untouched keys keep their defaults
	assert.Equal(t, ConnectivityProbe, cfg.Connectivity)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeTemp(t, "cfg.toml", `
server_url = "http://toml.example"
connectivity = "websocket"
sync_interval = "1m"
`)

	cfg, err := LoadConfig(newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "http://toml.example", cfg.ServerURL)
	assert.Equal(t, ConnectivityWebsocket, cfg.Connectivity)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
}

func TestLoadConfig_FlagsWinOverFile(t *testing.T) {
	path := writeTemp(t, "cfg.json", `{"server_url": "http://file", "state_path": "/tmp/file.db"}`)

	cfg, err := LoadConfig(newFlags(t, "--config", path, "--server", "http://flag"))
	require.NoError(t, err)

	assert.Equal(t, "http://flag", cfg.ServerURL)
	assert.Equal(t, "/tmp/file.db", cfg.StatePath, "unset flags must not reset file values")
}

func TestLoadConfig_UpdatesEnabled(t *testing.T) {
	cfg, err := LoadConfig(newFlags(t))
	require.NoError(t, err)
	assert.False(t, cfg.UpdatesEnabled)

	path := writeTemp(t, "cfg.toml", "updates_enabled = true\n")
	cfg, err = LoadConfig(newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.True(t, cfg.UpdatesEnabled)

	cfg, err = LoadConfig(newFlags(t, "--config", path, "--enable-updates=false"))
	require.NoError(t, err)
	assert.False(t, cfg.UpdatesEnabled, "an explicit flag wins over the file")
}

func TestLoadConfig_Offline(t *testing.T) {
	cfg, err := LoadConfig(newFlags(t, "--offline"))
	require.NoError(t, err)
	assert.Equal(t, ConnectivityOffline, cfg.Connectivity)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.json")))
		assert.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := writeTemp(t, "bad.json", `{ this is not valid json`)
		_, err := LoadConfig(newFlags(t, "--config", path))
		assert.Error(t, err)
	})

	t.Run("invalid duration", func(t *testing.T) {
		path := writeTemp(t, "bad.toml", `cache_ttl = "soon"`)
		_, err := LoadConfig(newFlags(t, "--config", path))
		assert.Error(t, err)
	})

	t.Run("invalid connectivity", func(t *testing.T) {
		_, err := LoadConfig(newFlags(t, "--connectivity", "smoke-signals"))
		assert.Error(t, err)
	})
}
