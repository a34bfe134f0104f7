package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), dataDir)
	require.NoError(t, err)

	want := DefaultConfig()
	want.DataDir = dataDir
	assert.Equal(t, &want, cfg)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Feed.TickInterval)
	assert.Equal(t, 5, cfg.Feed.Capacity)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9090"
  allowed_origins: ["http://localhost:3000"]
feed:
  tick_interval: 2s
  seed: 42
  customers: ["Ada", "Grace"]
live:
  connect_delay: 250ms
redis:
  addr: "localhost:6379"
journal:
  enabled: false
`)
	dataDir := t.TempDir()

	cfg, err := Load(path, dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir, "data dir comes from the caller")
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Feed.TickInterval)
	assert.Equal(t, uint64(42), cfg.Feed.Seed)
	assert.Equal(t, []string{"Ada", "Grace"}, cfg.Feed.Customers)
	assert.Equal(t, 250*time.Millisecond, cfg.Live.ConnectDelay)
	assert.True(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Journal.Enabled)

	// unset values keep their defaults
	assert.Equal(t, 5, cfg.Feed.Capacity)
	assert.Equal(t, time.Second, cfg.Live.ReconnectDelay)
	assert.Equal(t, "shoppulse:snapshots", cfg.Redis.Channel)
	assert.Equal(t, 1000, cfg.Journal.MaxEntries)
}

func TestLoad_ZeroValuesFallBackToDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ""
feed:
  capacity: 0
redis:
  channel: ""
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Feed.Capacity)
	assert.Equal(t, "shoppulse:snapshots", cfg.Redis.Channel)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "feed: [not a map")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
feed:
  capacity: -1
`)

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoad_RequiresDataDir(t *testing.T) {
	_, err := Load("", "")
	require.Error(t, err)
}

func TestConfig_JournalFile(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/shoppulse"}
	assert.Equal(t, filepath.Join("/var/lib/shoppulse", "activity.jsonl"), cfg.JournalFile())
}
