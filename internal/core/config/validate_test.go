package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func fieldNames(fieldErrs criterio.FieldErrors) []string {
	names := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		names = append(names, fe.Field)
	}
	return names
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = "" }, field: "data_dir"},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, field: "server.addr"},
		{name: "negative write timeout", mutate: func(c *Config) { c.Server.WriteTimeout = -time.Second }, field: "server.write_timeout"},
		{name: "zero tick interval", mutate: func(c *Config) { c.Feed.TickInterval = 0 }, field: "feed.tick_interval"},
		{name: "zero capacity", mutate: func(c *Config) { c.Feed.Capacity = 0 }, field: "feed.capacity"},
		{name: "negative connect delay", mutate: func(c *Config) { c.Live.ConnectDelay = -1 }, field: "live.connect_delay"},
		{name: "negative reconnect delay", mutate: func(c *Config) { c.Live.ReconnectDelay = -1 }, field: "live.reconnect_delay"},
		{name: "zero journal entries", mutate: func(c *Config) { c.Journal.MaxEntries = 0 }, field: "journal.max_entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Equal(t, []string{tt.field}, fieldNames(fieldErrs))
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "https://shop.example.com"}
	cfg.Feed.Customers = []string{"John Smith", "Sarah Johnson"}
	cfg.Feed.Technicians = []string{"Alex Turner"}
	cfg.Redis.Addr = "localhost:6379"

	err := cfg.ValidateDeep("")
	assert.NoError(t, err, "expected valid config")
}

func TestValidateDeep_CollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Feed.Capacity = 0
	cfg.Server.Addr = "8080"
	cfg.Feed.Customers = []string{"John Smith", ""}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.ElementsMatch(t,
		[]string{"feed.capacity", "server.addr", "feed.customers[1]"},
		fieldNames(fieldErrs),
	)
}

func TestValidateDeep_InvalidOrigin(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.AllowedOrigins = []string{"*", "localhost:3000"}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "server.allowed_origins[1]", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "invalid origin")
}

func TestValidateDeep_DuplicateTechnician(t *testing.T) {
	cfg := validConfig(t)
	cfg.Feed.Technicians = []string{"Alex Turner", "Maria Garcia", "Alex Turner"}

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "feed.technicians[2]", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "duplicate")
}

func TestValidateDeep_Redis(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "disabled relay is not checked",
			mutate: func(c *Config) { c.Redis.DB = -1 },
		},
		{
			name:   "address without port",
			mutate: func(c *Config) { c.Redis.Addr = "localhost" },
			fields: []string{"redis.addr"},
		},
		{
			name: "key collides with channel",
			mutate: func(c *Config) {
				c.Redis.Addr = "localhost:6379"
				c.Redis.LatestKey = c.Redis.Channel
			},
			fields: []string{"redis.latest_key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.ValidateDeep("")
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Equal(t, tt.fields, fieldNames(fieldErrs))
		})
	}
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

	cfg := validConfig(t)
	cfg.DataDir = tmpFile

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldNames(fieldErrs), "data_dir")
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := validConfig(t)

	err := cfg.ValidateDeep(tmpDir)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Contains(t, fieldNames(fieldErrs), "config_file")
}

func TestValidateDeep_MissingConfigFileIsFine(t *testing.T) {
	cfg := validConfig(t)

	err := cfg.ValidateDeep(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		category string
		contains string
	}{
		{
			name:     "short tick interval",
			mutate:   func(c *Config) { c.Feed.TickInterval = 100 * time.Millisecond },
			category: "Feed",
			contains: "very short",
		},
		{
			name:     "capacity above display size",
			mutate:   func(c *Config) { c.Feed.Capacity = 8 },
			category: "Feed",
			contains: "8 will be sent",
		},
		{
			name:     "wildcard origin",
			mutate:   func(c *Config) {},
			category: "Server",
			contains: "any origin",
		},
		{
			name:     "journal disabled",
			mutate:   func(c *Config) { c.Journal.Enabled = false },
			category: "Journal",
			contains: "history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			hasWarning := false
			for _, w := range cfg.Warnings() {
				if w.Category == tt.category && strings.Contains(w.Message, tt.contains) {
					hasWarning = true
					break
				}
			}
			assert.True(t, hasWarning, "expected %s warning containing %q", tt.category, tt.contains)
		})
	}
}

func TestWarnings_NoneForStrictConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.AllowedOrigins = []string{"https://shop.example.com"}

	assert.Empty(t, cfg.Warnings())
}
