// Package config handles configuration loading and validation for shoppulse.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Feed    FeedConfig    `yaml:"feed"`
	Live    LiveConfig    `yaml:"live"`
	Redis   RedisConfig   `yaml:"redis"`
	Journal JournalConfig `yaml:"journal"`
	DataDir string        `yaml:"-"` // set by caller, not from config file
}

// ServerConfig configures the HTTP endpoints of `shoppulse serve`.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// FeedConfig configures the aggregator and its synthetic data.
type FeedConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Capacity     int           `yaml:"capacity"`
	// Seed fixes the random source. Zero picks a random seed.
	Seed        uint64   `yaml:"seed"`
	Customers   []string `yaml:"customers"`
	Technicians []string `yaml:"technicians"`
}

// LiveConfig configures consumer connections.
type LiveConfig struct {
	ConnectDelay   time.Duration `yaml:"connect_delay"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// RedisConfig configures the optional snapshot relay. An empty Addr disables it.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Channel   string `yaml:"channel"`
	LatestKey string `yaml:"latest_key"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// JournalConfig configures the activity journal.
type JournalConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			WriteTimeout:   10 * time.Second,
		},
		Feed: FeedConfig{
			TickInterval: 5 * time.Second,
			Capacity:     5,
		},
		Live: LiveConfig{
			ConnectDelay:   time.Second,
			ReconnectDelay: time.Second,
		},
		Redis: RedisConfig{
			Channel:   "shoppulse:snapshots",
			LatestKey: "shoppulse:latest",
		},
		Journal: JournalConfig{
			Enabled:    true,
			MaxEntries: 1000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Feed.TickInterval == 0 {
		c.Feed.TickInterval = defaults.Feed.TickInterval
	}
	if c.Feed.Capacity == 0 {
		c.Feed.Capacity = defaults.Feed.Capacity
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = defaults.Redis.Channel
	}
	if c.Redis.LatestKey == "" {
		c.Redis.LatestKey = defaults.Redis.LatestKey
	}
	if c.Journal.MaxEntries == 0 {
		c.Journal.MaxEntries = defaults.Journal.MaxEntries
	}
}

// JournalFile returns the path of the activity journal.
func (c *Config) JournalFile() string {
	return filepath.Join(c.DataDir, "activity.jsonl")
}
