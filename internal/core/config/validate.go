package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/shoppulse/internal/core/feed"
)

// minTickInterval is the shortest tick interval that does not produce a warning.
const minTickInterval = time.Second

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate performs the cheap checks run on every load.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", errors.New("data directory cannot be empty"))
	}
	if c.Server.Addr == "" {
		errs = errs.Append("server.addr", errors.New("cannot be empty"))
	}
	if c.Server.WriteTimeout < 0 {
		errs = errs.Append("server.write_timeout", errors.New("cannot be negative"))
	}
	if c.Feed.TickInterval <= 0 {
		errs = errs.Append("feed.tick_interval", errors.New("must be positive"))
	}
	if c.Feed.Capacity < 1 {
		errs = errs.Append("feed.capacity", errors.New("must be at least 1"))
	}
	if c.Live.ConnectDelay < 0 {
		errs = errs.Append("live.connect_delay", errors.New("cannot be negative"))
	}
	if c.Live.ReconnectDelay < 0 {
		errs = errs.Append("live.reconnect_delay", errors.New("cannot be negative"))
	}
	if c.Journal.MaxEntries < 1 {
		errs = errs.Append("journal.max_entries", errors.New("must be at least 1"))
	}

	return errs.ToError()
}

// ValidateDeep performs comprehensive validation of the configuration.
// Unlike Validate(), this checks file access, listen and dial addresses, CORS
// origins and the name lists used by the generator.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	if err := c.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = errs.Append(fe.Field, fe.Err)
		}
	}

	errs = c.validateFileAccess(errs, configPath)
	errs = c.validateServer(errs)
	errs = c.validateNames(errs, "feed.customers", c.Feed.Customers)
	errs = c.validateNames(errs, "feed.technicians", c.Feed.Technicians)
	errs = c.validateRedis(errs)

	return errs.ToError()
}

// Warnings returns non-fatal issues with the configuration.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Feed.TickInterval > 0 && c.Feed.TickInterval < minTickInterval {
		warnings = append(warnings, ValidationWarning{
			Category: "Feed",
			Item:     "tick_interval",
			Message:  fmt.Sprintf("%s is very short; dashboards will redraw constantly", c.Feed.TickInterval),
		})
	}

	if c.Feed.Capacity > feed.MaxRecent {
		warnings = append(warnings, ValidationWarning{
			Category: "Feed",
			Item:     "capacity",
			Message:  fmt.Sprintf("dashboards display %d recent activities; %d will be sent", feed.MaxRecent, c.Feed.Capacity),
		})
	}

	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Feed.TickInterval/10 {
		warnings = append(warnings, ValidationWarning{
			Category: "Server",
			Item:     "write_timeout",
			Message:  "write timeout is short relative to the tick interval; slow clients will be dropped",
		})
	}

	for _, origin := range c.Server.AllowedOrigins {
		if origin == "*" {
			warnings = append(warnings, ValidationWarning{
				Category: "Server",
				Item:     "allowed_origins",
				Message:  "any origin may open live connections",
			})
			break
		}
	}

	if !c.Journal.Enabled {
		warnings = append(warnings, ValidationWarning{
			Category: "Journal",
			Message:  "journal is disabled; `shoppulse history` will be empty",
		})
	}

	return warnings
}

// validateFileAccess checks the config file and the data directory.
func (c *Config) validateFileAccess(errs criterio.FieldErrorsBuilder, configPath string) criterio.FieldErrorsBuilder {
	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			if info.IsDir() {
				errs = errs.Append("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("config_file", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil {
			if !info.IsDir() {
				errs = errs.Append("data_dir", fmt.Errorf("%s exists but is not a directory", c.DataDir))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("data_dir", fmt.Errorf("cannot access %s: %w", c.DataDir, err))
		}
	}

	return errs
}

// validateServer checks the listen address and CORS origins.
func (c *Config) validateServer(errs criterio.FieldErrorsBuilder) criterio.FieldErrorsBuilder {
	if c.Server.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			errs = errs.Append("server.addr", fmt.Errorf("invalid listen address %q: %w", c.Server.Addr, err))
		}
	}

	for i, origin := range c.Server.AllowedOrigins {
		field := fmt.Sprintf("server.allowed_origins[%d]", i)
		if origin == "" {
			errs = errs.Append(field, errors.New("cannot be empty"))
			continue
		}
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = errs.Append(field, fmt.Errorf("invalid origin %q, expected scheme://host", origin))
		}
	}

	return errs
}

// validateNames checks a generator name list for blanks and duplicates.
func (c *Config) validateNames(errs criterio.FieldErrorsBuilder, field string, names []string) criterio.FieldErrorsBuilder {
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		item := fmt.Sprintf("%s[%d]", field, i)
		if name == "" {
			errs = errs.Append(item, errors.New("cannot be empty"))
			continue
		}
		if seen[name] {
			errs = errs.Append(item, fmt.Errorf("duplicate name %q", name))
			continue
		}
		seen[name] = true
	}
	return errs
}

// validateRedis checks the relay settings when the relay is enabled.
func (c *Config) validateRedis(errs criterio.FieldErrorsBuilder) criterio.FieldErrorsBuilder {
	if !c.Redis.Enabled() {
		return errs
	}

	if _, _, err := net.SplitHostPort(c.Redis.Addr); err != nil {
		errs = errs.Append("redis.addr", fmt.Errorf("invalid address %q: %w", c.Redis.Addr, err))
	}
	if c.Redis.DB < 0 {
		errs = errs.Append("redis.db", errors.New("cannot be negative"))
	}
	if c.Redis.Channel == c.Redis.LatestKey {
		errs = errs.Append("redis.latest_key", errors.New("must differ from redis.channel"))
	}

	return errs
}
