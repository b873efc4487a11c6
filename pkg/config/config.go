// Package config loads panelmap settings from file, environment and defaults.
//
// Settings are read from config.toml in the user config directory
// ($XDG_CONFIG_HOME/panelmap or ~/.config/panelmap) or the working directory.
// Every key can be overridden by an environment variable with the PANELMAP_
// prefix, with dots replaced by underscores:
//
//	PANELMAP_MATCH_MAX_Y_DELTA=80
//	PANELMAP_CACHE_BACKEND=redis
//
// Command-line flags take precedence over both and are applied by the CLI.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/errors"
	"github.com/matzehuels/panelmap/pkg/layout"
	"github.com/matzehuels/panelmap/pkg/match"
)

const appName = "panelmap"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the complete set of settings.
type Config struct {
	Layout  LayoutConfig  `toml:"layout" mapstructure:"layout"`
	Match   MatchConfig   `toml:"match" mapstructure:"match"`
	Cache   CacheConfig   `toml:"cache" mapstructure:"cache"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Control ControlConfig `toml:"control" mapstructure:"control"`
}

// LayoutConfig configures frame assignment.
type LayoutConfig struct {
	// Precision is the number of decimals leading coordinates are rounded to.
	Precision int `toml:"precision" mapstructure:"precision"`
}

// MatchConfig configures window matching.
type MatchConfig struct {
	match.Tolerances `mapstructure:",squash"`

	// Owners limits candidates to windows owned by these applications.
	Owners []string `toml:"owners" mapstructure:"owners"`
}

// CacheConfig selects and configures the dump cache.
type CacheConfig struct {
	Backend       string `toml:"backend" mapstructure:"backend"`
	TTL           string `toml:"ttl" mapstructure:"ttl"`
	Dir           string `toml:"dir,omitempty" mapstructure:"dir"`
	RedisAddr     string `toml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `toml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `toml:"redis_db" mapstructure:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix" mapstructure:"redis_prefix"`
}

// HistoryConfig configures the dump history database.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path,omitempty" mapstructure:"path"`
	Keep    int    `toml:"keep" mapstructure:"keep"`
}

// ServerConfig configures `panelmap serve`.
type ServerConfig struct {
	Addr string `toml:"addr" mapstructure:"addr"`
}

// ControlConfig configures the capture controller client.
type ControlConfig struct {
	URL          string `toml:"url" mapstructure:"url"`
	Timeout      string `toml:"timeout" mapstructure:"timeout"`
	PollInterval string `toml:"poll_interval" mapstructure:"poll_interval"`
	SelectTitle  string `toml:"select_title" mapstructure:"select_title"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{Precision: layout.DefaultPrecision},
		Match: MatchConfig{
			Tolerances: match.DefaultTolerances(),
			Owners:     []string{"iTerm", "iTerm2"},
		},
		Cache: CacheConfig{
			Backend:     CacheFile,
			TTL:         cache.TTLDump.String(),
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: cache.DefaultRedisPrefix,
		},
		History: HistoryConfig{Enabled: false, Keep: 500},
		Server:  ServerConfig{Addr: ":8087"},
		Control: ControlConfig{
			URL:          "ws://127.0.0.1:19002",
			Timeout:      "10s",
			PollInterval: "200ms",
			SelectTitle:  "1.1.8",
		},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Layout.Precision < layout.WholeNumbers {
		return errors.New(errors.ErrCodeInvalidInput, "layout.precision must be %d or greater, got %d", layout.WholeNumbers, c.Layout.Precision)
	}
	if err := c.Match.Tolerances.Validate(); err != nil {
		return err
	}
	if !slices.Contains([]string{CacheFile, CacheRedis, CacheNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
	}
	if c.History.Keep < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "history.keep must be non-negative, got %d", c.History.Keep)
	}
	if err := errors.ValidateControlURL(c.Control.URL); err != nil {
		return err
	}
	for key, v := range map[string]string{
		"cache.ttl":             c.Cache.TTL,
		"control.timeout":       c.Control.Timeout,
		"control.poll_interval": c.Control.PollInterval,
	} {
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			return errors.New(errors.ErrCodeInvalidInput, "%s must be a non-negative duration, got %q", key, v)
		}
	}
	return nil
}

// CacheTTL returns the parsed cache TTL.
func (c *Config) CacheTTL() time.Duration { return mustDuration(c.Cache.TTL) }

// ControlTimeout returns the parsed controller readiness timeout.
func (c *Config) ControlTimeout() time.Duration { return mustDuration(c.Control.Timeout) }

// ControlPollInterval returns the parsed controller ping interval.
func (c *Config) ControlPollInterval() time.Duration { return mustDuration(c.Control.PollInterval) }

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// =============================================================================
// Paths
// =============================================================================

// Dir returns the configuration directory.
func Dir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// CacheDir returns the file cache directory.
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// StateDir returns the directory holding the history database.
func StateDir() (string, error) {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// HistoryPath returns the configured history database path, or the default
// location in the state directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// CachePath returns the configured file cache directory, or the default.
func (c *Config) CachePath() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return CacheDir()
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}
