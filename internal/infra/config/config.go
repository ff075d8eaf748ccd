// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Show    ShowConfig    `yaml:"show"`
	Log     LogConfig     `yaml:"log"`
	Spotify SpotifyConfig `yaml:"spotify"`
	Import  ImportConfig  `yaml:"import"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr           string          `yaml:"addr" default:":8080"`
	Hooks          HooksConfig     `yaml:"hooks"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// RateLimitConfig limits mutating HTTP requests per client IP.
// A negative rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" default:"5"`
	Burst             int     `yaml:"burst" default:"10" validate:"gte=1"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver   string         `yaml:"driver" default:"memory" validate:"oneof=memory redis postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig represents the redis store configuration.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix" default:"showtime"`
}

// PostgresConfig represents the postgres store configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ShowConfig represents show-time and library presentation settings.
type ShowConfig struct {
	GapSeconds int    `yaml:"gap_seconds" default:"10" validate:"gte=0,lte=600"`
	Collation  string `yaml:"collation" default:"es" validate:"bcp47_language_tag"`
}

// LogConfig represents logger configuration.
type LogConfig struct {
	Output     string `yaml:"output" default:"stdout"`
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"100" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" default:"3" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" default:"28" validate:"gte=0"`
}

// SpotifyConfig represents Spotify API configuration.
// Spotify import is available only when all credentials are set.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required_with=ClientSecret RefreshToken"`
	ClientSecret string `yaml:"client_secret" validate:"required_with=ClientID RefreshToken"`
	RefreshToken string `yaml:"refresh_token" validate:"required_with=ClientID ClientSecret"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"ES"`
}

// ImportConfig represents the filters screening Spotify imports.
type ImportConfig struct {
	Filters map[string]FilterConfig `yaml:"filters"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// IsFilterEnabled checks if an import filter is enabled.
func (c ImportConfig) IsFilterEnabled(name string) bool {
	if f, ok := c.Filters[name]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings of an import filter.
func (c ImportConfig) FilterSettings(name string) map[string]any {
	if f, ok := c.Filters[name]; ok {
		return f.Settings
	}
	return nil
}

// Enabled reports whether Spotify credentials are configured.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.overrideFromEnv()
	// defaults.Set only fails on malformed default tags
	_ = defaults.Set(&cfg)
	return &cfg
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SHOWTIME_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SHOWTIME_REDIS_URL"); v != "" {
		c.Store.Redis.URL = v
	}
	if v := os.Getenv("SHOWTIME_POSTGRES_DSN"); v != "" {
		c.Store.Postgres.DSN = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	switch c.Store.Driver {
	case DriverRedis:
		if c.Store.Redis.URL == "" {
			return errors.New("store.redis.url is required for the redis driver")
		}
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required for the postgres driver")
		}
	}

	return nil
}

// Language returns the collation language for title sorting.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Show.Collation)
	if err != nil {
		return language.Spanish
	}
	return tag
}
