// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/19queue/internal/domain/queue"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Store     StoreConfig           `yaml:"store"`
	Auth      AuthConfig            `yaml:"auth"`
	Admin     AdminConfig           `yaml:"admin"`
	Queue     queue.Settings        `yaml:"queue"`
	Reconcile ReconcileConfig       `yaml:"reconcile"`
	Redis     RedisConfig           `yaml:"redis"`
	Rules     map[string]RuleConfig `yaml:"rules"`
	Messages  MessagesConfig        `yaml:"messages"`
	Spotify   SpotifyConfig         `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// StoreConfig selects the entity store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" default:"sqlite" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn" default:"19queue.db" validate:"required"`
}

// AuthConfig controls how callers are identified.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl" default:"720h"`
	TrustHeader bool          `yaml:"trust_header"` // accept X-User-Email from a fronting proxy
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token  string   `yaml:"token" validate:"required"`
	Emails []string `yaml:"emails" validate:"dive,email"` // promoted to admin on first sign-in
}

// ReconcileConfig controls the playback source poller.
type ReconcileConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Interval        time.Duration `yaml:"interval" default:"30s" validate:"gte=1s"`
	MinInterval     time.Duration `yaml:"min_interval" default:"5s" validate:"gte=0"`
	ForwardEnqueues bool          `yaml:"forward_enqueues"`
}

// RedisConfig enables the cross-process event bus when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Channel  string `yaml:"channel" default:"19queue:events"`
}

// RuleConfig represents a gate rule's configuration.
type RuleConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing deny reasons. Empty fields fall back
// to the built-in messages.
type MessagesConfig struct {
	Locked                string `yaml:"locked"`
	Full                  string `yaml:"full"`
	Duplicate             string `yaml:"duplicate"`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded"`
	RestrictedUser        string `yaml:"restricted_user"`
	Paused                string `yaml:"paused"`
	Guest                 string `yaml:"guest"`
	RecentlyPlayed        string `yaml:"recently_played"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Configured reports whether all Spotify credentials are present.
func (s SpotifyConfig) Configured() bool {
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

// Parse decodes YAML, applies environment overrides and defaults, then validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if cfg.Queue.RestrictedUsers == nil {
		cfg.Queue.RestrictedUsers = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.Driver = "postgres"
		c.Store.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid REDIS_DB %q", v)
		}
		c.Redis.DB = db
	}
	return nil
}

// GetMessage returns the configured message for a deny code, or "" when unset.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "locked":
		return c.Messages.Locked
	case "full":
		return c.Messages.Full
	case "duplicate":
		return c.Messages.Duplicate
	case "duration_limit_exceeded":
		return c.Messages.DurationLimitExceeded
	case "restricted_user":
		return c.Messages.RestrictedUser
	case "paused":
		return c.Messages.Paused
	case "guest":
		return c.Messages.Guest
	case "recently_played":
		return c.Messages.RecentlyPlayed
	default:
		return ""
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Auth.JWTSecret == "" && !c.Auth.TrustHeader {
		return errors.New("auth.jwt_secret is required unless auth.trust_header is set")
	}
	if c.Reconcile.Enabled && !c.Spotify.Configured() {
		return errors.New("spotify client_id, client_secret and refresh_token are required when reconcile is enabled")
	}
	if c.Reconcile.ForwardEnqueues && !c.Reconcile.Enabled {
		return errors.New("reconcile.forward_enqueues requires reconcile.enabled")
	}
	if c.Reconcile.MinInterval > c.Reconcile.Interval {
		return errors.Newf("reconcile.min_interval (%s) must not exceed reconcile.interval (%s)",
			c.Reconcile.MinInterval, c.Reconcile.Interval)
	}

	return nil
}

// IsRuleEnabled checks if a rule is enabled.
func (c *Config) IsRuleEnabled(name string) bool {
	if r, ok := c.Rules[name]; ok {
		return r.Enabled
	}
	return false
}
