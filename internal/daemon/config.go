// Package daemon manages the kickoff daemon lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	Auth      AuthConfig      `toml:"auth"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   float64  `toml:"rate_limit"` // requests/second per client, 0 disables
	RateBurst   int      `toml:"rate_burst"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	PostgresURL   string `toml:"postgres_url"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	FlushInterval string `toml:"flush_interval"`
	SessionIdle   string `toml:"session_idle"` // unload engines unused for this long
}

// AuthConfig controls bearer auth on user routes.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Prometheus     bool   `toml:"prometheus"`
	HealthInterval string `toml:"health_interval"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8787,
			CORSOrigins: []string{"*"},
			RateLimit:   5,
			RateBurst:   30,
		},
		Store: StoreConfig{
			Backend:       BackendSQLite,
			Dir:           kickoffHome(),
			FlushInterval: "1s",
			SessionIdle:   "30m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Prometheus:     true,
			HealthInterval: "60s",
		},
	}
}

// ConfigPath returns the location of config.toml.
func ConfigPath() string {
	return filepath.Join(kickoffHome(), "config.toml")
}

// LoadConfig reads .env files, then ~/.kickoff/config.toml over the
// defaults, then environment overrides.
func LoadConfig() (Config, error) {
	loadDotEnv(".env", filepath.Join(kickoffHome(), ".env"))
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom is LoadConfig for an explicit file, without .env loading.
// A missing file yields the defaults.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.kickoff/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigTo(ConfigPath(), cfg)
}

// SaveConfigTo writes cfg as TOML to path.
func SaveConfigTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Validate checks the combination of settings is usable.
func (c Config) Validate() error {
	var errs []error
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	switch c.Store.Backend {
	case BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("store.postgres_url (or DATABASE_URL) is required for the postgres backend"))
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr (or REDIS_ADDR) is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	durations := []struct{ key, value string }{
		{"store.flush_interval", c.Store.FlushInterval},
		{"store.session_idle", c.Store.SessionIdle},
		{"telemetry.health_interval", c.Telemetry.HealthInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if v, err := time.ParseDuration(d.value); err != nil || v <= 0 {
			errs = append(errs, fmt.Errorf("%s %q is not a positive duration", d.key, d.value))
		}
	}
	return errors.Join(errs...)
}

// FlushIntervalDuration returns the parsed write-behind interval.
func (c StoreConfig) FlushIntervalDuration() time.Duration {
	return parseDuration(c.FlushInterval, time.Second)
}

// SessionIdleDuration returns how long an unused engine stays loaded.
func (c StoreConfig) SessionIdleDuration() time.Duration {
	return parseDuration(c.SessionIdle, 30*time.Minute)
}

// HealthIntervalDuration returns the period between health check runs.
func (c TelemetryConfig) HealthIntervalDuration() time.Duration {
	return parseDuration(c.HealthInterval, time.Minute)
}

// DataDir returns the store directory, defaulting to the kickoff home.
func (c StoreConfig) DataDir() string {
	if c.Dir == "" {
		return kickoffHome()
	}
	return c.Dir
}

// loadDotEnv loads each file that exists. Variables already set win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// applyEnv overrides config with well-known environment variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("KICKOFF_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.PostgresURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Store.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Store.RedisDB = n
	}
	if v := os.Getenv("KICKOFF_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	return nil
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// kickoffHome returns the kickoff data directory.
func kickoffHome() string {
	if env := os.Getenv("KICKOFF_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".kickoff")
}

// Home is exported for use by other packages.
func Home() string {
	return kickoffHome()
}
