package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"finmail/internal/db"
	"finmail/internal/mailsync"
	"finmail/internal/security"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
	Export   ExportConfig   `yaml:"export"`
	Sync     SyncConfig     `yaml:"sync"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	// LoginRate is the sustained login attempts per second allowed per IP.
	LoginRate  float64 `yaml:"login_rate"`
	LoginBurst int     `yaml:"login_burst"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SessionConfig struct {
	Backend string `yaml:"backend"`
	Secret  string `yaml:"secret"`
	MaxAge  int    `yaml:"max_age"`
	Secure  bool   `yaml:"secure"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ExportConfig struct {
	DriveBaseURL string `yaml:"drive_base_url"`
}

type SyncConfig struct {
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			RequestTimeout: 30 * time.Second,
			LoginRate:      1,
			LoginBurst:     5,
		},
		Database: DatabaseConfig{
			Driver: db.DriverSQLite3,
			DSN:    "finmail.db",
		},
		Session: SessionConfig{
			Backend: security.BackendDatabase,
			MaxAge:  7 * 24 * 60 * 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads filename over the defaults. A missing file yields the
// defaults; environment overrides are applied either way.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("FINMAIL_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := getenv("FINMAIL_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("FINMAIL_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := getenv("FINMAIL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, errors.New("server.request_timeout must not be negative"))
	}
	if !db.SupportedDriver(c.Database.Driver) {
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch c.Session.Backend {
	case security.BackendDatabase, security.BackendCookie, security.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("session.backend %q is not supported", c.Session.Backend))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("session.secret is required (or set FINMAIL_SESSION_SECRET)"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if err := mailsync.ValidateSchedule(c.Sync.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("sync.schedule: %w", err))
	}
	return errors.Join(errs...)
}

// StoreConfig is the session section in the form the security package takes.
func (c *Config) StoreConfig() security.StoreConfig {
	return security.StoreConfig{
		Backend: c.Session.Backend,
		Secret:  c.Session.Secret,
		MaxAge:  c.Session.MaxAge,
		Secure:  c.Session.Secure,
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
