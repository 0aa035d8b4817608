// Package config loads the sirendb server configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirendb/sirendb/internal/storage/sqlstore"
)

// Version is the supported configuration file version.
const Version = 1

// Environment variables consulted by ApplyEnv.
const (
	EnvDatabaseDriver = "SIRENDB_DATABASE_DRIVER"
	EnvDatabaseDSN    = "SIRENDB_DATABASE_DSN"
	EnvMediaBaseURL   = "SIRENDB_MEDIA_BASE_URL"
	EnvOTLPEndpoint   = "SIRENDB_OTLP_ENDPOINT"
)

type Config struct {
	Version   int       `yaml:"version"`
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Media     Media     `yaml:"media"`
	Log       Log       `yaml:"log"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type Server struct {
	Addr         string        `yaml:"addr"`
	Pretty       bool          `yaml:"pretty"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type Database struct {
	// Driver is one of the sqlstore dialect names.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// AutoMigrate creates missing tables at startup.
	AutoMigrate  bool `yaml:"auto_migrate"`
	MaxOpenConns int  `yaml:"max_open_conns"`
}

type Media struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Metrics      bool   `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version: Version,
		Server: Server{
			Addr:         ":8080",
			Timeout:      10 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Database: Database{
			Driver:      sqlstore.SQLite,
			DSN:         "file:sirendb.db",
			AutoMigrate: true,
		},
		Log:       Log{Level: "info", Format: "text"},
		Telemetry: Telemetry{ServiceName: "sirendb", Metrics: true},
	}
}

// Load reads path over the defaults, applies the process environment and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if cfg.Version != Version {
			return nil, fmt.Errorf("config: unsupported version: %d", cfg.Version)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. For postgres without a
// DSN, the libpq PG* variables are assembled into one.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDatabaseDriver); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := lookup(EnvDatabaseDSN); ok && v != "" {
		c.Database.DSN = v
	} else if c.Database.Driver == sqlstore.Postgres && (c.Database.DSN == "" || c.Database.DSN == Default().Database.DSN) {
		c.Database.DSN = postgresDSN(lookup)
	}
	if v, ok := lookup(EnvMediaBaseURL); ok && v != "" {
		c.Media.Enabled = true
		c.Media.BaseURL = v
	}
	if v, ok := lookup(EnvOTLPEndpoint); ok {
		c.Telemetry.OTLPEndpoint = v
	}
}

func postgresDSN(lookup func(string) (string, bool)) string {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	parts := []string{
		"host=" + get("PGHOST", "127.0.0.1"),
		"port=" + get("PGPORT", "5432"),
		"user=" + get("PGUSER", "sirendb"),
	}
	if pw := get("PGPASSWORD", ""); pw != "" {
		parts = append(parts, "password="+pw)
	}
	parts = append(parts,
		"dbname="+get("PGDATABASE", "sirendb"),
		"sslmode="+get("PGSSLMODE", "disable"),
	)
	return strings.Join(parts, " ")
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := sqlstore.LookupDialect(c.Database.Driver); err != nil {
		errs = append(errs, fmt.Errorf("config: database.driver: %w", err))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("config: database.dsn is required"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("config: server.addr is required"))
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("config: server.timeout may not be negative"))
	}
	if c.Media.Enabled && c.Media.BaseURL == "" {
		errs = append(errs, errors.New("config: media.base_url is required when media is enabled"))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return lvl, nil
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	lvl, _ := c.Log.level()
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
