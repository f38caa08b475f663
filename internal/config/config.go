// Package config loads filterql server settings from a config file,
// FILTERQL_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides: duckdb.path is read
// from FILTERQL_DUCKDB_PATH.
const EnvPrefix = "FILTERQL"

// ErrInvalid is returned when loaded settings fail validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the server settings.
type Config struct {
	Address       string `mapstructure:"address"`
	PublicAddress string `mapstructure:"public_address"`
	Entities      string `mapstructure:"entities"`
	InitTables    bool   `mapstructure:"init_tables"`
	MaxPageSize   uint64 `mapstructure:"max_page_size"`
	MaxMessageMB  int    `mapstructure:"max_message_mb"`

	DuckDB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"duckdb"`

	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`

	JWT struct {
		Secret string `mapstructure:"secret"`
		Issuer string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Metrics struct {
		Address string `mapstructure:"address"`
	} `mapstructure:"metrics"`
}

// New returns a viper instance with defaults and environment binding.
// Callers bind their flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// every key needs a default so Unmarshal sees env-only values
	v.SetDefault("address", ":50051")
	v.SetDefault("public_address", "")
	v.SetDefault("entities", "")
	v.SetDefault("init_tables", false)
	v.SetDefault("max_page_size", 0)
	v.SetDefault("max_message_mb", 16)
	v.SetDefault("duckdb.path", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.address", "")
	return v
}

// Load reads file, if given, and unmarshals the merged settings.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalid)
	}
	if c.DuckDB.Path != "" && c.Postgres.DSN != "" {
		return fmt.Errorf("%w: duckdb.path and postgres.dsn are mutually exclusive", ErrInvalid)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}
	if c.MaxMessageMB < 0 {
		return fmt.Errorf("%w: max_message_mb cannot be negative", ErrInvalid)
	}
	return nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log.level %q", ErrInvalid, s)
	}
	return level, nil
}
