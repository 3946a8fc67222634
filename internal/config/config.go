// Package config loads flowctl settings from a YAML file and WORKFLOW_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meikuraledutech/workflow/internal/logging"
)

// Repository drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// EnvPrefix prefixes every environment override, e.g. WORKFLOW_LISTEN.
const EnvPrefix = "WORKFLOW"

// Config holds all configuration options for flowctl.
type Config struct {
	Listen     string           `mapstructure:"listen"`
	Log        LogConfig        `mapstructure:"log"`
	IDs        IDConfig         `mapstructure:"ids"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	Import     ImportConfig     `mapstructure:"import"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" (default) or "json"
}

type IDConfig struct {
	// RolePrefixed mints agent_<n>/supervisor_<n> instead of node_<n>.
	RolePrefixed bool `mapstructure:"role_prefixed"`
}

type RepositoryConfig struct {
	Driver string `mapstructure:"driver"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type ImportConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// FlagKeys maps config keys to the command-line flags that override them.
var FlagKeys = map[string]string{
	"listen":            "listen",
	"log.level":         "log-level",
	"log.format":        "log-format",
	"ids.role_prefixed": "role-prefixed-ids",
	"repository.driver": "driver",
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Listen: ":3000",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Repository: RepositoryConfig{Driver: DriverMemory},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "workflow:",
		},
		SQLite: SQLiteConfig{Path: "workflows.db"},
		Import: ImportConfig{MaxBytes: 10 << 20},
	}
}

// Load reads configuration into a fresh viper instance. cfgFile, when set,
// is the only file considered; otherwise the lookup order is
//  1. .workflow/config.yaml (current directory)
//  2. ~/.config/workflow/config.yaml
//
// A missing file is not an error. DATABASE_URL is honoured as a fallback
// for postgres.url. Flags present in flags override both; see FlagKeys.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("listen", d.Listen)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("ids.role_prefixed", d.IDs.RolePrefixed)
	v.SetDefault("repository.driver", d.Repository.Driver)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("redis.ttl", d.Redis.TTL)
	v.SetDefault("postgres.url", d.Postgres.URL)
	v.SetDefault("sqlite.path", d.SQLite.Path)
	v.SetDefault("import.max_bytes", d.Import.MaxBytes)

	if flags != nil {
		for key, name := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("config: bind --%s: %w", name, err)
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if _, err := os.Stat(filepath.Join(".workflow", "config.yaml")); err == nil {
		v.SetConfigFile(filepath.Join(".workflow", "config.yaml"))
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "workflow"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Postgres.URL == "" {
		cfg.Postgres.URL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// Validate checks that the selected driver has what it needs.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Import.MaxBytes <= 0 {
		return fmt.Errorf("config: import.max_bytes must be positive")
	}

	switch c.Repository.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis driver")
		}
		if c.Redis.TTL < 0 {
			return fmt.Errorf("config: redis.ttl must not be negative")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("config: postgres.url (or DATABASE_URL) is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("config: sqlite.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("config: unknown repository.driver %q", c.Repository.Driver)
	}
	return nil
}
