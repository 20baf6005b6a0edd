package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is sourced from environment variables (and .env outside production).
type Config struct {
	Env        string        `envconfig:"APP_ENV" default:"development"`
	HTTPAddr   string        `envconfig:"HTTP_ADDR" default:":8082"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	MinCharge  int64         `envconfig:"MIN_CHARGE" default:"1000"`

	Database DatabaseConfig
	Redis    RedisConfig
}

// DatabaseConfig selects the database/sql driver ("postgres" for lib/pq,
// "pgx" for pgx/v5/stdlib) and its DSN.
type DatabaseConfig struct {
	Driver          string        `split_words:"true" default:"postgres"`
	URL             string        `split_words:"true" required:"true"`
	MaxOpenConns    int           `split_words:"true" default:"10"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"5m"`
}

// RedisConfig backs the HTTP session store. An empty URL keeps sessions in
// process. Timeouts are in seconds.
type RedisConfig struct {
	URL          string `split_words:"true"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
}

// Environment returns the parsed APP_ENV.
func (c Config) Environment() Environment {
	return ParseEnvironment(c.Env)
}

// Load reads .env (when present and not in production) and processes the
// environment into a Config.
func Load(envFile string) (Config, []string, error) {
	var warnings []string
	if ParseEnvironment(os.Getenv("APP_ENV")) != Production && envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			warnings = append(warnings, fmt.Sprintf("could not load %s: %v", envFile, err))
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, warnings, fmt.Errorf("failed to process environment config: %w", err)
	}
	switch cfg.Database.Driver {
	case "postgres", "pgx":
	default:
		return Config{}, warnings, fmt.Errorf("unsupported DATABASE_DRIVER %q (want postgres or pgx)", cfg.Database.Driver)
	}
	if cfg.MinCharge < 1 {
		return Config{}, warnings, fmt.Errorf("MIN_CHARGE must be positive, got %d", cfg.MinCharge)
	}
	return cfg, warnings, nil
}
