// Package config loads process configuration from the environment.
//
// An optional .env file (path from ENV_FILE, default ".env") is applied first
// with godotenv, then variables are parsed into Config. Values already set in
// the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minSecretLength = 16

type Config struct {
	Port int `env:"PORT" envDefault:"3000"`

	// DB_LOCATION is a sqlite path, or a mongodb:// URI to use the
	// document store.
	DBLocation    string `env:"DB_LOCATION" envDefault:"data/auth.db"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"blog"`

	SecretAccessKey string        `env:"SECRET_ACCESS_KEY"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"0s"`
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`

	FirebaseServiceAccount string `env:"FIREBASE_SERVICE_ACCOUNT"`
	FirebaseProjectID      string `env:"FIREBASE_PROJECT_ID"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load applies the .env file, if any, and parses the process environment.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading %s: %w", envFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Parse reads configuration from environ instead of the process
// environment. No .env file is consulted.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if len(c.SecretAccessKey) < minSecretLength {
		errs = append(errs, fmt.Errorf("SECRET_ACCESS_KEY must be at least %d characters", minSecretLength))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.TokenTTL < 0 {
		errs = append(errs, errors.New("TOKEN_TTL must not be negative"))
	}
	if c.DBLocation == "" {
		errs = append(errs, errors.New("DB_LOCATION must not be empty"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q: want text or json", c.LogFormat))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// IsMongo reports whether DBLocation names a MongoDB deployment.
func (c Config) IsMongo() bool {
	return strings.HasPrefix(c.DBLocation, "mongodb://") ||
		strings.HasPrefix(c.DBLocation, "mongodb+srv://")
}

// FederatedAuthConfigured reports whether enough is set to verify
// Firebase ID tokens.
func (c Config) FederatedAuthConfigured() bool {
	return c.FirebaseServiceAccount != "" || c.FirebaseProjectID != ""
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
