// Package config loads server settings from environment variables.
//
// Every setting has a default except JWT_SECRET, so a bare `go run` works
// against a local SQLite file and MinIO once a secret is exported.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains server configuration parameters.
type Config struct {
	Port      int      `env:"PORT" envDefault:"8080"`
	LogLevel  int      `env:"LOG_LEVEL" envDefault:"0"`
	LogFormat string   `env:"LOG_FORMAT" envDefault:"text"`
	Database  Database `envPrefix:"DATABASE_"`
	JWT       JWT      `envPrefix:"JWT_"`
	Google    Google   `envPrefix:"GOOGLE_"`
	Storage   Storage  `envPrefix:"STORAGE_"`
	Upload    Upload   `envPrefix:"UPLOAD_"`
}

// Database selects and locates the persistent store.
type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	Path   string `env:"PATH" envDefault:"data/kaviospix.db"`
	DSN    string `env:"DSN"`
}

// JWT contains session token parameters.
type JWT struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

// Google holds OAuth client credentials. Google login is only registered
// when both ClientID and ClientSecret are set.
type Google struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Storage contains object storage parameters.
type Storage struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY" envDefault:"kaviospix-access-key"`
	SecretKey string `env:"SECRET_KEY" envDefault:"kaviospix-secret-key"`
	Bucket    string `env:"BUCKET" envDefault:"kaviospix"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	PublicURL string `env:"PUBLIC_URL"`
	Folder    string `env:"FOLDER" envDefault:"kaviospix"`
}

type Upload struct {
	MaxBytes int64 `env:"MAX_BYTES" envDefault:"5242880"`
}

// NewConfig loads configuration from the process environment and validates it.
func NewConfig() (*Config, error) {
	return parse(env.Options{})
}

// FromMap loads configuration from vars instead of the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWT.Secret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for the sqlite driver"))
		}
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}

	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GoogleCallbackURL returns the configured callback or a localhost default.
func (c *Config) GoogleCallbackURL() string {
	if c.Google.CallbackURL != "" {
		return c.Google.CallbackURL
	}
	return fmt.Sprintf("http://localhost:%d/auth/google/callback", c.Port)
}
