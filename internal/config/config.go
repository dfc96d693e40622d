// Package config loads all process configuration from the environment
// into one immutable struct. It is built once in main and passed by
// reference into each constructor; business logic never reads the
// environment directly.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the full server configuration.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/tasktrail.db"`

	// SessionSecret signs session tokens. Required; generate with
	// `openssl rand -hex 32`.
	SessionSecret string `env:"JWT_SECRET"`

	// AppBaseURL is the frontend origin used to build the links embedded
	// in verification and reset emails.
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	// Token lifetime overrides.
	SessionTTL      time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"168h"`
	VerificationTTL time.Duration `env:"VERIFICATION_TOKEN_TTL" envDefault:"24h"`
	ResetTTL        time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
}

// SMTPConfig holds the email transport settings. If Host is empty the
// server falls back to a log-only notifier, which keeps local development
// working without a mail account.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// Load parses the environment into a Config and validates the parts the
// server cannot run without.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if len(cfg.SessionSecret) < 16 {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.From == "" {
		return nil, fmt.Errorf("config: SMTP_FROM is required when SMTP_HOST is set")
	}

	return &cfg, nil
}
