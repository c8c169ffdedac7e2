package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env         string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port        string `env:"PORT" envDefault:"8080" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// One signing secret per token kind. A leaked verification secret must
	// not allow forging session or reset tokens, so the three may not be
	// reused for each other.
	SessionSecret string `env:"SESSION_JWT_SECRET,required" validate:"required,min=32,nefield=VerifySecret,nefield=ResetSecret"`
	VerifySecret  string `env:"VERIFY_JWT_SECRET,required"  validate:"required,min=32,nefield=ResetSecret"`
	ResetSecret   string `env:"RESET_JWT_SECRET,required"   validate:"required,min=32"`

	SessionLifetimeSec int `env:"SESSION_LIFETIME_SEC" envDefault:"86400" validate:"min=1"`
	VerifyLifetimeSec  int `env:"VERIFY_LIFETIME_SEC"  envDefault:"86400" validate:"min=1"`
	ResetLifetimeSec   int `env:"RESET_LIFETIME_SEC"   envDefault:"900"   validate:"min=1"`

	MinPasswordLength    int  `env:"MIN_PASSWORD_LENGTH" envDefault:"8" validate:"min=0"`
	BcryptCost           int  `env:"BCRYPT_COST" envDefault:"10" validate:"min=4,max=31"`
	RequireVerifiedEmail bool `env:"REQUIRE_VERIFIED_EMAIL" envDefault:"false"`

	// Base URL embedded in verification and reset links.
	LinkBaseURL string `env:"LINK_BASE_URL" envDefault:"http://localhost:8080"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	EmailFrom    string `env:"EMAIL_FROM"     validate:"required_if=Env production,required_if=Env staging"`

	VerifyEmailSubject string `env:"VERIFY_EMAIL_SUBJECT" envDefault:"Verify your email address"`
	VerifyEmailHeading string `env:"VERIFY_EMAIL_HEADING" envDefault:"Confirm your email"`
	VerifyEmailMessage string `env:"VERIFY_EMAIL_MESSAGE" envDefault:"Click the link below to verify your email address."`
	ResetEmailSubject  string `env:"RESET_EMAIL_SUBJECT"  envDefault:"Reset your password"`
	ResetEmailHeading  string `env:"RESET_EMAIL_HEADING"  envDefault:"Password reset"`
	ResetEmailMessage  string `env:"RESET_EMAIL_MESSAGE"  envDefault:"Click the link below to choose a new password. The link expires shortly."`

	JanitorIntervalSec int `env:"JANITOR_INTERVAL_SEC" envDefault:"300" validate:"min=1"`
}

// Load parses and validates the environment. Bad lifetimes, lengths or
// secrets fail here, at setup, not at first request.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.SessionLifetimeSec) * time.Second
}

func (c *Config) VerifyLifetime() time.Duration {
	return time.Duration(c.VerifyLifetimeSec) * time.Second
}

func (c *Config) ResetLifetime() time.Duration {
	return time.Duration(c.ResetLifetimeSec) * time.Second
}

func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalSec) * time.Second
}
