// Package config provides configuration loading for buildledger.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. See LoadWithFile for precedence and the environment variable
// mapping.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/store"
)

// Config holds the complete buildledger configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  store.Config    `koanf:"database"`
	Logging   logging.Config  `koanf:"logging"`
	Auth      AuthConfig      `koanf:"auth"`
	Documents DocumentsConfig `koanf:"documents"`
	SMTP      SMTPConfig      `koanf:"smtp"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	BaseURL         string        `koanf:"base_url"` // external URL used in invite links
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitPerSec float64       `koanf:"rate_limit_per_sec"`
	RateLimitBurst  int           `koanf:"rate_limit_burst"`
	BodyLimit       string        `koanf:"body_limit"` // echo body limit, e.g. "25M"
}

// AuthConfig holds session and invite token settings.
type AuthConfig struct {
	SessionTTL time.Duration `koanf:"session_ttl"`
	InviteTTL  time.Duration `koanf:"invite_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// DocumentsConfig holds blob storage settings for uploaded documents.
type DocumentsConfig struct {
	Dir          string   `koanf:"dir"`
	MaxSizeBytes int64    `koanf:"max_size_bytes"`
	ContentTypes []string `koanf:"content_types"` // allowlist; empty allows all
}

// SMTPConfig holds outbound mail settings. An empty host disables sending;
// the mailer then logs instead.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// EventsConfig holds the embedded NATS event bus settings.
type EventsConfig struct {
	Port int `koanf:"port"` // 0 picks a random free port
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Database.DSN == "" {
		return errors.New("database DSN is required")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.Auth.InviteTTL <= 0 {
		return errors.New("invite TTL must be positive")
	}
	if c.Documents.Dir == "" {
		return errors.New("documents directory is required")
	}
	if c.Documents.MaxSizeBytes <= 0 {
		return errors.New("document size limit must be positive")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return errors.New("smtp from address required when smtp host is set")
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimitPerSec == 0 {
		cfg.Server.RateLimitPerSec = 20
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 40
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "25M"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.Auth.InviteTTL == 0 {
		cfg.Auth.InviteTTL = 14 * 24 * time.Hour
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.Documents.Dir == "" {
		cfg.Documents.Dir = "/var/lib/buildledger/documents"
	}
	if cfg.Documents.MaxSizeBytes == 0 {
		cfg.Documents.MaxSizeBytes = 20 * 1024 * 1024
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
}
