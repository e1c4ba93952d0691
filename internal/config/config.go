// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds text-decoder configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"text-decoder"`

	// Subject overrides (empty = commsutil defaults)
	DecoderSubject     string `envconfig:"DECODER_SUBJECT"`
	RelaySubject       string `envconfig:"RELAY_SUBJECT"`
	SidePanelSubject   string `envconfig:"SIDE_PANEL_SUBJECT"`
	DecodeEventSubject string `envconfig:"DECODE_EVENT_SUBJECT"`

	// Timeouts
	RequestTimeout   time.Duration `envconfig:"DECODER_REQUEST_TIMEOUT" default:"10s"`
	SidePanelTimeout time.Duration `envconfig:"SIDE_PANEL_TIMEOUT" default:"5s"`

	// Catalog overrides file (empty = DECODER_CATALOG_FILE lookup chain in pkg/catalog)
	CatalogFile string `envconfig:"DECODER_CATALOG_FILE"`

	// Database (optional; only used when RECORD_EVENTS is set or for DB commands)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RecordEvents  bool   `envconfig:"RECORD_EVENTS" default:"false"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	// MigrationPath empty = migrations compiled into the binary.
	MigrationPath string `envconfig:"MIGRATION_PATH"`

	// HTTP popup page, API and health endpoints
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

// ValidateForServe checks required config when running the decoder server.
func (c *Config) ValidateForServe() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - DECODER_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.SidePanelTimeout <= 0 {
		return fmt.Errorf("%s - SIDE_PANEL_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%s - HTTP_PORT %d out of range", logPrefix, c.HTTPPort)
	}
	if (c.RecordEvents || c.RunMigrations) && c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required when RECORD_EVENTS or RUN_MIGRATIONS is set", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}
