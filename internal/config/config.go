package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/traceidx.db"`
	AuditLogPath string `env:"AUDIT_LOG_PATH" envDefault:"./data/logs/audit.log"`

	// Export (optional; empty disables the post-batch export)
	ExportPath string `env:"EXPORT_PATH"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// ExportEnabled returns true if a post-batch export destination is configured
func (c *Config) ExportEnabled() bool {
	return c.ExportPath != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
