// Package config reads randotrack settings from the environment. Command
// line flags override these values.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by every command.
type Config struct {
	// DB is the journal database path.
	DB string `env:"RANDOTRACK_DB" envDefault:"randotrack.db"`
	// Logic is the logic file or directory used when a command is not
	// given one.
	Logic string `env:"RANDOTRACK_LOGIC"`
	// Variant selects a logic variant.
	Variant string `env:"RANDOTRACK_VARIANT"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"RANDOTRACK_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment and checks the log level.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", name)
	}
}
