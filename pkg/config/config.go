package config

import (
	"fmt"
	"log/slog"
)

// Config is the fully loaded runtime configuration.
type Config struct {
	Settings *Settings
	Tunables Tunables
}

// Initialize loads env settings and the YAML tunables and validates the
// result. tunablesPath may point at a non-existent file, in which case the
// built-in defaults apply unchanged.
func Initialize(tunablesPath string) (*Config, error) {
	settings, err := LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	tunables, err := LoadTunables(tunablesPath)
	if err != nil {
		return nil, fmt.Errorf("loading tunables: %w", err)
	}
	if err := tunables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tunables: %w", err)
	}

	slog.Info("Configuration loaded",
		"environment", settings.Environment,
		"rate_limit_per_minute", tunables.RateLimitPerMinute,
		"badges", len(tunables.Badges),
		"oracle_keyed", settings.OracleSigningKey != "")

	return &Config{Settings: settings, Tunables: tunables}, nil
}
