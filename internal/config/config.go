package config

import (
	"github.com/caarlos0/env/v11"

	"wisetrip-ads/internal/config/configs"
)

// Config aggregates all configuration sections of the service. Fields are
// populated from environment variables via the caarlos0/env library; each
// nested struct carries an envPrefix so its fields parse with that prefix.
// Use Load to construct a Config.
type Config struct {
	// Env names the deployment environment (e.g. prod, dev). Informational
	// only, useful in logs.
	Env string `env:"ENV" envDefault:"prod"`

	// HTTP configures the HTTP server (HTTP_ prefix).
	HTTP configs.HTTP `envPrefix:"HTTP_"`

	// Log configures the structured logger (LOG_ prefix).
	Log configs.Logger `envPrefix:"LOG_"`

	// Psql configures the PostgreSQL connection (PSQL_ prefix).
	Psql configs.Postgres `envPrefix:"PSQL_"`

	// Redis configures the optional click-dedupe guard (REDIS_ prefix).
	Redis configs.Redis `envPrefix:"REDIS_"`

	// Sponsor configures unit costs and the cap-day timezone (SPONSOR_
	// prefix).
	Sponsor configs.Sponsor `envPrefix:"SPONSOR_"`
}

// Load reads configuration from environment variables into a Config,
// applying the declared defaults for unset variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
