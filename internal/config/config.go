package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds service configuration. DatabaseURL selects the replication
// transport: when set, snapshots replicate through the shared Postgres
// store; when empty, the in-process broadcast channel is used.
type Config struct {
	ServerAddr     string `env:"SERVER_ADDR" envDefault:"0.0.0.0:8080"`
	DatabaseURL    string `env:"DATABASE_URL"`
	TemplateDBPath string `env:"TEMPLATE_DB_PATH" envDefault:"photolangage-templates.db"`
	SessionCode    string `env:"SESSION_CODE" envDefault:"XJ9-2B"`
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
