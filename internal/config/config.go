package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/scanworks/listings-api/internal/api"
	"github.com/scanworks/listings-api/pkg/logger"
	"github.com/scanworks/listings-api/pkg/metrics"
	"github.com/scanworks/listings-api/pkg/postgres"
	"github.com/scanworks/listings-api/pkg/rabbit"
	"github.com/scanworks/listings-api/pkg/tracer"
)

const serviceName = "listings-api"

// Config aggregates the environment-driven configuration of every
// component.
type Config struct {
	Logger   logger.Config
	Postgres postgres.Config
	Metrics  metrics.Config
	Tracer   tracer.Config
	Rabbit   rabbit.Config
	HTTP     api.Config

	// EventsEnabled turns the RabbitMQ change-event publisher on. The
	// service runs fine without a broker; events are then skipped.
	EventsEnabled bool `envconfig:"EVENTS_ENABLED"`
}

// Load reads the configuration from the environment. A local .env file
// is honored when present, which keeps development setups out of the
// shell profile. Missing values fall back to development defaults.
func Load() (Config, error) {
	// Absence of a .env file is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("processing environment configuration: %w", err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logger.ServiceName == "" {
		cfg.Logger.ServiceName = serviceName
	}
	if cfg.Metrics.ServiceName == "" {
		cfg.Metrics.ServiceName = serviceName
	}
	if cfg.Tracer.ServiceName == "" {
		cfg.Tracer.ServiceName = serviceName
	}

	conn := &cfg.Postgres.Connection
	if conn.Host == "" {
		conn.Host = "localhost"
	}
	if conn.Port == "" {
		conn.Port = "5432"
	}
	if conn.User == "" {
		conn.User = "postgres"
	}
	if conn.Password == "" {
		conn.Password = "password"
	}
	if conn.DbName == "" {
		conn.DbName = "database"
	}
	if conn.SSLMode == "" {
		conn.SSLMode = "disable"
	}

	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = api.DefaultHTTPAddress
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = metrics.DefaultMetricsAddress
	}

	if cfg.Rabbit.Channel.ExchangeName == "" {
		cfg.Rabbit.Channel.ExchangeName = "catalog.events"
	}
	if cfg.Rabbit.Channel.ContentType == "" {
		cfg.Rabbit.Channel.ContentType = "application/json"
	}
}
