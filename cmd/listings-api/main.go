package main

import (
	"log"

	"go.uber.org/fx"

	"github.com/scanworks/listings-api/internal/api"
	"github.com/scanworks/listings-api/internal/catalog"
	"github.com/scanworks/listings-api/internal/config"
	"github.com/scanworks/listings-api/pkg/logger"
	"github.com/scanworks/listings-api/pkg/metrics"
	"github.com/scanworks/listings-api/pkg/postgres"
	"github.com/scanworks/listings-api/pkg/rabbit"
	"github.com/scanworks/listings-api/pkg/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	options := []fx.Option{
		fx.Provide(
			func() logger.Config { return cfg.Logger },
			func() postgres.Config { return cfg.Postgres },
			func() metrics.Config { return cfg.Metrics },
			func() tracer.Config { return cfg.Tracer },
			func() api.Config { return cfg.HTTP },

			// Bind the shared logger to each package's Logger interface.
			func(l *logger.Logger) postgres.Logger { return l },
			func(l *logger.Logger) metrics.Logger { return l },
			func(l *logger.Logger) tracer.Logger { return l },
			func(l *logger.Logger) catalog.Logger { return l },
			func(l *logger.Logger) api.Logger { return l },

			func(s *catalog.Service) api.Catalog { return s },
		),
		logger.FXModule,
		postgres.FXModule,
		metrics.FXModule,
		tracer.FXModule,
		catalog.FXModule,
		api.FXModule,
	}

	if cfg.EventsEnabled {
		options = append(options,
			fx.Provide(
				func() rabbit.Config { return cfg.Rabbit },
				func(l *logger.Logger) rabbit.Logger { return l },
				func(r *rabbit.Rabbit) catalog.EventPublisher { return r },
			),
			rabbit.FXModule,
		)
	}

	fx.New(options...).Run()
}
