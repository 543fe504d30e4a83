package catalog

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/scanworks/listings-api/pkg/metrics"
	"github.com/scanworks/listings-api/pkg/postgres"
	"github.com/scanworks/listings-api/pkg/tracer"
)

// Logger defines the interface for logging operations within the catalog
// package.
//
//go:generate mockgen -source=service.go -destination=mock_logger.go -package=catalog
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// EventPublisher emits listing change events to the message broker. It is
// optional; a nil publisher disables event emission.
type EventPublisher interface {
	PublishWithKey(ctx context.Context, routingKey string, msg []byte) error
}

// Service implements the catalog core: filtered listing queries and the
// batch upsert reconciler.
type Service struct {
	db        *postgres.Postgres
	logger    Logger
	tracer    *tracer.Tracer
	publisher EventPublisher

	queryDuration  *prometheus.HistogramVec
	upsertDuration *prometheus.HistogramVec
	upsertedTotal  prometheus.Counter
}

// ServiceParams collects the service dependencies from the fx graph.
// The publisher is optional so the service runs without a broker.
type ServiceParams struct {
	fx.In

	DB        *postgres.Postgres
	Logger    Logger
	Tracer    *tracer.Tracer
	Metrics   *metrics.Metrics
	Publisher EventPublisher `optional:"true"`
}

// NewService wires the catalog service and registers its metrics.
func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		logger:    p.Logger,
		tracer:    p.Tracer,
		publisher: p.Publisher,
		queryDuration: p.Metrics.NewHistogramVec(
			"catalog_query_duration_seconds",
			"Duration of listing queries, labeled by outcome.",
			[]string{"status"},
			nil,
		),
		upsertDuration: p.Metrics.NewHistogramVec(
			"catalog_upsert_duration_seconds",
			"Duration of listing upsert batches, labeled by outcome.",
			[]string{"status"},
			nil,
		),
		upsertedTotal: p.Metrics.NewCounterVec(
			"catalog_listings_upserted_total",
			"Number of listings written by upsert batches.",
			nil,
		).WithLabelValues(),
	}
}

// FXModule defines the Fx module for the catalog package. Besides
// providing the service it runs schema migration at startup.
var FXModule = fx.Module("catalog",
	fx.Provide(
		NewService,
	),
	fx.Invoke(MigrateModels),
)

// MigrateModels creates or updates the catalog tables.
func MigrateModels(db *postgres.Postgres, logger Logger) error {
	if err := db.Migrate(Models()...); err != nil {
		logger.Error("catalog schema migration failed", err, nil)
		return err
	}
	logger.Info("catalog schema migrated", nil, nil)
	return nil
}
