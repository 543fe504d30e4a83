package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/scanworks/listings-api/internal/catalog"
	"github.com/scanworks/listings-api/pkg/metrics"
)

// Logger defines the interface for logging operations within the api
// package.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Catalog is the core surface the transport layer calls into.
type Catalog interface {
	FindListings(ctx context.Context, f catalog.ListingFilters) ([]catalog.Listing, int64, error)
	AssembleListings(ctx context.Context, rows []catalog.Listing) ([]catalog.ListingDetail, error)
	UpsertListings(ctx context.Context, batch []catalog.ListingInput) error
}

// Controller owns the echo instance and the /api route group.
type Controller struct {
	Echo    *echo.Echo
	Group   *echo.Group
	catalog Catalog
	logger  Logger
	cfg     Config

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// ErrorResponse is the error shape returned by every endpoint.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// NewController builds the echo instance, registers middleware, metrics
// and routes.
func NewController(cfg Config, core Catalog, logger Logger, m *metrics.Metrics) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	c := &Controller{
		Echo:    e,
		catalog: core,
		logger:  logger,
		cfg:     cfg,
		requestsTotal: m.NewCounterVec(
			"http_requests_total",
			"Number of handled HTTP requests.",
			[]string{"method", "path", "status"},
		),
		requestDuration: m.NewHistogramVec(
			"http_request_duration_seconds",
			"Duration of handled HTTP requests.",
			[]string{"method", "path"},
			nil,
		),
	}

	e.Use(middleware.Recover())
	e.Use(c.observeRequests)

	c.Group = e.Group("/api")
	c.initListingRoutes()

	return c
}

// observeRequests records request logs and metrics for every handled
// request.
func (c *Controller) observeRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		if err != nil {
			ctx.Error(err)
		}

		req := ctx.Request()
		status := ctx.Response().Status
		elapsed := time.Since(start)

		c.requestsTotal.WithLabelValues(req.Method, ctx.Path(), strconv.Itoa(status)).Inc()
		c.requestDuration.WithLabelValues(req.Method, ctx.Path()).Observe(elapsed.Seconds())

		c.logger.Debug("handled request", nil, map[string]interface{}{
			"method":      req.Method,
			"path":        req.URL.Path,
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
		})
		return nil
	}
}

// initListingRoutes registers the listing endpoints.
func (c *Controller) initListingRoutes() {
	c.Group.GET("/listings", c.GetListings)
	c.Group.PUT("/upsert", c.UpsertListings)
}

// internalError logs the underlying failure and returns the generic 500
// response. Store errors are never leaked to callers.
func (c *Controller) internalError(ctx echo.Context, msg string, err error) error {
	c.logger.Error(msg, err, map[string]interface{}{
		"path": ctx.Request().URL.Path,
	})
	return ctx.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "Internal server error",
	})
}

// FXModule defines the Fx module for the HTTP API.
var FXModule = fx.Module("api",
	fx.Provide(
		NewController,
	),
	fx.Invoke(RegisterServerLifecycle),
)

// RegisterServerLifecycle starts the HTTP server on application start and
// shuts it down gracefully on stop.
func RegisterServerLifecycle(lc fx.Lifecycle, c *Controller, logger Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			address := c.cfg.Address
			if address == "" {
				address = DefaultHTTPAddress
			}
			go func() {
				logger.Info("http server listening", nil, map[string]interface{}{
					"address": address,
				})
				if err := c.Echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server terminated unexpectedly", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return c.Echo.Shutdown(ctx)
		},
	})
}
