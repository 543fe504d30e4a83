package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus registry and the standalone HTTP
// server that exposes it for scraping.
type Metrics struct {
	Server      *http.Server
	Registry    *prometheus.Registry
	registerer  prometheus.Registerer
	serviceName string
}

// NewMetrics builds the registry, optionally registers the default Go and
// process collectors, and prepares the scrape server. All metrics created
// through this instance carry a "service" label.
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	wrappedRegistry := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)
	if cfg.Namespace != "" {
		wrappedRegistry = prometheus.WrapRegistererWithPrefix(cfg.Namespace+"_", wrappedRegistry)
	}

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	address := cfg.Address
	if address == "" {
		address = DefaultMetricsAddress
	}

	server := &http.Server{
		Addr:    address,
		Handler: handler,
	}

	return &Metrics{
		Server:      server,
		Registry:    registry,
		registerer:  wrappedRegistry,
		serviceName: cfg.ServiceName,
	}
}
