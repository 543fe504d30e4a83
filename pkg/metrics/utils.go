package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewCounterVec registers and returns a CounterVec on the service registry.
func (m *Metrics) NewCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	m.registerer.MustRegister(vec)
	return vec
}

// NewHistogramVec registers and returns a HistogramVec with the given
// buckets on the service registry. Nil buckets use Prometheus defaults.
func (m *Metrics) NewHistogramVec(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: buckets,
		},
		labels,
	)
	m.registerer.MustRegister(vec)
	return vec
}

// NewGaugeVec registers and returns a GaugeVec on the service registry.
func (m *Metrics) NewGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
	m.registerer.MustRegister(vec)
	return vec
}
