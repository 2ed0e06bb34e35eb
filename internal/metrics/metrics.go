// Package metrics exposes Prometheus collectors for provider selection and
// audited operations. A Metrics value owns its registry; it observes the
// provider factory (provider.Observer) and the audit stream (audit.Logger).
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pai/internal/audit"
	"pai/internal/domain"
)

const namespace = "pai"

// Metrics holds the pai collectors
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal          *prometheus.CounterVec
	OperationDurationSeconds *prometheus.HistogramVec
	HealthChecksTotal        *prometheus.CounterVec
	HealthCheckSeconds       *prometheus.HistogramVec
	AdapterHealthy           *prometheus.GaugeVec
	CandidateFailuresTotal   *prometheus.CounterVec
	SelectionsTotal          *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of audited provider operations",
			},
			[]string{"domain", "operation", "provider", "status"},
		),
		OperationDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of provider operations in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"domain", "operation"},
		),
		HealthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "health_checks_total",
				Help:      "Total number of adapter health checks",
			},
			[]string{"domain", "adapter", "healthy"},
		),
		HealthCheckSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "health_check_duration_seconds",
				Help:      "Duration of adapter health checks in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"domain", "adapter"},
		),
		AdapterHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "adapter_healthy",
				Help:      "1 if the adapter's last health check passed, 0 otherwise",
			},
			[]string{"domain", "adapter"},
		),
		CandidateFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidate_failures_total",
				Help:      "Total number of candidates skipped during provider selection",
			},
			[]string{"domain", "adapter", "kind"},
		),
		SelectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_selections_total",
				Help:      "Total number of providers selected, by chain position",
			},
			[]string{"domain", "adapter", "role"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.OperationsTotal,
		m.OperationDurationSeconds,
		m.HealthChecksTotal,
		m.HealthCheckSeconds,
		m.AdapterHealthy,
		m.CandidateFailuresTotal,
		m.SelectionsTotal,
	)
	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CandidateProbed records a health check
func (m *Metrics) CandidateProbed(d domain.Domain, adapterName string, status domain.HealthStatus) {
	healthy := "false"
	gauge := 0.0
	if status.Healthy {
		healthy = "true"
		gauge = 1
	}
	m.HealthChecksTotal.WithLabelValues(string(d), adapterName, healthy).Inc()
	m.HealthCheckSeconds.WithLabelValues(string(d), adapterName).Observe(status.Latency.Seconds())
	m.AdapterHealthy.WithLabelValues(string(d), adapterName).Set(gauge)
}

// CandidateFailed records a candidate skipped for a build error or an
// unhealthy probe
func (m *Metrics) CandidateFailed(d domain.Domain, adapterName string, err error) {
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "unhealthy"
	}
	m.CandidateFailuresTotal.WithLabelValues(string(d), adapterName, kind).Inc()
}

// ProviderSelected records the chosen candidate
func (m *Metrics) ProviderSelected(d domain.Domain, adapterName string, fallback bool) {
	role := "primary"
	if fallback {
		role = "fallback"
	}
	m.SelectionsTotal.WithLabelValues(string(d), adapterName, role).Inc()
}

// Log records an audited operation
func (m *Metrics) Log(_ context.Context, e audit.Entry) error {
	status := "success"
	if !e.Success {
		status = "failed"
	}
	m.OperationsTotal.WithLabelValues(string(e.Domain), e.Operation, e.Provider, status).Inc()
	m.OperationDurationSeconds.WithLabelValues(string(e.Domain), e.Operation).Observe(e.Latency.Seconds())
	return nil
}

var _ audit.Logger = (*Metrics)(nil)
