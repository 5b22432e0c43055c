package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe outcomes used as label values.
const (
	OutcomeAgent    = "agent"
	OutcomeNotAgent = "not_agent"
	OutcomeFailed   = "failed"
)

// Metrics provides Prometheus metrics for rule scans.
type Metrics struct {
	config MetricsConfig

	// Scan metrics
	scansCompleted *prometheus.CounterVec
	scanDuration   prometheus.Histogram

	// Agent metrics
	probes        *prometheus.CounterVec
	probeDuration prometheus.Histogram

	// Rule metrics
	rulesStored   prometheus.Counter
	rulesRejected *prometheus.CounterVec
	registrySize  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		scansCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_completed_total",
				Help:      "Total number of agent directory scans",
			},
			[]string{"status"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Duration of agent directory scans in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_probes_total",
				Help:      "Total number of agent metadata probes",
			},
			[]string{"outcome"},
		),
		probeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_probe_duration_seconds",
				Help:      "Duration of agent metadata probes in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		rulesStored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_stored_total",
				Help:      "Total number of rule definitions stored",
			},
		),
		rulesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_rejected_total",
				Help:      "Total number of rule definitions rejected",
			},
			[]string{"code"},
		),
		registrySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_rules",
				Help:      "Number of rules in the active registry",
			},
		),
	}

	registry.MustRegister(
		m.scansCompleted,
		m.scanDuration,
		m.probes,
		m.probeDuration,
		m.rulesStored,
		m.rulesRejected,
		m.registrySize,
	)

	return m
}

// RecordScan records a completed scan with its status and duration.
func (m *Metrics) RecordScan(status string, duration time.Duration) {
	if m == nil || m.scansCompleted == nil {
		return
	}
	m.scansCompleted.WithLabelValues(status).Inc()
	m.scanDuration.Observe(duration.Seconds())
}

// RecordProbe records one agent probe.
func (m *Metrics) RecordProbe(outcome string, duration time.Duration) {
	if m == nil || m.probes == nil {
		return
	}
	m.probes.WithLabelValues(outcome).Inc()
	m.probeDuration.Observe(duration.Seconds())
}

// RecordRuleStored counts a stored rule.
func (m *Metrics) RecordRuleStored() {
	if m == nil || m.rulesStored == nil {
		return
	}
	m.rulesStored.Inc()
}

// RecordRuleRejected counts a rejected rule by error code.
func (m *Metrics) RecordRuleRejected(code string) {
	if m == nil || m.rulesRejected == nil {
		return
	}
	m.rulesRejected.WithLabelValues(code).Inc()
}

// SetRegistrySize sets the number of rules in the active registry.
func (m *Metrics) SetRegistrySize(n int) {
	if m == nil || m.registrySize == nil {
		return
	}
	m.registrySize.Set(float64(n))
}

// Gatherer exposes the underlying registry, or nil for no-op metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil || m.registry == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// NewMetricsServer builds an HTTP server exposing the metrics endpoint.
func (m *Metrics) NewMetricsServer() *http.Server {
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	return &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
