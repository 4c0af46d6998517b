// Package metrics exposes Prometheus metrics for instance acquisition and the key server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
)

// Metrics holds the collectors of one process. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	acquisitions        *prometheus.CounterVec
	acquisitionDuration *prometheus.HistogramVec
	statusTransitions   *prometheus.CounterVec
	keyCacheLookups     *prometheus.CounterVec
	keyCacheWrites      *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fhevm",
			Name:      "acquisitions_total",
			Help:      "Instance acquisitions by path and outcome.",
		}, []string{"path", "outcome"}),
		acquisitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fhevm",
			Name:      "acquisition_duration_seconds",
			Help:      "Time spent acquiring an instance.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"path"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fhevm",
			Name:      "status_transitions_total",
			Help:      "Lifecycle statuses emitted during acquisitions.",
		}, []string{"status"}),
		keyCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keycache",
			Name:      "lookups_total",
			Help:      "Public key cache reads by outcome.",
		}, []string{"outcome"}),
		keyCacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keycache",
			Name:      "writes_total",
			Help:      "Public key cache writes by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keyserver",
			Name:      "requests_total",
			Help:      "Key server requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.acquisitions,
		m.acquisitionDuration,
		m.statusTransitions,
		m.keyCacheLookups,
		m.keyCacheWrites,
		m.httpRequests,
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAcquisition records a finished acquisition.
func (m *Metrics) ObserveAcquisition(path, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.acquisitions.WithLabelValues(path, outcome).Inc()
	m.acquisitionDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// StatusTransition records an emitted lifecycle status.
func (m *Metrics) StatusTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status).Inc()
}

// KeyCacheLookup records a cache read.
func (m *Metrics) KeyCacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.keyCacheLookups.WithLabelValues(outcome).Inc()
}

// KeyCacheWrite records a cache write.
func (m *Metrics) KeyCacheWrite(outcome string) {
	if m == nil {
		return
	}
	m.keyCacheWrites.WithLabelValues(outcome).Inc()
}

// HTTPRequest records a served key server request.
func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusCode(code)).Inc()
}
