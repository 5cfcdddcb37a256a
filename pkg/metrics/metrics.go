// Package metrics exposes Prometheus instrumentation for the assistant service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the swift service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	StageDuration    *prometheus.HistogramVec
	StageFailures    *prometheus.CounterVec
	ExchangesTotal   prometheus.Counter
	AudioBytesServed prometheus.Counter

	// Event feed
	EventSubscribers prometheus.Gauge
}

// New creates all metrics on a private registry, along with the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swift_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swift_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, including streamed bodies",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}, []string{"route"}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swift_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "swift_stage_failures_total",
			Help: "Provider failures by pipeline stage",
		}, []string{"stage"}),
		ExchangesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "swift_exchanges_total",
			Help: "Total number of completed exchanges",
		}),
		AudioBytesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "swift_audio_bytes_served_total",
			Help: "Bytes of synthesized audio written to clients",
		}),

		EventSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "swift_event_subscribers",
			Help: "Current number of event feed subscribers",
		}),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one finished HTTP request.
func (m *Metrics) RecordRequest(route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordStage records one pipeline stage. It matches the signature of the
// pipeline's stage hook.
func (m *Metrics) RecordStage(stage string, d time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}
