package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "formgateway"

// Metrics holds the gateway's own metrics. All Record methods are safe on a nil
// receiver so metrics stay optional for every component.
type Metrics struct {
	HandlerCalls           *prometheus.CounterVec
	HandlerDuration        *prometheus.HistogramVec
	PipelineRuns           *prometheus.CounterVec
	PipelineDuration       prometheus.Histogram
	NotificationsPublished *prometheus.CounterVec
	NotificationsReceived  prometheus.Counter
	StoreWrites            *prometheus.CounterVec
	HTTPRequests           *prometheus.CounterVec
	NATSConnected          prometheus.Gauge
}

// NewMetrics creates the gateway metrics without registering them.
func NewMetrics() *Metrics {
	return &Metrics{
		HandlerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "handler",
				Name:      "calls_total",
				Help:      "Handler capability calls by outcome (supported, not_supported, failed)",
			},
			[]string{"handler", "capability", "outcome"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "handler",
				Name:      "call_duration_seconds",
				Help:      "Handler capability call latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"handler", "capability"},
		),
		PipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Event pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		PipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Event pipeline latency from validation to result",
				Buckets:   prometheus.DefBuckets,
			},
		),
		NotificationsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "published_total",
				Help:      "Notification publish attempts by status",
			},
			[]string{"status"},
		),
		NotificationsReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "received_total",
				Help:      "Notifications received by the consumer",
			},
		),
		StoreWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "writes_total",
				Help:      "Single-record store upserts by status",
			},
			[]string{"status"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HandlerCalls,
		m.HandlerDuration,
		m.PipelineRuns,
		m.PipelineDuration,
		m.NotificationsPublished,
		m.NotificationsReceived,
		m.StoreWrites,
		m.HTTPRequests,
		m.NATSConnected,
	}
}

// RecordHandlerCall counts one capability call and observes its latency.
func (m *Metrics) RecordHandlerCall(handlerName, capability, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.HandlerCalls.WithLabelValues(handlerName, capability, outcome).Inc()
	m.HandlerDuration.WithLabelValues(handlerName, capability).Observe(d.Seconds())
}

// RecordPipelineRun counts one pipeline run.
func (m *Metrics) RecordPipelineRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(d.Seconds())
}

// RecordNotification counts a publish attempt.
func (m *Metrics) RecordNotification(status string) {
	if m == nil {
		return
	}
	m.NotificationsPublished.WithLabelValues(status).Inc()
}

// RecordNotificationReceived counts a consumed notification.
func (m *Metrics) RecordNotificationReceived() {
	if m == nil {
		return
	}
	m.NotificationsReceived.Inc()
}

// RecordStoreWrite counts an upsert.
func (m *Metrics) RecordStoreWrite(status string) {
	if m == nil {
		return
	}
	m.StoreWrites.WithLabelValues(status).Inc()
}

// RecordHTTPRequest counts a served request.
func (m *Metrics) RecordHTTPRequest(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}

// RecordNATSStatus sets the connection gauge.
func (m *Metrics) RecordNATSStatus(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.NATSConnected.Set(1)
	} else {
		m.NATSConnected.Set(0)
	}
}
