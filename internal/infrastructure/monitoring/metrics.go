package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "livebox"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Engine metrics
	Rebuilds        *prometheus.CounterVec
	RebuildFailures *prometheus.CounterVec
	RebuildsSkipped prometheus.Counter
	LoadSeconds     prometheus.Histogram
	ConsoleEvents   *prometheus.CounterVec
	MessagesDropped *prometheus.CounterVec
	Instances       prometheus.Gauge

	// Operation metrics
	OperationCalls    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats endpoint
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	Rebuilds          int64   `json:"rebuilds"`
	RebuildFailures   int64   `json:"rebuild_failures"`
	ConsoleEvents     int64   `json:"console_events"`
	DroppedMessages   int64   `json:"dropped_messages"`
	LiveInstances     int64   `json:"live_instances"`
	ActiveConnections int64   `json:"active_connections"`
	AvgLoadSeconds    float64 `json:"avg_load_seconds"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	loadTotal float64
	loads     int64
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Engine metrics
		Rebuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rebuilds_total",
				Help:      "Rebuilds started, by trigger",
			},
			[]string{"trigger"},
		),
		RebuildFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rebuild_failures_total",
				Help:      "Rebuilds whose document failed to commit",
			},
			[]string{"reason"},
		),
		RebuildsSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rebuilds_skipped_total",
				Help:      "Submitted bundles equal to the last built one",
			},
		),
		LoadSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Time from rebuild start to committed handle",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		ConsoleEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "console_events_total",
				Help:      "Console events relayed from the sandbox, by level",
			},
			[]string{"level"},
		),
		MessagesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_dropped_total",
				Help:      "Boundary messages dropped by the relay, by reason",
			},
			[]string{"reason"},
		),
		Instances: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sandbox_instances",
				Help:      "Live sandbox instances",
			},
		),

		// Operation metrics
		OperationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_calls_total",
				Help:      "Total number of domain operations",
			},
			[]string{"component", "operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Domain operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"component", "operation"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordOperation records a domain operation
func (m *Metrics) RecordOperation(component, operation, status string, duration time.Duration) {
	m.OperationCalls.WithLabelValues(component, operation, status).Inc()
	m.OperationDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// RebuildStarted counts a rebuild
func (m *Metrics) RebuildStarted(trigger string) {
	m.Rebuilds.WithLabelValues(trigger).Inc()
	m.mu.Lock()
	m.snapshot.Rebuilds++
	m.mu.Unlock()
}

// RebuildFailed counts a commit failure
func (m *Metrics) RebuildFailed(reason string) {
	m.RebuildFailures.WithLabelValues(reason).Inc()
	m.mu.Lock()
	m.snapshot.RebuildFailures++
	m.mu.Unlock()
}

// RebuildSkipped counts an unchanged submission
func (m *Metrics) RebuildSkipped() {
	m.RebuildsSkipped.Inc()
}

// LoadDuration observes one load
func (m *Metrics) LoadDuration(d time.Duration) {
	m.LoadSeconds.Observe(d.Seconds())
	m.mu.Lock()
	m.snapshot.loadTotal += d.Seconds()
	m.snapshot.loads++
	m.mu.Unlock()
}

// ConsoleEvent counts a relayed console event
func (m *Metrics) ConsoleEvent(level string) {
	m.ConsoleEvents.WithLabelValues(level).Inc()
	m.mu.Lock()
	m.snapshot.ConsoleEvents++
	m.mu.Unlock()
}

// MessageDropped counts a dropped boundary message
func (m *Metrics) MessageDropped(reason string) {
	m.MessagesDropped.WithLabelValues(reason).Inc()
	m.mu.Lock()
	m.snapshot.DroppedMessages++
	m.mu.Unlock()
}

// LiveInstances sets the live instance gauge
func (m *Metrics) LiveInstances(n int) {
	m.Instances.Set(float64(n))
	m.mu.Lock()
	m.snapshot.LiveInstances = int64(n)
	m.mu.Unlock()
}
