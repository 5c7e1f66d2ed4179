package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the VAS service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Backend metrics
	BackendCalls        *prometheus.CounterVec
	BackendCallDuration *prometheus.HistogramVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
	JournalWrites   *prometheus.CounterVec
	OutboxBacklog   prometheus.Gauge

	// Business metrics
	ActiveSessions       prometheus.Gauge
	TasksExecuted        *prometheus.CounterVec
	TasksUndone          *prometheus.CounterVec
	AllocationsCommitted *prometheus.CounterVec
	AllocatedQuantity    prometheus.Counter
	OrdersCompleted      *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance with its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	service := prometheus.Labels{"service": config.ServiceName}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"service", "method", "path"}),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed", ConstLabels: service,
		}),

		BackendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "vas", Name: "backend_calls_total",
			Help: "Worksheet backend round trips by operation and outcome",
		}, []string{"service", "operation", "status"}),
		BackendCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "vas", Name: "backend_call_duration_seconds",
			Help:    "Worksheet backend round trip latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "operation"}),

		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "kafka_events_published_total",
			Help: "Total number of Kafka events published",
		}, []string{"service", "topic", "event_type", "status"}),
		JournalWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "vas", Name: "journal_writes_total",
			Help: "Execution journal writes by action and outcome",
		}, []string{"service", "action", "status"}),
		OutboxBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "vas", Name: "outbox_backlog",
			Help: "Unpublished outbox events seen by the last poll", ConstLabels: service,
		}),

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "vas", Name: "active_sessions",
			Help: "Open execution sessions", ConstLabels: service,
		}),
		TasksExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "vas", Name: "tasks_executed_total",
			Help: "VAS tasks moved to done",
		}, []string{"service", "guide"}),
		TasksUndone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "vas", Name: "tasks_undone_total",
			Help: "VAS tasks reopened by undo",
		}, []string{"service", "target_status"}),
		AllocationsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "vas", Name: "allocations_committed_total",
			Help: "Inventory allocations assigned to task groups",
		}, []string{"service", "mode"}),
		AllocatedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "vas", Name: "allocated_quantity_total",
			Help: "Units of inventory assigned to VAS tasks", ConstLabels: service,
		}),
		OrdersCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "vas", Name: "orders_completed_total",
			Help: "VAS orders closed",
		}, []string{"service", "trigger"}),

		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"service", "name"}),
		CircuitBreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		}, []string{"service", "name"}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.BackendCalls,
		m.BackendCallDuration,
		m.EventsPublished,
		m.JournalWrites,
		m.OutboxBacklog,
		m.ActiveSessions,
		m.TasksExecuted,
		m.TasksUndone,
		m.AllocationsCommitted,
		m.AllocatedQuantity,
		m.OrdersCompleted,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordBackendCall records one worksheet backend round trip
func (m *Metrics) RecordBackendCall(operation string, success bool, duration time.Duration) {
	m.BackendCalls.WithLabelValues(m.serviceName, operation, outcome(success)).Inc()
	m.BackendCallDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

// RecordEventPublished records a Kafka publish attempt
func (m *Metrics) RecordEventPublished(topic, eventType string, success bool) {
	m.EventsPublished.WithLabelValues(m.serviceName, topic, eventType, outcome(success)).Inc()
}

// RecordJournalWrite records an execution journal write
func (m *Metrics) RecordJournalWrite(action string, success bool) {
	m.JournalWrites.WithLabelValues(m.serviceName, action, outcome(success)).Inc()
}

// RecordTaskExecuted counts a task reaching done
func (m *Metrics) RecordTaskExecuted(guide string) {
	if guide == "" {
		guide = "none"
	}
	m.TasksExecuted.WithLabelValues(m.serviceName, guide).Inc()
}

// RecordTaskUndone counts a reopened task
func (m *Metrics) RecordTaskUndone(targetStatus string) {
	m.TasksUndone.WithLabelValues(m.serviceName, targetStatus).Inc()
}

// RecordAllocationCommitted counts an assigned allocation and its quantity
func (m *Metrics) RecordAllocationCommitted(mode string, qty int) {
	m.AllocationsCommitted.WithLabelValues(m.serviceName, mode).Inc()
	m.AllocatedQuantity.Add(float64(qty))
}

// RecordOrderCompleted counts a closed order by trigger (manual or auto)
func (m *Metrics) RecordOrderCompleted(trigger string) {
	m.OrdersCompleted.WithLabelValues(m.serviceName, trigger).Inc()
}

// SetCircuitBreakerState sets circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
