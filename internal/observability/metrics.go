package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the Prometheus collectors exported by the service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	requestCount      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errorCount        *prometheus.CounterVec
	entitlementResult *prometheus.CounterVec
	overdueTickets    prometheus.Gauge
	escalations       *prometheus.CounterVec
	expiredDomains    prometheus.Counter
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		entitlementResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entitlement_decisions_total",
			Help: "Entitlement gate decisions by action and result code.",
		}, []string{"action", "result"}),
		overdueTickets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sla_overdue_tickets",
			Help: "Unresolved tickets past their response window at the last sweep.",
		}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_ticket_escalations_total",
			Help: "Ticket escalations by resulting priority and trigger.",
		}, []string{"priority", "trigger"}),
		expiredDomains: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "domains_expired_total",
			Help: "Domains moved to expired by the expiry sweep.",
		}),
	}
	m.registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.entitlementResult,
		m.overdueTickets,
		m.escalations,
		m.expiredDomains,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordEntitlement counts a gate decision. result is "allowed" or the denial code.
func (m *Metrics) RecordEntitlement(action, result string) {
	if m == nil {
		return
	}
	m.entitlementResult.WithLabelValues(action, result).Inc()
}

// SetOverdueTickets publishes the latest overdue count.
func (m *Metrics) SetOverdueTickets(count int) {
	if m == nil {
		return
	}
	m.overdueTickets.Set(float64(count))
}

// RecordEscalation counts a priority escalation.
func (m *Metrics) RecordEscalation(priority, trigger string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(priority, trigger).Inc()
}

// RecordDomainsExpired counts domains marked expired.
func (m *Metrics) RecordDomainsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredDomains.Add(float64(n))
}
