package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sboapp_mutations_total",
		Help: "Admin mutations by entity, action and result",
	}, []string{"entity", "action", "result"})
	auditFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sboapp_audit_append_failures_total",
		Help: "Direct audit appends that failed",
	})
	outboxEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sboapp_audit_outbox_enqueued_total",
		Help: "Audit records queued for retry",
	})
	outboxDeliveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sboapp_audit_outbox_delivered_total",
		Help: "Queued audit records written on retry",
	})
	liveSubscribers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sboapp_live_subscribers",
		Help: "Open websocket subscribers per collection",
	}, []string{"collection"})
	snapshotRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sboapp_analytics_snapshots_total",
		Help: "Analytics snapshot runs by result",
	}, []string{"result"})
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sboapp_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sboapp_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		mutationsTotal,
		auditFailuresTotal,
		outboxEnqueuedTotal,
		outboxDeliveredTotal,
		liveSubscribers,
		snapshotRunsTotal,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

// ObserveMutation counts a mutation attempt; err decides the result label.
func ObserveMutation(entity, action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mutationsTotal.WithLabelValues(entity, action, result).Inc()
}

// IncAuditFailure increments the failed direct audit append counter.
func IncAuditFailure() { auditFailuresTotal.Inc() }

// IncOutboxEnqueued increments the queued audit record counter.
func IncOutboxEnqueued() { outboxEnqueuedTotal.Inc() }

// IncOutboxDelivered increments the counter of audit records written on retry.
func IncOutboxDelivered() { outboxDeliveredTotal.Inc() }

// SubscriberOpened and SubscriberClosed track open live subscriptions.
func SubscriberOpened(collection string) { liveSubscribers.WithLabelValues(collection).Inc() }

func SubscriberClosed(collection string) { liveSubscribers.WithLabelValues(collection).Dec() }

// ObserveSnapshot counts an analytics snapshot run.
func ObserveSnapshot(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	snapshotRunsTotal.WithLabelValues(result).Inc()
}

// ObserveRequest records one served request. route is the matched pattern,
// not the raw path.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
