// pkg/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civic_reports"

var (
	// Labels: method, route, status
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// Labels: status (канонічний статус після переходу)
	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "status_transitions_total",
		Help:      "Total report status changes by resulting status",
	}, []string{"status"})

	// Labels: type
	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "created_total",
		Help:      "Total notifications persisted by type",
	}, []string{"type"})

	notificationPushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "push_failures_total",
		Help:      "Real-time pushes that could not be delivered",
	})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "websocket",
		Name:      "connections",
		Help:      "Currently open websocket connections",
	})
)

func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

func RecordStatusTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

func RecordNotificationCreated(notificationType string) {
	notificationsCreated.WithLabelValues(notificationType).Inc()
}

func RecordPushFailure() {
	notificationPushFailures.Inc()
}

func WebsocketConnected() {
	websocketConnections.Inc()
}

func WebsocketDisconnected() {
	websocketConnections.Dec()
}
