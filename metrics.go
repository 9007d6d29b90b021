package mtproto

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsRegistry is a private registry rather than the global default one,
// so embedding this engine in a larger process never collides with metric
// names that process already registers.
var metricsRegistry = prometheus.NewRegistry()

// MetricsRegistry exposes the engine's private Prometheus registry so a host
// process can mount it under its own /metrics handler.
func MetricsRegistry() *prometheus.Registry {
	return metricsRegistry
}

const metricsNamespace = "mtproto"

var (
	messagesSent = promauto.With(metricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "messages",
			Name:      "sent_total",
			Help:      "Total number of TL messages sent, by content-relatedness.",
		},
		[]string{"content_related"},
	)

	messagesReceived = promauto.With(metricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "messages",
			Name:      "received_total",
			Help:      "Total number of TL messages received.",
		},
		[]string{"constructor"},
	)

	rpcErrors = promauto.With(metricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "rpc",
			Name:      "errors_total",
			Help:      "Total number of rpc_error replies, by error code.",
		},
		[]string{"code"},
	)

	reconnects = promauto.With(metricsRegistry).NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "connection",
			Name:      "reconnects_total",
			Help:      "Total number of times the connection to a DC was re-established.",
		},
	)

	authKeyExchangeDuration = promauto.With(metricsRegistry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "authkey",
			Name:      "exchange_duration_seconds",
			Help:      "Time spent negotiating a fresh auth_key with a DC.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	pendingMessages = promauto.With(metricsRegistry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "messages",
			Name:      "pending",
			Help:      "Number of sent messages awaiting a response or ack.",
		},
	)
)
