// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Presale metrics
	MintsTotal       *prometheus.CounterVec
	RejectionsTotal  *prometheus.CounterVec
	PaymentsLamports *prometheus.CounterVec
	TierRemaining    *prometheus.GaugeVec
	MintLatency      *prometheus.HistogramVec

	// Event delivery metrics
	EventsPublished   *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	StreamSubscribers prometheus.Gauge

	// API metrics
	HTTPRequests *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "vigri_presale"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		MintsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "issued_total",
			Help:      "Total number of tokens issued by tier and path",
		}, []string{"tier", "path"}),
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "rejections_total",
			Help:      "Total number of rejected requests by operation and error code",
		}, []string{"operation", "code"}),
		PaymentsLamports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "payments_lamports_total",
			Help:      "Total lamports collected on the public path by tier",
		}, []string{"tier"}),
		TierRemaining: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "tier_remaining",
			Help:      "Remaining supply per tier after the last committed mint",
		}, []string{"tier"}),
		MintLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "latency_seconds",
			Help:      "Mint unit latency in seconds, including the store round trip",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of mint events delivered by sink",
		}, []string{"sink"}),
		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Total number of mint event deliveries that failed by sink",
		}, []string{"sink"}),
		StreamSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "stream_subscribers",
			Help:      "Current number of websocket event stream subscribers",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status",
		}, []string{"route", "status"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "unit_duration_seconds",
			Help:      "Atomic unit duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "unit_errors_total",
			Help:      "Total number of atomic units that failed in the substrate",
		}, []string{"backend"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordMint records a committed mint and the tier's remaining supply.
func RecordMint(tier, path string, remaining uint16, seconds float64) {
	DefaultMetrics.MintsTotal.WithLabelValues(tier, path).Inc()
	DefaultMetrics.TierRemaining.WithLabelValues(tier).Set(float64(remaining))
	DefaultMetrics.MintLatency.WithLabelValues(path).Observe(seconds)
}

// RecordPayment adds collected lamports for a tier.
func RecordPayment(tier string, lamports uint64) {
	DefaultMetrics.PaymentsLamports.WithLabelValues(tier).Add(float64(lamports))
}

// RecordRejection records a request rejected with a stable error code.
func RecordRejection(operation, code string) {
	DefaultMetrics.RejectionsTotal.WithLabelValues(operation, code).Inc()
}

// RecordPublish records the outcome of delivering one event to a sink.
func RecordPublish(sink string, err error) {
	if err != nil {
		DefaultMetrics.PublishFailures.WithLabelValues(sink).Inc()
		return
	}
	DefaultMetrics.EventsPublished.WithLabelValues(sink).Inc()
}

// UpdateSubscribers sets the websocket subscriber gauge.
func UpdateSubscribers(n int) {
	DefaultMetrics.StreamSubscribers.Set(float64(n))
}

// RecordHTTPRequest records an API request outcome.
func RecordHTTPRequest(route string, status int) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, http.StatusText(status)).Inc()
}

// RecordDBUnit records atomic unit metrics.
func RecordDBUnit(backend string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(backend).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(backend).Inc()
	}
}
