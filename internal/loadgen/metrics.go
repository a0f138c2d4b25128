// /internal/loadgen/metrics.go

package loadgen

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks what workers sent.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestLatency  prometheus.Histogram
	TransportErrors prometheus.Counter
	ActiveWorkers   prometheus.Gauge
}

// NewMetrics creates the loadgen metrics and registers them with registerer.
// Call once per registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadgen_requests_total",
			Help: "Requests that received a response, by status code",
		}, []string{"code"}),
		RequestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loadgen_request_latency_seconds",
			Help:    "Request latency seconds",
			Buckets: prometheus.DefBuckets,
		}),
		TransportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadgen_transport_errors_total",
			Help: "Requests that failed without a response",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadgen_active_workers",
			Help: "Workers currently running their request loop",
		}),
	}

	registerer.MustRegister(metrics.Requests,
		metrics.RequestLatency,
		metrics.TransportErrors,
		metrics.ActiveWorkers)

	return metrics
}

func (m *Metrics) observeResponse(statusCode int, latency time.Duration) {
	m.Requests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	m.RequestLatency.Observe(latency.Seconds())
}
