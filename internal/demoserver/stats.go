// /internal/demoserver/stats.go

package demoserver

import (
	"github.com/prometheus/client_golang/prometheus"
)

type stats struct {
	servedTotal *prometheus.CounterVec
	readLatency prometheus.Histogram
}

func newStats(registerer prometheus.Registerer) *stats {
	s := &stats{
		servedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demo_served_total",
			Help: "Total responses, by status code",
		}, []string{"code"}),
		readLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "demo_read_latency_seconds",
			Help:    "Page store read latency seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registerer.MustRegister(s.servedTotal, s.readLatency)

	return s
}
