package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
	refresh  *prometheus.CounterVec
	waiting  prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	ret := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apiclient",
			Name:      "requests_total",
			Help:      "Dispatched API requests by status code and attempt (0 first, 1 replay).",
		}, []string{"code", "attempt"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apiclient",
			Name:      "request_duration_seconds",
			Help:      "Duration of a single dispatch.",
			Buckets:   prometheus.DefBuckets,
		}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apiclient",
			Name:      "refresh_total",
			Help:      "Token refresh calls by outcome.",
		}, []string{"outcome"}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "apiclient",
			Name:      "refresh_waiters",
			Help:      "Calls currently waiting for a token refresh.",
		}),
	}
	if registerer == nil {
		return ret, nil
	}
	for _, collector := range []prometheus.Collector{ret.requests, ret.duration, ret.refresh, ret.waiting} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return ret, nil
}
