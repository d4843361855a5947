package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the HTTP latency histogram on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgeworks_http_request_duration_seconds",
			Help:    "Latency of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) ObserveRequest(route, method string, status int, durationSeconds float64) {
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(durationSeconds)
}
