package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Issuance outcomes.
const (
	OutcomeIssued        = "issued"
	OutcomeRejected      = "rejected"
	OutcomeAlreadyIssued = "already_issued"
	OutcomeFailed        = "failed"
)

// Share results.
const (
	ShareSucceeded = "succeeded"
	ShareFailed    = "failed"
	ShareQueued    = "queued"
	ShareDropped   = "dropped"
)

// Metrics holds the Prometheus metrics for badge issuance. All methods are
// safe on a nil receiver so callers may run without metrics.
type Metrics struct {
	Issuances       *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	IssuanceLatency prometheus.Histogram
	UploadLatency   *prometheus.HistogramVec
	Shares          *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issuances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgeworks_issuances_total",
			Help: "Issuance attempts, labeled by outcome",
		}, []string{"outcome"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgeworks_rejections_total",
			Help: "Requests rejected by validation, labeled by reason",
		}, []string{"reason"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgeworks_issuance_failures_total",
			Help: "Issuance failures, labeled by pipeline stage",
		}, []string{"stage"}),
		IssuanceLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "badgeworks_issuance_duration_seconds",
			Help:    "Duration of successful issuances",
			Buckets: prometheus.DefBuckets,
		}),
		UploadLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "badgeworks_artifact_upload_duration_seconds",
			Help:    "Artifact upload duration, labeled by content type",
			Buckets: prometheus.DefBuckets,
		}, []string{"content_type"}),
		Shares: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "badgeworks_shares_total",
			Help: "LinkedIn share attempts, labeled by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveIssued(d time.Duration) {
	if m == nil {
		return
	}
	m.Issuances.WithLabelValues(OutcomeIssued).Inc()
	m.IssuanceLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.Issuances.WithLabelValues(OutcomeRejected).Inc()
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveAlreadyIssued() {
	if m == nil {
		return
	}
	m.Issuances.WithLabelValues(OutcomeAlreadyIssued).Inc()
}

func (m *Metrics) ObserveFailed(stage string) {
	if m == nil {
		return
	}
	m.Issuances.WithLabelValues(OutcomeFailed).Inc()
	m.Failures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveUpload(contentType string, d time.Duration) {
	if m == nil {
		return
	}
	m.UploadLatency.WithLabelValues(contentType).Observe(d.Seconds())
}

func (m *Metrics) ObserveShare(result string) {
	if m == nil {
		return
	}
	m.Shares.WithLabelValues(result).Inc()
}
