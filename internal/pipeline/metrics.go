package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline throughput and evidence health.
type Metrics struct {
	Evaluations      *prometheus.CounterVec
	Duration         prometheus.Histogram
	LayerUnavailable *prometheus.CounterVec
	FinalScore       prometheus.Histogram
}

// NewMetrics registers the pipeline metrics on a registerer. Pass
// prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavs",
			Name:      "evaluations_total",
			Help:      "Completed evaluations by content type and risk level.",
		}, []string{"content_type", "risk_level"}),

		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lavs",
			Name:      "evaluation_duration_seconds",
			Help:      "End-to-end evaluation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		LayerUnavailable: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lavs",
			Name:      "layer_unavailable_total",
			Help:      "Evidence layers that failed or timed out, by layer.",
		}, []string{"layer"}),

		FinalScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lavs",
			Name:      "final_score",
			Help:      "Distribution of final risk scores.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}
