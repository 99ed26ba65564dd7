package metrics

import "github.com/prometheus/client_golang/prometheus"

// Advisory counter vectors
var (
	AdvicesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "advices_total",
		Help:      "Total number of advisory requests by status",
	}, []string{"status"})

	AssessmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assessments_total",
		Help:      "Total number of outcome assessments by market and label",
	}, []string{"market", "label"})

	OutcomesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcomes_skipped_total",
		Help:      "Total number of markets or outcomes skipped by reason",
	}, []string{"reason"})
)

// Advisory histograms
var (
	AdviceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "advice_duration_seconds",
		Help:      "Duration of the advisory pipeline in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	StakeFraction = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stake_fraction",
		Help:      "Recommended stake as a fraction of capital",
		Buckets:   []float64{0.01, 0.02, 0.03, 0.05, 0.075, 0.1},
	})
)

// RecordAdvice records one advisory request.
// status should be one of: "ok", "halted", "no_model", "skipped", "error"
func RecordAdvice(status string, durationSeconds float64) {
	AdvicesTotal.WithLabelValues(status).Inc()
	AdviceDuration.Observe(durationSeconds)
}

// RecordAssessment records a labelled outcome assessment.
func RecordAssessment(market, label string) {
	AssessmentsTotal.WithLabelValues(market, label).Inc()
}

// RecordStake records a sized stake.
func RecordStake(fraction float64) {
	StakeFraction.Observe(fraction)
}

// RecordOutcomeSkipped records a skipped market or outcome.
func RecordOutcomeSkipped(reason string) {
	OutcomesSkippedTotal.WithLabelValues(reason).Inc()
}
