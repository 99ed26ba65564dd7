package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by refit cadence and status",
	}, []string{"cadence", "status"})
)

// Backtest histograms
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// Backtest gauge vectors
var (
	BacktestROI = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_roi",
		Help:      "Final ROI of the latest backtest per risk level",
	}, []string{"risk_level"})

	BacktestRiskScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_risk_adjusted_score",
		Help:      "ROI divided by max drawdown of the latest backtest per risk level",
	}, []string{"risk_level"})
)

// RecordBacktestRun records a backtest run event.
// status should be one of: "success", "failure", "cancelled"
func RecordBacktestRun(cadence, status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(cadence, status).Inc()
	BacktestDuration.Observe(durationSeconds)
}

// UpdateRiskSweep records the sweep result of one risk level.
func UpdateRiskSweep(riskLevel string, roi, score float64) {
	BacktestROI.WithLabelValues(riskLevel).Set(roi)
	BacktestRiskScore.WithLabelValues(riskLevel).Set(score)
}
