package ml

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal tracks match predictions served
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_model_predictions_total",
			Help: "Total number of match predictions served",
		},
		[]string{"strategy", "cache_hit"},
	)

	// PredictionLatency tracks feature building plus inference time
	PredictionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_model_prediction_latency_seconds",
			Help:    "Prediction latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// PredictionCacheHitRatio tracks cache hit ratio
	PredictionCacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_model_cache_hit_ratio",
			Help: "Prediction cache hit ratio",
		},
	)

	// ModelFitsTotal tracks fit attempts
	ModelFitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_model_fits_total",
			Help: "Total number of model fits",
		},
		[]string{"strategy", "status"}, // success, failure
	)

	// ModelFitDuration tracks how long fits take
	ModelFitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "advisor_model_fit_duration_seconds",
			Help:    "Model fit duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// ModelCVAccuracy tracks out-of-fold accuracy per base model and for the ensemble
	ModelCVAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "advisor_model_cv_accuracy",
			Help: "Cross-validated accuracy of the latest fit",
		},
		[]string{"model"},
	)

	// ModelCVLogLoss tracks out-of-fold log-loss per base model and for the ensemble
	ModelCVLogLoss = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "advisor_model_cv_log_loss",
			Help: "Cross-validated log-loss of the latest fit",
		},
		[]string{"model"},
	)
)
