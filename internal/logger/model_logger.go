package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ModelLogger provides dedicated logging for model fitting and prediction.
type ModelLogger struct {
	*logrus.Entry
}

// NewModelLogger creates a new model logger.
func NewModelLogger(baseLogger *logrus.Logger) *ModelLogger {
	return &ModelLogger{
		Entry: baseLogger.WithField("component", "models"),
	}
}

// LogModelFit logs a completed ensemble fit.
func (ml *ModelLogger) LogModelFit(fitID, strategy string, samples, skipped, features int, accuracy, logLoss float64, cutoff time.Time, duration time.Duration) {
	ml.WithFields(logrus.Fields{
		"fit_id":          fitID,
		"strategy":        strategy,
		"samples":         samples,
		"skipped":         skipped,
		"features":        features,
		"accuracy":        accuracy,
		"log_loss":        logLoss,
		"training_cutoff": cutoff.Format(time.RFC3339),
		"duration_ms":     duration.Milliseconds(),
	}).Info("Model ensemble fitted")
}

// LogBaseModel logs cross-validated metrics of one base model.
func (ml *ModelLogger) LogBaseModel(name string, accuracy, logLoss, weight float64) {
	ml.WithFields(logrus.Fields{
		"model":    name,
		"accuracy": accuracy,
		"log_loss": logLoss,
		"weight":   weight,
	}).Debug("Base model evaluated")
}

// LogArtifactPublished logs an atomic swap of the active artifact.
func (ml *ModelLogger) LogArtifactPublished(fitID string, fittedAt time.Time, previous string) {
	ml.WithFields(logrus.Fields{
		"fit_id":    fitID,
		"fitted_at": fittedAt.Format(time.RFC3339),
		"previous":  previous,
	}).Info("Model artifact published")
}

// LogPrediction logs one prediction request.
func (ml *ModelLogger) LogPrediction(matchID string, cacheHit bool, confidence float64) {
	ml.WithFields(logrus.Fields{
		"match_id":   matchID,
		"cache_hit":  cacheHit,
		"confidence": confidence,
	}).Debug("Prediction served")
}
