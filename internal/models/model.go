package models

import (
	"time"

	"github.com/google/uuid"
)

// EnsembleStrategy selects how base model probabilities are combined
type EnsembleStrategy string

const (
	EnsembleWeightedVote EnsembleStrategy = "weighted_vote"
	EnsembleStacked      EnsembleStrategy = "stacked"
)

// ClassMetrics holds per-outcome precision and recall
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}

// EvaluationMetrics summarises out-of-sample performance of a classifier
type EvaluationMetrics struct {
	Samples  int                      `json:"samples"`
	Accuracy float64                  `json:"accuracy"`
	LogLoss  float64                  `json:"log_loss"`
	PerClass map[Outcome]ClassMetrics `json:"per_class"`
}

// CalibrationBin is one row of a reliability diagram
type CalibrationBin struct {
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	EmpiricalRate float64 `json:"empirical_rate"`
}

// Centre returns the midpoint of the bin
func (b CalibrationBin) Centre() float64 {
	return (b.Lower + b.Upper) / 2
}

// ModelEvaluation describes one fitted base model
type ModelEvaluation struct {
	Name               string             `json:"name"`
	Kind               string             `json:"kind"`
	CV                 EvaluationMetrics  `json:"cv"`
	Weight             float64            `json:"weight"`
	FeatureImportances map[string]float64 `json:"feature_importances,omitempty"`
}

// ModelFitReport is persisted alongside each fitted artifact
type ModelFitReport struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	FittedAt        time.Time         `db:"fitted_at" json:"fitted_at"`
	TrainingCutoff  time.Time         `db:"training_cutoff" json:"training_cutoff"`
	TrainingSamples int               `db:"training_samples" json:"training_samples"`
	Skipped         int               `db:"skipped" json:"skipped"`
	Strategy        EnsembleStrategy  `db:"strategy" json:"strategy"`
	Folds           int               `db:"folds" json:"folds"`
	Schema          []string          `db:"schema" json:"schema"`
	Models          []ModelEvaluation `db:"models" json:"models"`
	Ensemble        EvaluationMetrics `db:"ensemble" json:"ensemble"`
	Calibration     []CalibrationBin  `db:"calibration" json:"calibration"`
}

// Model returns the evaluation of a named base model
func (r *ModelFitReport) Model(name string) (ModelEvaluation, bool) {
	for _, m := range r.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelEvaluation{}, false
}
