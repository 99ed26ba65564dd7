// Package ml fits the outcome-probability models, combines them into an ensemble and
// publishes immutable fitted artifacts.
package ml

import (
	"context"
	"math"

	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/features"
)

// NumClasses is the size of the 1X2 outcome space
const NumClasses = 3

// Base model names
const (
	ModelPoisson  = "poisson"
	ModelSoftmax  = "softmax"
	ModelBoosting = "boosting"
)

// Predictor returns a 1X2 probability vector in canonical outcome order
type Predictor interface {
	PredictProba(sample *features.Sample) ([]float64, error)
}

// Model is a base classifier trained on a chronologically ordered dataset
type Model interface {
	Predictor
	Name() string
	Kind() string
	Fit(ctx context.Context, ds *features.Dataset) error
}

// Explainer is implemented by models that expose feature importances
type Explainer interface {
	FeatureImportances() map[string]float64
}

// Factory creates an unfitted model
type Factory func() Model

// Factories returns the base model roster for the configuration
func Factories(cfg *config.ModelsConfig) []Factory {
	return []Factory{
		func() Model { return NewPoissonModel(cfg.Poisson) },
		func() Model { return NewSoftmax(cfg.Softmax) },
		func() Model { return NewBoosting(cfg.Boosting) },
	}
}

func softmaxInPlace(z []float64) {
	maxZ := math.Inf(-1)
	for _, v := range z {
		if v > maxZ {
			maxZ = v
		}
	}
	sum := 0.0
	for i, v := range z {
		z[i] = math.Exp(v - maxZ)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}

func normalise(p []float64) []float64 {
	out := make([]float64, len(p))
	sum := 0.0
	for _, v := range p {
		sum += v
	}
	for i, v := range p {
		if sum > 0 {
			out[i] = v / sum
		} else {
			out[i] = 1 / float64(len(p))
		}
	}
	return out
}

// normaliseImportances scales non-negative scores to sum to one
func normaliseImportances(schema []string, scores []float64) map[string]float64 {
	total := 0.0
	for _, s := range scores {
		total += s
	}
	out := make(map[string]float64, len(schema))
	for i, name := range schema {
		if total > 0 {
			out[name] = scores[i] / total
		} else {
			out[name] = 0
		}
	}
	return out
}
