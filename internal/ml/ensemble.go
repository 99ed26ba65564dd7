package ml

import (
	"context"
	"fmt"

	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Ensemble combines fitted base models into one 1X2 distribution
type Ensemble struct {
	Strategy models.EnsembleStrategy
	Models   []Model
	Weights  []float64
	Meta     *Softmax
}

// PredictProba returns the combined distribution of one sample
func (e *Ensemble) PredictProba(sample *features.Sample) ([]float64, error) {
	base := make([][]float64, len(e.Models))
	for m, model := range e.Models {
		p, err := model.PredictProba(sample)
		if err != nil {
			return nil, fmt.Errorf("failed to predict with %s: %w", model.Name(), err)
		}
		base[m] = p
	}
	return e.combine(base)
}

func (e *Ensemble) combine(base [][]float64) ([]float64, error) {
	switch e.Strategy {
	case models.EnsembleStacked:
		if e.Meta == nil {
			return nil, models.ErrNoModel
		}
		row := make([]float64, 0, len(base)*NumClasses)
		for _, p := range base {
			row = append(row, p...)
		}
		return e.Meta.ProbaRow(row)
	default:
		return weightedVote(base, e.Weights), nil
	}
}

// weightedVote returns Σ w_i · p_i, renormalised against rounding drift
func weightedVote(base [][]float64, weights []float64) []float64 {
	out := make([]float64, NumClasses)
	for m, p := range base {
		for c := range out {
			out[c] += weights[m] * p[c]
		}
	}
	return normalise(out)
}

// EnsembleWeights returns uniform weights or weights proportional to CV accuracy, summing to one
func EnsembleWeights(weighting string, accuracies []float64) []float64 {
	out := make([]float64, len(accuracies))
	total := 0.0
	if weighting == "accuracy" {
		for _, a := range accuracies {
			total += a
		}
	}
	for i, a := range accuracies {
		if total > 0 {
			out[i] = a / total
		} else {
			out[i] = 1 / float64(len(accuracies))
		}
	}
	return out
}

// FitEnsemble fits the final ensemble on the whole dataset. For the stacked strategy the
// meta-model learns from base predictions on the trailing holdout slice, after which the
// base models are refit on everything.
func FitEnsemble(ctx context.Context, cfg *config.ModelsConfig, factories []Factory, ds *features.Dataset, weights []float64) (*Ensemble, error) {
	e := &Ensemble{Strategy: cfg.Strategy(), Weights: weights}

	if e.Strategy == models.EnsembleStacked {
		split := int(float64(ds.Len()) * (1 - cfg.StackHoldoutFraction))
		if split < 1 || split >= ds.Len() {
			return nil, fmt.Errorf("%w: %d samples cannot be split for stacking", models.ErrInsufficientHistory, ds.Len())
		}
		bases, err := fitAll(ctx, factories, ds.Slice(0, split))
		if err != nil {
			return nil, err
		}
		holdout := &Ensemble{Models: bases}
		var x [][]float64
		var y []int
		for i := split; i < ds.Len(); i++ {
			row, err := holdout.stackRow(&ds.Samples[i])
			if err != nil {
				return nil, err
			}
			x = append(x, row)
			y = append(y, features.ClassIndex(ds.Samples[i].Label))
		}
		e.Meta = NewSoftmax(cfg.Softmax)
		if err := e.Meta.FitMatrix(x, y, NumClasses); err != nil {
			return nil, fmt.Errorf("failed to fit stacking meta-model: %w", err)
		}
	}

	fitted, err := fitAll(ctx, factories, ds)
	if err != nil {
		return nil, err
	}
	e.Models = fitted
	return e, nil
}

func (e *Ensemble) stackRow(sample *features.Sample) ([]float64, error) {
	row := make([]float64, 0, len(e.Models)*NumClasses)
	for _, model := range e.Models {
		p, err := model.PredictProba(sample)
		if err != nil {
			return nil, fmt.Errorf("failed to predict with %s: %w", model.Name(), err)
		}
		row = append(row, p...)
	}
	return row, nil
}

func fitAll(ctx context.Context, factories []Factory, ds *features.Dataset) ([]Model, error) {
	out := make([]Model, 0, len(factories))
	for _, factory := range factories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model := factory()
		if err := model.Fit(ctx, ds); err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", model.Name(), err)
		}
		out = append(out, model)
	}
	return out, nil
}

// ensembleOOF evaluates the ensemble strategy out of fold. Weighted voting combines the
// base OOF predictions directly; stacking trains the meta-model on earlier folds only.
func ensembleOOF(cfg *config.ModelsConfig, oof *oofPredictions, y []int, weights []float64) (models.EvaluationMetrics, error) {
	if cfg.Strategy() != models.EnsembleStacked {
		var probs [][]float64
		for i := oof.start; i < len(y); i++ {
			base := make([][]float64, len(oof.probs))
			for m := range oof.probs {
				base[m] = oof.probs[m][i]
			}
			probs = append(probs, weightedVote(base, weights))
		}
		return Evaluate(probs, y[oof.start:]), nil
	}

	var probs [][]float64
	var labels []int
	for f := 1; f < len(oof.folds); f++ {
		var x [][]float64
		var metaY []int
		for i := oof.start; i < oof.folds[f].TrainEnd; i++ {
			x = append(x, oof.stackRow(i))
			metaY = append(metaY, y[i])
		}
		meta := NewSoftmax(cfg.Softmax)
		if err := meta.FitMatrix(x, metaY, NumClasses); err != nil {
			return models.EvaluationMetrics{}, err
		}
		for i := oof.folds[f].TrainEnd; i < oof.folds[f].TestEnd; i++ {
			p, err := meta.ProbaRow(oof.stackRow(i))
			if err != nil {
				return models.EvaluationMetrics{}, err
			}
			probs = append(probs, p)
			labels = append(labels, y[i])
		}
	}
	return Evaluate(probs, labels), nil
}
