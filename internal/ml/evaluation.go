package ml

import (
	"context"
	"fmt"
	"math"

	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/models"
)

// CalibrationBinWidth is the width of each reliability-diagram bin
const CalibrationBinWidth = 0.1

const logLossClip = 1e-15

// Fold is one forward-in-time split: train on [0, TrainEnd), test on [TrainEnd, TestEnd)
type Fold struct {
	TrainEnd int
	TestEnd  int
}

// TimeSeriesFolds cuts n chronologically ordered samples into folds+1 chunks. Fold f
// trains on the first f+1 chunks and tests on the next one; the last fold absorbs the remainder.
func TimeSeriesFolds(n, folds int) ([]Fold, error) {
	if folds < 1 {
		return nil, fmt.Errorf("%w: need at least one fold", models.ErrInvalidInputs)
	}
	size := n / (folds + 1)
	if size < 1 {
		return nil, fmt.Errorf("%w: %d samples cannot fill %d folds", models.ErrInsufficientHistory, n, folds)
	}
	out := make([]Fold, folds)
	for f := 0; f < folds; f++ {
		out[f] = Fold{TrainEnd: (f + 1) * size, TestEnd: (f + 2) * size}
	}
	out[folds-1].TestEnd = n
	return out, nil
}

// Evaluate computes accuracy, multiclass log-loss and per-class precision/recall
func Evaluate(probs [][]float64, y []int) models.EvaluationMetrics {
	outcomes := models.MarketMatchResult.Outcomes()
	metrics := models.EvaluationMetrics{Samples: len(y), PerClass: make(map[models.Outcome]models.ClassMetrics, len(outcomes))}
	if len(y) == 0 {
		return metrics
	}

	tp := make([]int, len(outcomes))
	predicted := make([]int, len(outcomes))
	support := make([]int, len(outcomes))
	correct := 0
	loss := 0.0
	for i, p := range probs {
		guess := argmax(p)
		predicted[guess]++
		support[y[i]]++
		if guess == y[i] {
			correct++
			tp[guess]++
		}
		loss -= math.Log(math.Min(1-logLossClip, math.Max(logLossClip, p[y[i]])))
	}

	metrics.Accuracy = float64(correct) / float64(len(y))
	metrics.LogLoss = loss / float64(len(y))
	for c, o := range outcomes {
		cm := models.ClassMetrics{Support: support[c]}
		if predicted[c] > 0 {
			cm.Precision = float64(tp[c]) / float64(predicted[c])
		}
		if support[c] > 0 {
			cm.Recall = float64(tp[c]) / float64(support[c])
		}
		metrics.PerClass[o] = cm
	}
	return metrics
}

// Calibration bins every class probability and compares the mean prediction with the
// empirical frequency of that class.
func Calibration(probs [][]float64, y []int) []models.CalibrationBin {
	nBins := int(math.Round(1 / CalibrationBinWidth))
	sumP := make([]float64, nBins)
	hits := make([]int, nBins)
	counts := make([]int, nBins)
	for i, p := range probs {
		for c, v := range p {
			b := int(v / CalibrationBinWidth)
			if b >= nBins {
				b = nBins - 1
			}
			if b < 0 {
				b = 0
			}
			counts[b]++
			sumP[b] += v
			if y[i] == c {
				hits[b]++
			}
		}
	}

	out := make([]models.CalibrationBin, 0, nBins)
	for b := 0; b < nBins; b++ {
		bin := models.CalibrationBin{
			Lower: float64(b) * CalibrationBinWidth,
			Upper: float64(b+1) * CalibrationBinWidth,
			Count: counts[b],
		}
		if counts[b] > 0 {
			bin.MeanPredicted = sumP[b] / float64(counts[b])
			bin.EmpiricalRate = float64(hits[b]) / float64(counts[b])
		}
		out = append(out, bin)
	}
	return out
}

// oofPredictions holds out-of-fold predictions of every base model
type oofPredictions struct {
	folds []Fold
	// probs[m][i] is model m's prediction for sample i, nil outside the test folds
	probs [][][]float64
	start int
}

// crossValidate fits a fresh instance of every model on each fold's training slice and
// predicts its test slice.
func crossValidate(ctx context.Context, factories []Factory, ds *features.Dataset, folds int) (*oofPredictions, error) {
	splits, err := TimeSeriesFolds(ds.Len(), folds)
	if err != nil {
		return nil, err
	}
	oof := &oofPredictions{folds: splits, probs: make([][][]float64, len(factories)), start: splits[0].TrainEnd}
	for m := range factories {
		oof.probs[m] = make([][]float64, ds.Len())
	}

	for _, fold := range splits {
		train := ds.Slice(0, fold.TrainEnd)
		for m, factory := range factories {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			model := factory()
			if err := model.Fit(ctx, train); err != nil {
				return nil, fmt.Errorf("failed to fit %s on fold ending %d: %w", model.Name(), fold.TrainEnd, err)
			}
			for i := fold.TrainEnd; i < fold.TestEnd; i++ {
				p, err := model.PredictProba(&ds.Samples[i])
				if err != nil {
					return nil, fmt.Errorf("failed to predict with %s: %w", model.Name(), err)
				}
				oof.probs[m][i] = p
			}
		}
	}
	return oof, nil
}

// modelMetrics evaluates one base model over the covered samples
func (o *oofPredictions) modelMetrics(m int, y []int) models.EvaluationMetrics {
	return Evaluate(o.probs[m][o.start:], y[o.start:])
}

// stackRow concatenates base predictions of one sample
func (o *oofPredictions) stackRow(i int) []float64 {
	row := make([]float64, 0, len(o.probs)*NumClasses)
	for m := range o.probs {
		row = append(row, o.probs[m][i]...)
	}
	return row
}

func argmax(p []float64) int {
	best := 0
	for i := range p {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}
