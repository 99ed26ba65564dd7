package ml

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/models"
)

// separable builds a dataset whose class is decided by the first feature; the second is noise
// and the third constant.
func separable(n int, seed int64) *features.Dataset {
	rng := rand.New(rand.NewSource(seed))
	outcomes := models.MarketMatchResult.Outcomes()
	ds := &features.Dataset{Schema: []string{"signal", "noise", "constant"}}
	for i := 0; i < n; i++ {
		class := i % 3
		x := []float64{float64(class)*2 + rng.NormFloat64()*0.3, rng.NormFloat64(), 1}
		ds.Samples = append(ds.Samples, features.Sample{
			Match:  models.Match{ID: "m"},
			Vector: models.FeatureVector{Schema: ds.Schema, Values: x},
			Label:  outcomes[class],
		})
	}
	return ds
}

func accuracyOn(t *testing.T, model Predictor, ds *features.Dataset) float64 {
	t.Helper()
	probs := make([][]float64, ds.Len())
	for i := range ds.Samples {
		p, err := model.PredictProba(&ds.Samples[i])
		require.NoError(t, err)
		require.Len(t, p, NumClasses)
		assert.InDelta(t, 1.0, p[0]+p[1]+p[2], 1e-9)
		probs[i] = p
	}
	return Evaluate(probs, ds.Y()).Accuracy
}

func TestSoftmaxLearnsSeparableClasses(t *testing.T) {
	model := NewSoftmax(config.SoftmaxConfig{LearningRate: 0.5, Epochs: 300, L2: 0.001})
	require.NoError(t, model.Fit(context.Background(), separable(300, 1)))

	assert.Greater(t, accuracyOn(t, model, separable(150, 2)), 0.9)

	imp := model.FeatureImportances()
	require.Len(t, imp, 3)
	assert.Greater(t, imp["signal"], imp["noise"])
	assert.InDelta(t, 0, imp["constant"], 1e-9)
}

func TestBoostingLearnsSeparableClasses(t *testing.T) {
	model := NewBoosting(config.BoostingConfig{Rounds: 40, LearningRate: 0.2, MinLeaf: 5, Bins: 16})
	require.NoError(t, model.Fit(context.Background(), separable(300, 3)))

	assert.Greater(t, accuracyOn(t, model, separable(150, 4)), 0.9)

	imp := model.FeatureImportances()
	assert.Greater(t, imp["signal"], imp["noise"])
	assert.Zero(t, imp["constant"])
}

func TestClassifiersRequireFit(t *testing.T) {
	sample := &separable(1, 5).Samples[0]

	_, err := NewSoftmax(config.SoftmaxConfig{}).PredictProba(sample)
	assert.ErrorIs(t, err, models.ErrNoModel)

	_, err = NewBoosting(config.BoostingConfig{}).PredictProba(sample)
	assert.ErrorIs(t, err, models.ErrNoModel)
}

func TestClassifiersRejectWrongWidth(t *testing.T) {
	ds := separable(60, 6)
	softmax := NewSoftmax(config.SoftmaxConfig{Epochs: 10})
	boosting := NewBoosting(config.BoostingConfig{Rounds: 5})
	require.NoError(t, softmax.Fit(context.Background(), ds))
	require.NoError(t, boosting.Fit(context.Background(), ds))

	narrow := &features.Sample{Vector: models.FeatureVector{Values: []float64{1, 2}}}
	_, err := softmax.PredictProba(narrow)
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
	_, err = boosting.PredictProba(narrow)
	assert.ErrorIs(t, err, models.ErrSchemaMismatch)
}

func TestFitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewSoftmax(config.SoftmaxConfig{}).Fit(ctx, separable(30, 7)), context.Canceled)
	assert.ErrorIs(t, NewBoosting(config.BoostingConfig{}).Fit(ctx, separable(30, 7)), context.Canceled)
}

func TestQuantileThresholds(t *testing.T) {
	x := make([][]float64, 100)
	for i := range x {
		x[i] = []float64{float64(i), 3}
	}

	th := quantileThresholds(x, 0, 4)
	assert.Equal(t, []float64{25, 50, 75}, th)
	assert.Empty(t, quantileThresholds(x, 1, 4))
}

func TestTimeSeriesFolds(t *testing.T) {
	folds, err := TimeSeriesFolds(103, 4)
	require.NoError(t, err)
	assert.Equal(t, []Fold{
		{TrainEnd: 20, TestEnd: 40},
		{TrainEnd: 40, TestEnd: 60},
		{TrainEnd: 60, TestEnd: 80},
		{TrainEnd: 80, TestEnd: 103},
	}, folds)

	for _, f := range folds {
		assert.Less(t, f.TrainEnd, f.TestEnd, "test slice must follow training slice")
	}

	_, err = TimeSeriesFolds(3, 4)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

func TestEvaluate(t *testing.T) {
	probs := [][]float64{
		{0.7, 0.2, 0.1},
		{0.6, 0.3, 0.1},
		{0.2, 0.5, 0.3},
		{0.1, 0.2, 0.7},
	}
	y := []int{0, 1, 1, 2}

	m := Evaluate(probs, y)
	assert.Equal(t, 4, m.Samples)
	assert.InDelta(t, 0.75, m.Accuracy, 1e-12)

	home := m.PerClass[models.OutcomeHome]
	assert.InDelta(t, 0.5, home.Precision, 1e-12)
	assert.InDelta(t, 1.0, home.Recall, 1e-12)
	draw := m.PerClass[models.OutcomeDraw]
	assert.InDelta(t, 1.0, draw.Precision, 1e-12)
	assert.InDelta(t, 0.5, draw.Recall, 1e-12)
	assert.Equal(t, 2, draw.Support)

	perfect := Evaluate([][]float64{{1, 0, 0}}, []int{0})
	assert.InDelta(t, 0, perfect.LogLoss, 1e-12)
	wrong := Evaluate([][]float64{{1, 0, 0}}, []int{2})
	assert.InDelta(t, 34.54, wrong.LogLoss, 0.01, "log-loss is clipped")
}

func TestCalibrationBins(t *testing.T) {
	probs := [][]float64{
		{0.05, 0.33, 0.62},
		{0.05, 0.33, 0.62},
		{1.00, 0.00, 0.00},
	}
	bins := Calibration(probs, []int{2, 1, 0})
	require.Len(t, bins, 10)

	assert.Equal(t, 4, bins[0].Count)
	assert.Zero(t, bins[0].EmpiricalRate)
	assert.Equal(t, 2, bins[3].Count)
	assert.InDelta(t, 0.5, bins[3].EmpiricalRate, 1e-12)
	assert.InDelta(t, 0.33, bins[3].MeanPredicted, 1e-12)
	assert.Equal(t, 2, bins[6].Count)
	assert.InDelta(t, 0.5, bins[6].EmpiricalRate, 1e-12)
	assert.Equal(t, 1, bins[9].Count, "p = 1 falls in the last bin")
	assert.InDelta(t, 0.65, bins[6].Centre(), 1e-12)
}

func TestEnsembleWeights(t *testing.T) {
	assert.Equal(t, []float64{0.5, 0.5}, EnsembleWeights("uniform", []float64{0.6, 0.2}))
	assert.InDeltaSlice(t, []float64{0.75, 0.25}, EnsembleWeights("accuracy", []float64{0.6, 0.2}), 1e-12)
	assert.Equal(t, []float64{0.5, 0.5}, EnsembleWeights("accuracy", []float64{0, 0}))
}

type fixedModel struct {
	name string
	p    []float64
}

func (f fixedModel) Name() string { return f.name }
func (f fixedModel) Kind() string { return "fixed" }
func (f fixedModel) Fit(ctx context.Context, ds *features.Dataset) error { return nil }
func (f fixedModel) PredictProba(*features.Sample) ([]float64, error) { return f.p, nil }

func TestWeightedVote(t *testing.T) {
	e := &Ensemble{
		Strategy: models.EnsembleWeightedVote,
		Models: []Model{
			fixedModel{name: "a", p: []float64{0.6, 0.2, 0.2}},
			fixedModel{name: "b", p: []float64{0.2, 0.4, 0.4}},
		},
		Weights: []float64{0.75, 0.25},
	}
	p, err := e.PredictProba(&features.Sample{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.25, 0.25}, p, 1e-12)
}

func TestStackedEnsembleNeedsMeta(t *testing.T) {
	e := &Ensemble{Strategy: models.EnsembleStacked, Models: []Model{fixedModel{name: "a", p: []float64{1, 0, 0}}}}
	_, err := e.PredictProba(&features.Sample{})
	assert.ErrorIs(t, err, models.ErrNoModel)
}

func TestFitEnsembleStacked(t *testing.T) {
	cfg := testModelsConfig(models.EnsembleStacked)
	factories := []Factory{
		func() Model { return NewSoftmax(cfg.Softmax) },
		func() Model { return NewBoosting(cfg.Boosting) },
	}
	e, err := FitEnsemble(context.Background(), cfg, factories, separable(240, 8), []float64{0.5, 0.5})
	require.NoError(t, err)
	require.NotNil(t, e.Meta)
	assert.Len(t, e.Models, 2)

	assert.Greater(t, accuracyOn(t, e, separable(90, 9)), 0.85)
}

func TestFitEnsembleStackedNeedsHoldout(t *testing.T) {
	cfg := testModelsConfig(models.EnsembleStacked)
	_, err := FitEnsemble(context.Background(), cfg, []Factory{func() Model { return NewSoftmax(cfg.Softmax) }}, separable(1, 10), []float64{1})
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}
