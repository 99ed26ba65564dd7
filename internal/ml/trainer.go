package ml

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
)

// MatchLister lists the training population
type MatchLister interface {
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error)
}

// FitStore persists fit reports
type FitStore interface {
	SaveFit(ctx context.Context, report *models.ModelFitReport) error
}

// Trainer fits the ensemble, publishes artifacts and serves predictions from the current one
type Trainer struct {
	cfg       *config.ModelsConfig
	factories []Factory
	builder   *features.Builder
	matches   MatchLister
	fits      FitStore
	registry  *Registry
	cache     *PredictionCache
	log       *logger.ModelLogger
	clock     func() time.Time
	mu        sync.RWMutex
	fitMu     sync.Mutex
}

// NewTrainer creates a trainer publishing into the given registry
func NewTrainer(cfg *config.ModelsConfig, builder *features.Builder, matches MatchLister, fits FitStore, registry *Registry, log *logger.ModelLogger) (*Trainer, error) {
	if fits == nil {
		return nil, ErrNoFitStore
	}
	if builder == nil || matches == nil || registry == nil {
		return nil, fmt.Errorf("%w: trainer needs a feature builder, match store and registry", models.ErrInvalidInputs)
	}
	return &Trainer{
		cfg:       cfg,
		factories: Factories(cfg),
		builder:   builder,
		matches:   matches,
		fits:      fits,
		registry:  registry,
		cache:     NewPredictionCache(cfg.CacheTTL(), 10000),
		log:       log,
		clock:     time.Now,
	}, nil
}

// SetClock replaces the clock stamping fitted artifacts. Backtests stamp fits with simulated time.
func (t *Trainer) SetClock(clock func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
}

// SetFactories replaces the base model roster
func (t *Trainer) SetFactories(factories []Factory) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.factories = factories
}

func (t *Trainer) now() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clock()
}

func (t *Trainer) roster() []Factory {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.factories
}

// Registry returns the registry the trainer publishes into
func (t *Trainer) Registry() *Registry {
	return t.registry
}

// Cache returns the prediction cache
func (t *Trainer) Cache() *PredictionCache {
	return t.cache
}

// Fit trains on every completed match with kickoff before cutoff, evaluates with forward
// time-series CV, persists the report and publishes the new artifact.
func (t *Trainer) Fit(ctx context.Context, cutoff time.Time) (*models.ModelFitReport, error) {
	if !t.fitMu.TryLock() {
		return nil, ErrFitInProgress
	}
	defer t.fitMu.Unlock()

	start := time.Now()
	strategy := string(t.cfg.Strategy())
	report, artifact, err := t.fit(ctx, cutoff)
	if err != nil {
		ModelFitsTotal.WithLabelValues(strategy, "failure").Inc()
		t.log.WithError(err).WithField("training_cutoff", cutoff).Warn("Model fit failed")
		return nil, err
	}

	if err := t.fits.SaveFit(ctx, report); err != nil {
		ModelFitsTotal.WithLabelValues(strategy, "failure").Inc()
		return nil, fmt.Errorf("failed to save fit report: %w", err)
	}

	previous := t.registry.Publish(artifact)
	previousID := ""
	if previous != nil {
		previousID = previous.ID.String()
		t.cache.Invalidate(previous.ID)
	}

	duration := time.Since(start)
	ModelFitsTotal.WithLabelValues(strategy, "success").Inc()
	ModelFitDuration.Observe(duration.Seconds())
	for _, m := range report.Models {
		ModelCVAccuracy.WithLabelValues(m.Name).Set(m.CV.Accuracy)
		ModelCVLogLoss.WithLabelValues(m.Name).Set(m.CV.LogLoss)
		t.log.LogBaseModel(m.Name, m.CV.Accuracy, m.CV.LogLoss, m.Weight)
	}
	ModelCVAccuracy.WithLabelValues("ensemble").Set(report.Ensemble.Accuracy)
	ModelCVLogLoss.WithLabelValues("ensemble").Set(report.Ensemble.LogLoss)

	t.log.LogModelFit(report.ID.String(), strategy, report.TrainingSamples, report.Skipped,
		len(report.Schema), report.Ensemble.Accuracy, report.Ensemble.LogLoss, cutoff, duration)
	t.log.LogArtifactPublished(report.ID.String(), report.FittedAt, previousID)

	return report, nil
}

func (t *Trainer) fit(ctx context.Context, cutoff time.Time) (*models.ModelFitReport, *Artifact, error) {
	matches, err := t.matches.ListMatches(ctx, models.MatchFilter{To: cutoff, CompletedOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list training matches: %w", err)
	}
	ds, err := t.builder.BuildDataset(ctx, matches, cutoff)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build training dataset: %w", err)
	}
	if ds.Len() < t.cfg.MinTrainingMatches {
		return nil, nil, fmt.Errorf("%w: %d usable matches before %s, need %d",
			models.ErrInsufficientHistory, ds.Len(), cutoff.Format(time.RFC3339), t.cfg.MinTrainingMatches)
	}

	factories := t.roster()
	oof, err := crossValidate(ctx, factories, ds, t.cfg.CVFolds)
	if err != nil {
		return nil, nil, err
	}
	y := ds.Y()
	cv := make([]models.EvaluationMetrics, len(factories))
	accuracies := make([]float64, len(factories))
	for m := range factories {
		cv[m] = oof.modelMetrics(m, y)
		accuracies[m] = cv[m].Accuracy
	}
	weights := EnsembleWeights(t.cfg.Weighting, accuracies)
	ensembleCV, err := ensembleOOF(t.cfg, oof, y, weights)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to evaluate ensemble: %w", err)
	}

	ensemble, err := FitEnsemble(ctx, t.cfg, factories, ds, weights)
	if err != nil {
		return nil, nil, err
	}
	goals := NewPoissonModel(t.cfg.Poisson)
	if err := goals.FitMatches(matches); err != nil {
		return nil, nil, err
	}

	probs := make([][]float64, ds.Len())
	for i := range ds.Samples {
		p, err := ensemble.PredictProba(&ds.Samples[i])
		if err != nil {
			return nil, nil, err
		}
		probs[i] = p
	}

	report := &models.ModelFitReport{
		ID:              uuid.New(),
		FittedAt:        t.now(),
		TrainingCutoff:  cutoff,
		TrainingSamples: ds.Len(),
		Skipped:         ds.Skipped,
		Strategy:        t.cfg.Strategy(),
		Folds:           t.cfg.CVFolds,
		Schema:          ds.Schema,
		Ensemble:        ensembleCV,
		Calibration:     Calibration(probs, y),
	}
	for m, model := range ensemble.Models {
		eval := models.ModelEvaluation{
			Name:   model.Name(),
			Kind:   model.Kind(),
			CV:     cv[m],
			Weight: weights[m],
		}
		if ex, ok := model.(Explainer); ok {
			eval.FeatureImportances = ex.FeatureImportances()
		}
		report.Models = append(report.Models, eval)
	}

	artifact := &Artifact{
		ID:       report.ID,
		FittedAt: report.FittedAt,
		Cutoff:   cutoff,
		Schema:   ds.Schema,
		Ensemble: ensemble,
		Poisson:  goals,
		Report:   report,
	}
	return report, artifact, nil
}

// Predict returns the current artifact's distributions for a match, building features
// with the kickoff as history cutoff. Predictions are frozen per match and artifact.
func (t *Trainer) Predict(ctx context.Context, match *models.Match) (*models.MatchPrediction, error) {
	artifact, err := t.registry.Current()
	if err != nil {
		return nil, err
	}
	strategy := string(artifact.Ensemble.Strategy)
	key := CacheKey{MatchID: match.ID, FitID: artifact.ID}
	if pred, ok := t.cache.Get(key); ok {
		PredictionsTotal.WithLabelValues(strategy, "true").Inc()
		t.log.LogPrediction(match.ID, true, confidence(pred))
		return pred, nil
	}

	start := time.Now()
	vec, err := t.builder.Build(ctx, match, match.Kickoff)
	if err != nil {
		return nil, err
	}
	pred, err := artifact.Predict(match, vec)
	if err != nil {
		return nil, err
	}
	PredictionLatency.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	PredictionsTotal.WithLabelValues(strategy, "false").Inc()

	t.cache.Set(key, pred)
	t.log.LogPrediction(match.ID, false, confidence(pred))
	return pred, nil
}

func confidence(pred *models.MatchPrediction) float64 {
	if dist, ok := pred.Market(models.MarketMatchResult); ok {
		return dist.Confidence()
	}
	return 0
}
