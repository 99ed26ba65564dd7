package ml

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Artifact is an immutable fitted model set. The 1X2 distribution comes from the ensemble,
// goal-line markets from the Poisson joint.
type Artifact struct {
	ID       uuid.UUID
	FittedAt time.Time
	Cutoff   time.Time
	Schema   []string
	Ensemble *Ensemble
	Poisson  *PoissonModel
	Report   *models.ModelFitReport
}

// Predict returns per-market distributions for a match with a prebuilt feature vector
func (a *Artifact) Predict(match *models.Match, vec *models.FeatureVector) (*models.MatchPrediction, error) {
	if !models.SameSchema(a.Schema, vec.Schema) {
		return nil, &models.SchemaMismatchError{Expected: a.Schema, Actual: vec.Schema}
	}

	sample := &features.Sample{Match: *match, Vector: *vec}
	p, err := a.Ensemble.PredictProba(sample)
	if err != nil {
		return nil, err
	}

	markets := map[models.MarketKind]models.OutcomeProbability{
		models.MarketMatchResult: models.NewOutcomeProbability(models.MarketMatchResult, p...).Normalised(),
	}
	if a.Poisson != nil {
		sm, err := a.Poisson.ScoreMatrix(match.HomeTeamID, match.AwayTeamID)
		if err != nil {
			return nil, err
		}
		for kind, dist := range sm.Markets() {
			if kind != models.MarketMatchResult {
				markets[kind] = dist
			}
		}
	}

	return &models.MatchPrediction{
		MatchID:  match.ID,
		Markets:  markets,
		FittedAt: a.FittedAt,
		Strategy: string(a.Ensemble.Strategy),
	}, nil
}

// Registry holds the current artifact. Publishing swaps the pointer atomically so readers
// always see a complete artifact.
type Registry struct {
	current atomic.Pointer[Artifact]
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Current returns the published artifact or ErrNoModel
func (r *Registry) Current() (*Artifact, error) {
	a := r.current.Load()
	if a == nil {
		return nil, models.ErrNoModel
	}
	return a, nil
}

// Publish installs a new artifact and returns the one it replaced, if any
func (r *Registry) Publish(a *Artifact) *Artifact {
	return r.current.Swap(a)
}

// Ready reports whether an artifact has been published
func (r *Registry) Ready() bool {
	return r.current.Load() != nil
}
