// Package advisor runs the per-match advisory pipeline: features, probabilities, value
// assessment and stake sizing, then routes settlements into the bankroll ledger.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/metrics"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/odds"
)

// MatchStore looks up fixtures
type MatchStore interface {
	GetMatch(ctx context.Context, id string) (*models.Match, error)
}

// OddsStore supplies bookmaker quotes
type OddsStore interface {
	GetOdds(ctx context.Context, matchID string, market models.MarketKind) ([]models.OddsQuote, error)
}

// Predictor produces per-market distributions from the current fitted artifact
type Predictor interface {
	Predict(ctx context.Context, match *models.Match) (*models.MatchPrediction, error)
}

// Fitter refits the probability models
type Fitter interface {
	Fit(ctx context.Context, cutoff time.Time) (*models.ModelFitReport, error)
}

// Sizer turns assessments into stakes
type Sizer interface {
	Size(matchID string, a models.ValueAssessment, capital decimal.Decimal) (models.StakeRecommendation, error)
}

// Bankroll is the ledger surface the advisor reads and settles into
type Bankroll interface {
	Status() models.BankrollState
	RecordBet(ctx context.Context, rec models.StakeRecommendation, actual models.Outcome) (*models.BetRecord, error)
}

// RecommendationCache keeps the latest recommendation per match outside the process.
// Get and Take return models.ErrNotFound when nothing is cached. Take removes the entry
// atomically so concurrent takers across processes see it at most once.
type RecommendationCache interface {
	SaveRecommendation(ctx context.Context, rec *models.Recommendation) error
	GetRecommendation(ctx context.Context, matchID string) (*models.Recommendation, error)
	TakeRecommendation(ctx context.Context, matchID string) (*models.Recommendation, error)
}

// DefaultPendingTTL is how long after kickoff an unsettled recommendation is kept
const DefaultPendingTTL = 7 * 24 * time.Hour

// Listener is notified of every produced recommendation
type Listener func(rec *models.Recommendation)

// Dependencies groups the collaborators of the advisor. Cache may be nil.
type Dependencies struct {
	Matches   MatchStore
	Odds      OddsStore
	Predictor Predictor
	Fitter    Fitter
	Sizer     Sizer
	Bankroll  Bankroll
	Cache     RecommendationCache
}

// pendingEntry is an unsettled recommendation. cached records whether the external cache
// accepted a copy.
type pendingEntry struct {
	rec    *models.Recommendation
	cached bool
}

// Advisor is the advisory orchestrator. It reads the bankroll but only mutates it on settlement.
type Advisor struct {
	deps       Dependencies
	markets    []models.MarketKind
	pending    map[string]*pendingEntry
	pendingTTL time.Duration
	listeners  []Listener
	mu         sync.RWMutex
	log        *logger.AdvisoryLogger
	clock      func() time.Time
}

// New creates an advisor assessing the given markets
func New(deps Dependencies, markets []models.MarketKind, log *logrus.Logger) (*Advisor, error) {
	if deps.Matches == nil || deps.Odds == nil || deps.Predictor == nil || deps.Sizer == nil || deps.Bankroll == nil {
		return nil, fmt.Errorf("%w: advisor needs match, odds, predictor, sizer and bankroll collaborators", models.ErrInvalidInputs)
	}
	if len(markets) == 0 {
		markets = []models.MarketKind{models.MarketMatchResult}
	}
	for _, m := range markets {
		if !m.IsValid() {
			return nil, fmt.Errorf("%w: unknown market %q", models.ErrInvalidInputs, m)
		}
	}
	return &Advisor{
		deps:       deps,
		markets:    markets,
		pending:    make(map[string]*pendingEntry),
		pendingTTL: DefaultPendingTTL,
		log:        logger.NewAdvisoryLogger(log),
		clock:      time.Now,
	}, nil
}

// SetClock replaces the clock stamping recommendations and expiring pending ones
func (a *Advisor) SetClock(clock func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock = clock
}

// SetPendingTTL sets how long after kickoff an unsettled recommendation is dropped
func (a *Advisor) SetPendingTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingTTL = ttl
}

func (a *Advisor) now() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.clock()
}

// expiredLocked reports whether the entry outlived its kickoff by more than the TTL.
// Callers hold a.mu.
func (a *Advisor) expiredLocked(e *pendingEntry, now time.Time) bool {
	return !e.rec.Kickoff.IsZero() && now.After(e.rec.Kickoff.Add(a.pendingTTL))
}

func (a *Advisor) evictLocked(now time.Time) {
	for id, e := range a.pending {
		if a.expiredLocked(e, now) {
			delete(a.pending, id)
			a.log.LogPendingExpired(id, e.rec.Kickoff)
		}
	}
}

// OnRecommendation registers a listener for produced recommendations
func (a *Advisor) OnRecommendation(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// BankrollStatus returns the current ledger snapshot
func (a *Advisor) BankrollStatus() models.BankrollState {
	state := a.deps.Bankroll.Status()
	metrics.UpdateBankroll(state)
	return state
}

// FitModels refits the probability models on matches before the cutoff
func (a *Advisor) FitModels(ctx context.Context, cutoff time.Time) (*models.ModelFitReport, error) {
	if a.deps.Fitter == nil {
		return nil, fmt.Errorf("%w: no model fitter configured", models.ErrInvalidInputs)
	}
	return a.deps.Fitter.Fit(ctx, cutoff)
}

// Advise runs the pipeline for one match. It fails with ErrBankrollHalted while a critical
// alert holds, ErrMatchNotFound for unknown matches and ErrNoModel before the first fit.
// Cancellation is honoured between pipeline steps.
func (a *Advisor) Advise(ctx context.Context, matchID string) (*models.Recommendation, error) {
	start := time.Now()
	rec, err := a.advise(ctx, matchID)
	metrics.RecordAdvice(adviceStatus(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	// cache first: a local entry marked cached must have reached the cache
	entry := &pendingEntry{rec: rec}
	if a.deps.Cache != nil {
		if err := a.deps.Cache.SaveRecommendation(ctx, rec); err != nil {
			a.log.WithError(err).WithField("match_id", matchID).Warn("Failed to cache recommendation")
		} else {
			entry.cached = true
		}
	}

	now := a.now()
	a.mu.Lock()
	a.evictLocked(now)
	a.pending[matchID] = entry
	listeners := append([]Listener(nil), a.listeners...)
	a.mu.Unlock()

	for _, l := range listeners {
		l(rec)
	}
	return rec, nil
}

func (a *Advisor) advise(ctx context.Context, matchID string) (*models.Recommendation, error) {
	state := a.deps.Bankroll.Status()
	metrics.UpdateBankroll(state)
	if critical := state.CriticalAlerts(); len(critical) > 0 {
		types := make([]string, 0, len(critical))
		for _, al := range critical {
			types = append(types, string(al.Type))
		}
		a.log.LogAdviceRefused(matchID, types)
		return nil, &models.BankrollHaltedError{Alerts: critical}
	}

	match, err := a.deps.Matches.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrMatchNotFound, matchID)
		}
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prediction, err := a.deps.Predictor.Predict(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to predict match %s: %w", matchID, err)
	}

	rec := &models.Recommendation{
		ID:            uuid.New(),
		MatchID:       matchID,
		Kickoff:       match.Kickoff,
		GeneratedAt:   a.now(),
		ModelFittedAt: prediction.FittedAt,
		Prediction:    *prediction,
		Overrounds:    make(map[models.MarketKind]float64),
		Bankroll:      state,
	}

	for _, market := range a.markets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := a.assessMarket(ctx, match, prediction, market, rec); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.sizeAll(rec)

	topOutcome, topEV, topStake := "", 0.0, 0.0
	if rec.Top != nil {
		topOutcome = string(rec.Top.Market) + ":" + string(rec.Top.Outcome)
		topEV = rec.Top.ExpectedValue
		topStake, _ = rec.Top.StakeAmount.Float64()
	}
	a.log.LogRecommendation(matchID, rec.ID.String(), len(rec.Assessments), len(rec.Stakes), topOutcome, topEV, topStake, len(rec.Warnings))
	return rec, nil
}

// assessMarket appends assessments of one market. A missing market or quote set is a warning;
// store failures are returned.
func (a *Advisor) assessMarket(ctx context.Context, match *models.Match, prediction *models.MatchPrediction, market models.MarketKind, rec *models.Recommendation) error {
	dist, ok := prediction.Market(market)
	if !ok {
		a.skip(rec, market, "", "model has no distribution for market")
		return nil
	}

	quotes, err := a.deps.Odds.GetOdds(ctx, match.ID, market)
	if err != nil {
		return fmt.Errorf("failed to load %s odds for %s: %w", market, match.ID, err)
	}
	// in-play prices are not comparable with pre-match probabilities
	preMatch := quotes[:0:0]
	for _, q := range quotes {
		if q.CapturedAt.Before(match.Kickoff) {
			preMatch = append(preMatch, q)
		}
	}

	result, err := odds.AssessMarket(dist, preMatch)
	for _, w := range result.Warnings {
		rec.Warnings = append(rec.Warnings, w)
		a.log.LogOutcomeSkipped(match.ID, string(market), "", w)
		metrics.RecordOutcomeSkipped("quote")
	}
	if err != nil {
		if errors.Is(err, models.ErrNoMarket) {
			a.skip(rec, market, "", err.Error())
			return nil
		}
		return err
	}
	if result.HasBook {
		rec.Overrounds[market] = result.Overround
	}
	for _, assessment := range result.Assessments {
		metrics.RecordAssessment(string(market), string(assessment.Label))
	}
	rec.Assessments = append(rec.Assessments, result.Assessments...)
	return nil
}

// sizeAll sizes every non-avoid assessment and selects the highest-EV staked outcome as top
func (a *Advisor) sizeAll(rec *models.Recommendation) {
	flags := make(map[models.RiskFlag]bool)
	for _, assessment := range rec.Assessments {
		if assessment.Label == models.LabelAvoid {
			continue
		}
		stake, err := a.deps.Sizer.Size(rec.MatchID, assessment, rec.Bankroll.CurrentCapital)
		if err != nil {
			a.skip(rec, assessment.Market, assessment.Outcome, err.Error())
			continue
		}
		rec.Stakes = append(rec.Stakes, stake)
		for _, f := range stake.RiskFlags {
			flags[f] = true
		}
		if stake.HasStake() {
			metrics.RecordStake(stake.StakeFraction)
		}
	}

	for i := range rec.Stakes {
		s := &rec.Stakes[i]
		if !s.HasStake() {
			continue
		}
		if rec.Top == nil || s.ExpectedValue > rec.Top.ExpectedValue {
			rec.Top = s
		}
	}

	for f := range flags {
		rec.RiskFlags = append(rec.RiskFlags, f)
	}
	sort.Slice(rec.RiskFlags, func(i, j int) bool { return rec.RiskFlags[i] < rec.RiskFlags[j] })
}

func (a *Advisor) skip(rec *models.Recommendation, market models.MarketKind, outcome models.Outcome, reason string) {
	msg := string(market)
	if outcome != "" {
		msg += "/" + string(outcome)
	}
	rec.Warnings = append(rec.Warnings, msg+": "+reason)
	a.log.LogOutcomeSkipped(rec.MatchID, string(market), string(outcome), reason)
	metrics.RecordOutcomeSkipped("market")
}

func adviceStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrBankrollHalted):
		return "halted"
	case errors.Is(err, models.ErrNoModel):
		return "no_model"
	case errors.Is(err, models.ErrInsufficientHistory), errors.Is(err, models.ErrNoMarket):
		return "skipped"
	default:
		return "error"
	}
}
