// Package backtest replays completed matches through the advisory pipeline in kickoff order,
// refitting models on a configurable cadence, and reports the resulting bankroll path.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/advisor"
	"github.com/yourusername/bet-advisor/internal/bankroll"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/metrics"
	"github.com/yourusername/bet-advisor/internal/ml"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/repository"
	"github.com/yourusername/bet-advisor/internal/staking"
)

// Store is the historical data a backtest replays. It is only read.
type Store interface {
	features.HistoryStore
	features.OddsSource
	GetMatch(ctx context.Context, id string) (*models.Match, error)
}

// Engine orchestrates backtesting runs
type Engine struct {
	app    *config.Config
	store  Store
	logger *logrus.Logger
	entry  *logrus.Entry
}

// pipeline is the isolated set of components one run advises and settles through
type pipeline struct {
	ledger  *bankroll.Ledger
	trainer *ml.Trainer
	advisor *advisor.Advisor
}

// NewEngine creates a new backtesting engine
func NewEngine(app *config.Config, store Store, logger *logrus.Logger) (*Engine, error) {
	if app == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		app:    app,
		store:  store,
		logger: logger,
		entry:  logger.WithField("component", "backtest"),
	}, nil
}

// Run replays the configured range at the configured risk level, then optionally sweeps every
// risk level and resamples the bet sequence.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e.entry.WithFields(logrus.Fields{
		"from":          cfg.From,
		"to":            cfg.To,
		"risk_level":    cfg.RiskLevel,
		"refit_cadence": cfg.RefitCadence,
	}).Info("Starting backtest run")

	start := time.Now()
	report, err := e.run(ctx, cfg)
	if err == nil && cfg.SweepRiskLevels {
		report.Sweep, report.RecommendedRiskLevel, err = e.RunSweep(ctx, cfg)
	}
	if err == nil && cfg.MonteCarloIterations > 0 && len(report.Bets) > 0 {
		var mc MonteCarloResult
		mc, err = RunMonteCarlo(ctx, report.Bets, MonteCarloConfig{
			Iterations:  cfg.MonteCarloIterations,
			Seed:        cfg.MonteCarloSeed,
			MaxDrawdown: e.app.Bankroll.MaxDrawdownFraction,
		})
		report.MonteCarlo = &mc
	}
	metrics.RecordBacktestRun(string(cfg.RefitCadence), runStatus(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	e.entry.WithFields(logrus.Fields{
		"matches":        report.Matches,
		"opportunities":  report.Opportunities,
		"bets_placed":    report.BetsPlaced,
		"refits":         report.Refits,
		"final_capital":  report.FinalCapital.String(),
		"roi":            report.ROI,
		"max_drawdown":   report.MaxDrawdown,
		"halted":         report.Halted,
		"recommendation": report.RecommendedRiskLevel,
		"duration":       time.Since(start).String(),
	}).Info("Backtest run completed")
	return report, nil
}

// run replays matches serially so bets settle in kickoff order
func (e *Engine) run(ctx context.Context, cfg Config) (*Report, error) {
	matches, err := e.store.ListMatches(ctx, models.MatchFilter{
		LeagueID:      cfg.LeagueID,
		From:          cfg.From,
		To:            cfg.To,
		CompletedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no completed matches in range", models.ErrInsufficientHistory)
	}

	p, err := e.newPipeline(cfg.InitialCapital, cfg.RiskLevel)
	if err != nil {
		return nil, err
	}

	state := newRunState(cfg.InitialCapital.InexactFloat64(), matches[0].Kickoff)
	for i := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := &matches[i]
		state.matches++

		if err := e.refit(ctx, p, state, cfg.RefitCadence, m.Kickoff); err != nil {
			return nil, err
		}
		if !p.trainer.Registry().Ready() {
			state.skipped++
			continue
		}

		kickoff := m.Kickoff
		p.advisor.SetClock(func() time.Time { return kickoff })
		p.ledger.SetClock(func() time.Time { return kickoff })
		if _, err := p.advisor.Advise(ctx, m.ID); err != nil {
			if errors.Is(err, models.ErrBankrollHalted) {
				state.halted = true
				state.haltedAt = &kickoff
				e.entry.WithField("match_id", m.ID).Warn("Bankroll halted, stopping replay")
				break
			}
			// thin history or no pre-kickoff book: nothing to advise on
			if errors.Is(err, models.ErrInsufficientHistory) || errors.Is(err, models.ErrNoMarket) {
				state.skipped++
				continue
			}
			return nil, fmt.Errorf("advice for %s failed: %w", m.ID, err)
		}
		state.opportunities++

		settlement, ok := m.Settlement()
		if !ok {
			continue
		}
		record, err := p.advisor.Settle(ctx, m.ID, settlement)
		if err != nil {
			return nil, err
		}
		if record != nil {
			state.settle(*record, kickoff)
		}
	}

	return buildReport(cfg, cfg.RiskLevel, state, p.ledger.Status(), cfg.epsilon()), nil
}

// refit fits on every completed match before kickoff when the cadence asks for it. A failed
// fit for lack of history keeps the previous artifact.
func (e *Engine) refit(ctx context.Context, p *pipeline, state *runState, cadence RefitCadence, kickoff time.Time) error {
	if !state.refitDue(cadence, kickoff, p.trainer.Registry().Ready()) {
		return nil
	}
	p.trainer.SetClock(func() time.Time { return kickoff })
	report, err := p.trainer.Fit(ctx, kickoff)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientHistory) {
			return nil
		}
		return fmt.Errorf("refit before %s failed: %w", kickoff.Format(time.RFC3339), err)
	}
	state.refits++
	state.lastFitAt = report.FittedAt
	state.lastCutoff = kickoff
	return nil
}

func (e *Engine) newPipeline(initial decimal.Decimal, level models.RiskLevel) (*pipeline, error) {
	builder, err := features.NewBuilder(features.ConfigFromFeatures(&e.app.Features), e.store, e.store, e.logger)
	if err != nil {
		return nil, err
	}
	// fit reports stay with the run
	fits := repository.NewMemoryStore()
	trainer, err := ml.NewTrainer(&e.app.Models, builder, e.store, fits, ml.NewRegistry(), logger.NewModelLogger(e.logger))
	if err != nil {
		return nil, err
	}
	sizer, err := staking.NewSizer(staking.Config{
		RiskLevel:        level,
		MaxStakeFraction: e.app.Bankroll.MaxStakeFraction,
		MinStakeFraction: e.app.Bankroll.MinStakeFraction,
	}, e.logger)
	if err != nil {
		return nil, err
	}
	ledger, err := bankroll.NewLedger(initial, level, bankroll.LimitsFromConfig(&e.app.Bankroll), nil, e.logger)
	if err != nil {
		return nil, err
	}
	adv, err := advisor.New(advisor.Dependencies{
		Matches:   e.store,
		Odds:      e.store,
		Predictor: trainer,
		Fitter:    trainer,
		Sizer:     sizer,
		Bankroll:  ledger,
	}, e.app.Advisor.MarketKinds(), e.logger)
	if err != nil {
		return nil, err
	}
	return &pipeline{ledger: ledger, trainer: trainer, advisor: adv}, nil
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failure"
	}
}
