package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/bet-advisor/internal/advisor"
	"github.com/yourusername/bet-advisor/internal/api"
	"github.com/yourusername/bet-advisor/internal/bankroll"
	"github.com/yourusername/bet-advisor/internal/cache"
	"github.com/yourusername/bet-advisor/internal/database"
	"github.com/yourusername/bet-advisor/internal/datasource"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/metrics"
	"github.com/yourusername/bet-advisor/internal/ml"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/repository"
	"github.com/yourusername/bet-advisor/internal/staking"
)

// app holds the wired advisory components for one process
type app struct {
	db      *database.DB
	repos   *repository.Repositories
	store   repository.Store
	trainer *ml.Trainer
	ledger  *bankroll.Ledger
	advisor *advisor.Advisor
	cache   *cache.RecommendationCache
	hub     *api.Hub
	entry   *logrus.Entry
}

func newApp(ctx context.Context) (*app, error) {
	a := &app{
		hub:   api.NewHub(log),
		entry: log.WithField("component", "app"),
	}
	metrics.InitRegistry()

	if cfg.Database.Enabled {
		db, err := database.Initialize(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
		repos, err := repository.NewRepositories(db)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize repositories: %w", err)
		}
		a.repos = repos
	} else {
		a.entry.Info("Database disabled; using in-memory repositories")
		a.repos = repository.NewMemoryRepositories()
	}
	a.store = a.repos.Store()

	if fixturesPath != "" {
		if _, err := a.importFixtures(ctx, fixturesPath); err != nil {
			a.Close()
			return nil, err
		}
	}

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	builder, err := features.NewBuilder(features.ConfigFromFeatures(&cfg.Features), a.store, a.store, log)
	if err != nil {
		return fmt.Errorf("failed to create feature builder: %w", err)
	}

	a.trainer, err = ml.NewTrainer(&cfg.Models, builder, a.store, a.repos.ModelFits, ml.NewRegistry(), logger.NewModelLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create trainer: %w", err)
	}

	sizer, err := staking.NewSizer(staking.ConfigFromBankroll(&cfg.Bankroll), log)
	if err != nil {
		return fmt.Errorf("failed to create stake sizer: %w", err)
	}

	a.ledger, err = bankroll.NewLedger(
		decimal.NewFromFloat(cfg.Bankroll.InitialCapital),
		cfg.Bankroll.Level(),
		bankroll.LimitsFromConfig(&cfg.Bankroll),
		a.repos.BetRecords,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create bankroll ledger: %w", err)
	}

	if cfg.Redis.Enabled {
		a.cache, err = cache.NewRecommendationCache(cache.NewClient(&cfg.Redis), &cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("failed to create recommendation cache: %w", err)
		}
		if err := a.cache.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
	}

	a.ledger.OnAlert(func(alert models.Alert) {
		metrics.RecordAlert(alert)
		a.hub.PublishAlert(alert)
		if a.cache != nil {
			if err := a.cache.PublishAlert(context.Background(), alert); err != nil {
				a.entry.WithError(err).Warn("Failed to publish alert")
			}
		}
	})

	if err := a.ledger.Replay(ctx); err != nil {
		return fmt.Errorf("failed to replay bet records: %w", err)
	}
	metrics.UpdateBankroll(a.ledger.Status())

	deps := advisor.Dependencies{
		Matches:   a.store,
		Odds:      a.store,
		Predictor: a.trainer,
		Fitter:    a.trainer,
		Sizer:     sizer,
		Bankroll:  a.ledger,
	}
	if a.cache != nil {
		deps.Cache = a.cache
	}
	a.advisor, err = advisor.New(deps, cfg.Advisor.MarketKinds(), log)
	if err != nil {
		return fmt.Errorf("failed to create advisor: %w", err)
	}
	if cfg.Redis.TTLSeconds > 0 {
		a.advisor.SetPendingTTL(cfg.Redis.RecommendationTTL())
	}
	a.advisor.OnRecommendation(a.hub.PublishRecommendation)
	return nil
}

// warmUp fits on every completed match before now. Missing history leaves the engine without
// a model, which the caller may tolerate.
func (a *app) warmUp(ctx context.Context) (*models.ModelFitReport, error) {
	report, err := a.advisor.FitModels(ctx, time.Now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrInsufficientHistory) {
			a.entry.WithError(err).Warn("Not enough history to fit models")
		}
		return nil, err
	}
	return report, nil
}

func (a *app) importFixtures(ctx context.Context, location string) (*datasource.ImportResult, error) {
	client := datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfigFrom(&cfg.DataSource), log)
	defer client.Close()

	source, err := datasource.NewSource(location, client)
	if err != nil {
		return nil, err
	}
	importer, err := datasource.NewImporter(a.store, log)
	if err != nil {
		return nil, err
	}
	result, err := importer.Import(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to import fixtures: %w", err)
	}
	return result, nil
}

// Close releases the database pool
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
