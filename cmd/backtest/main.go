// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/bet-advisor/internal/backtest"
	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/database"
	"github.com/yourusername/bet-advisor/internal/datasource"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/repository"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		fixtures   = flag.String("fixtures", "", "Fixtures file or URL to replay instead of the database")
		startDate  = flag.String("start-date", "", "Start date (YYYY-MM-DD)")
		endDate    = flag.String("end-date", "", "End date (YYYY-MM-DD)")
		league     = flag.String("league", "", "Restrict to one league")
		mode       = flag.String("mode", "single", "Backtest mode: single, sweep, monte-carlo, all")
		output     = flag.String("output", "", "Output path for the report; stdout when empty")
		format     = flag.String("format", "", "Report format: console, json, csv")
		seed       = flag.Int64("seed", 0, "Monte Carlo seed")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfigWithSecrets(ctx, *configPath)
	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	btConfig := buildBacktestConfig(cfg, *startDate, *endDate, *league, *mode, *seed, log)
	store, closeStore := buildStore(ctx, cfg, *fixtures, log)
	defer closeStore()

	engine, err := backtest.NewEngine(cfg, store, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create backtest engine")
	}

	log.WithFields(logrus.Fields{"mode": *mode, "risk_level": btConfig.RiskLevel}).Info("Starting backtest")
	report, err := engine.Run(ctx, btConfig)
	if err != nil {
		log.WithError(err).Fatal("Backtest failed")
	}

	writeReport(report, cfg, *output, *format, log)
}

func loadConfigWithSecrets(ctx context.Context, path string) *config.Config {
	fallback := logrus.New()
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		fallback.Fatalf("Failed to load config: %v", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		fallback.Fatalf("Failed to load secrets: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		fallback.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func buildBacktestConfig(cfg *config.Config, start, end, league, mode string, seed int64, log *logrus.Logger) backtest.Config {
	bt, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		log.WithError(err).Fatal("Invalid backtest configuration")
	}
	bt.From = parseDate(start, log)
	bt.To = parseDate(end, log)
	bt.LeagueID = league
	bt.MonteCarloSeed = seed

	switch mode {
	case "single":
		bt.SweepRiskLevels = false
		bt.MonteCarloIterations = 0
	case "sweep":
		bt.SweepRiskLevels = true
		bt.MonteCarloIterations = 0
	case "monte-carlo":
		bt.SweepRiskLevels = false
		if bt.MonteCarloIterations == 0 {
			bt.MonteCarloIterations = 1000
		}
	case "all":
		bt.SweepRiskLevels = true
		if bt.MonteCarloIterations == 0 {
			bt.MonteCarloIterations = 1000
		}
	default:
		log.Fatalf("Unknown mode %q", mode)
	}

	if err := bt.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid backtest range")
	}
	return bt
}

// buildStore loads the fixtures into memory when given, else reads from PostgreSQL
func buildStore(ctx context.Context, cfg *config.Config, fixtures string, log *logrus.Logger) (backtest.Store, func()) {
	if fixtures != "" {
		repos := repository.NewMemoryRepositories()
		store := repos.Store()
		client := datasource.NewRateLimitedHTTPClient(datasource.HTTPClientConfigFrom(&cfg.DataSource), log)
		defer client.Close()

		source, err := datasource.NewSource(fixtures, client)
		if err != nil {
			log.WithError(err).Fatal("Invalid fixtures location")
		}
		importer, err := datasource.NewImporter(store, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to create importer")
		}
		result, err := importer.Import(ctx, source)
		if err != nil {
			log.WithError(err).Fatal("Failed to import fixtures")
		}
		log.WithFields(logrus.Fields{
			"matches":  result.MatchesImported,
			"quotes":   result.QuotesImported,
			"rejected": result.Rejected,
		}).Info("Fixtures loaded")
		return store, func() {}
	}

	if !cfg.Database.Enabled {
		log.Fatal("Either -fixtures or an enabled database is required")
	}
	db, err := database.Initialize(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		log.WithError(err).Fatal("Failed to initialize repositories")
	}
	return repos.Store(), db.Close
}

func parseDate(value string, log *logrus.Logger) time.Time {
	if value == "" {
		log.Fatal("-start-date and -end-date are required")
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		log.WithError(err).Fatalf("Invalid date %q", value)
	}
	return t
}

func writeReport(report *backtest.Report, cfg *config.Config, output, format string, log *logrus.Logger) {
	if format == "" {
		format = cfg.Backtest.Format
	}
	if output == "" {
		output = cfg.Backtest.OutputPath
	}

	if output == "" {
		if err := backtest.WriteReport(os.Stdout, report, format); err != nil {
			log.WithError(err).Fatal("Failed to write report")
		}
	} else {
		if err := backtest.ExportReport(report, output, format); err != nil {
			log.WithError(err).Fatal("Failed to export report")
		}
		log.WithField("output", output).Info("Backtest report written")
	}

	if report.Halted {
		log.WithField("halted_at", report.HaltedAt).Warn("Replay stopped by a critical bankroll alert")
	}
	if report.RecommendedRiskLevel != "" && report.RecommendedRiskLevel != models.RiskLevel(cfg.Backtest.RiskLevel) {
		log.WithFields(logrus.Fields{
			"configured":  cfg.Backtest.RiskLevel,
			"recommended": report.RecommendedRiskLevel,
		}).Info("Sweep recommends a different risk level")
	}
}
