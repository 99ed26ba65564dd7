package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/bet-advisor/internal/backtest"
	"github.com/yourusername/bet-advisor/internal/models"
)

func newAdviseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advise <match-id>",
		Short: "Produce a recommendation for an upcoming match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.warmUp(ctx); err != nil {
				return fmt.Errorf("failed to fit models: %w", err)
			}
			rec, err := a.advisor.Advise(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
}

func newSettleCmd() *cobra.Command {
	var (
		result     string
		totalGoals int
		btts       bool
	)
	cmd := &cobra.Command{
		Use:   "settle <match-id>",
		Short: "Settle the pending recommendation for a match",
		Long: `Settles the top stake of the pending recommendation. Without result flags the
match's stored final score is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			flags := cmd.Flags()
			var record *models.BetRecord
			if flags.Changed("result") || flags.Changed("total-goals") || flags.Changed("btts") {
				settlement := models.Settlement{Result: models.Outcome(result)}
				if flags.Changed("total-goals") {
					settlement.TotalGoals = &totalGoals
				}
				if flags.Changed("btts") {
					settlement.BothTeamsScored = &btts
				}
				record, err = a.advisor.Settle(ctx, args[0], settlement)
			} else {
				record, err = a.advisor.SettleMatch(ctx, args[0])
			}
			if err != nil {
				return err
			}
			if record == nil {
				fmt.Println("No stake placed; nothing settled")
				return nil
			}
			return printJSON(record)
		},
	}
	cmd.Flags().StringVar(&result, "result", "", "Match result (home, draw, away)")
	cmd.Flags().IntVar(&totalGoals, "total-goals", 0, "Total goals scored")
	cmd.Flags().BoolVar(&btts, "btts", false, "Whether both teams scored")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bankroll status and active alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			displayStatus(a.ledger.Status())
			if fit, err := a.repos.ModelFits.LatestFit(cmd.Context()); err == nil && fit != nil {
				fmt.Printf("\nLast Fit: %s (cutoff %s)\n", fit.FittedAt.Format(time.RFC3339), fit.TrainingCutoff.Format("2006-01-02"))
				fmt.Printf("  Strategy: %s, %d samples, %d folds\n", fit.Strategy, fit.TrainingSamples, fit.Folds)
				fmt.Printf("  CV Accuracy: %.2f%%  Log Loss: %.4f\n", fit.Ensemble.Accuracy*100, fit.Ensemble.LogLoss)
			}
			return nil
		},
	}
}

func displayStatus(s models.BankrollState) {
	fmt.Println("\nBankroll Status")
	fmt.Println("===============")
	fmt.Printf("  Risk Level: %s (Kelly x%.2f)\n", s.RiskLevel, s.RiskLevel.KellyFraction())
	fmt.Printf("  Capital: %s -> %s (peak %s)\n", s.InitialCapital.StringFixed(2), s.CurrentCapital.StringFixed(2), s.PeakCapital.StringFixed(2))
	fmt.Printf("  Profit: %s (%.2f%%)\n", s.Profit.StringFixed(2), s.ProfitPct*100)
	fmt.Printf("  Drawdown: %.2f%% (max %.2f%%)\n", s.CurrentDrawdown*100, s.MaxDrawdown*100)
	fmt.Printf("  Bets: %d (%dW / %dL, win rate %.2f%%)\n", s.TotalBets, s.Wins, s.Losses, s.WinRate*100)
	fmt.Printf("  Staked: %s (mean %s, ROI %.2f%%)\n", s.TotalStaked.StringFixed(2), s.MeanStake.StringFixed(2), s.ROI*100)
	fmt.Printf("  Streaks: %d wins, %d losses\n", s.LongestWinStreak, s.LongestLossStreak)

	if len(s.Alerts) == 0 {
		fmt.Println("\nNo active alerts")
		return
	}
	fmt.Println("\nAlerts:")
	for _, alert := range s.Alerts {
		fmt.Printf("  [%s] %s: %s\n", alert.Severity, alert.Type, alert.Message)
	}
}

func newFitCmd() *cobra.Command {
	var cutoff string
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the ensemble on completed matches before a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now().UTC()
			if cutoff != "" {
				var err error
				if at, err = parseDate(cutoff); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.advisor.FitModels(ctx, at)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().StringVar(&cutoff, "cutoff", "", "Training cutoff (YYYY-MM-DD); defaults to now")
	return cmd
}

func newBacktestCmd() *cobra.Command {
	var (
		from, to, league string
		output, format   string
		riskLevel        string
		cadence          string
		sweep            bool
		iterations       int
		seed             int64
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay completed matches through the advisory pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := backtest.FromConfig(&cfg.Backtest)
			if err != nil {
				return err
			}
			if run.From, err = parseDate(from); err != nil {
				return err
			}
			if run.To, err = parseDate(to); err != nil {
				return err
			}
			run.LeagueID = league

			flags := cmd.Flags()
			if flags.Changed("risk-level") {
				run.RiskLevel = models.RiskLevel(riskLevel)
			}
			if flags.Changed("refit-cadence") {
				run.RefitCadence = backtest.RefitCadence(cadence)
			}
			if flags.Changed("sweep") {
				run.SweepRiskLevels = sweep
			}
			if flags.Changed("monte-carlo") {
				run.MonteCarloIterations = iterations
			}
			run.MonteCarloSeed = seed
			if !flags.Changed("format") {
				format = cfg.Backtest.Format
			}
			if !flags.Changed("output") {
				output = cfg.Backtest.OutputPath
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := backtest.NewEngine(cfg, a.store, log)
			if err != nil {
				return err
			}
			report, err := engine.Run(ctx, run)
			if err != nil {
				return err
			}

			if output != "" {
				if err := backtest.ExportReport(report, output, format); err != nil {
					return err
				}
				log.WithField("output", output).Info("Backtest report written")
				return nil
			}
			return backtest.WriteReport(os.Stdout, report, format)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&league, "league", "", "Restrict to one league")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file")
	cmd.Flags().StringVarP(&format, "format", "f", backtest.FormatConsole, "Report format (console, json, csv)")
	cmd.Flags().StringVar(&riskLevel, "risk-level", "", "Override the configured risk level")
	cmd.Flags().StringVar(&cadence, "refit-cadence", "", "Override the refit cadence (never, per_match, per_month)")
	cmd.Flags().BoolVar(&sweep, "sweep", false, "Replay at every risk level and recommend one")
	cmd.Flags().IntVar(&iterations, "monte-carlo", 0, "Monte Carlo resamples of the bet sequence")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Monte Carlo seed; 0 picks one from the clock")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file-or-url>",
		Short: "Validate and store matches and odds quotes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.importFixtures(ctx, args[0])
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled {
				log.Warn("Database disabled; imported fixtures are not persisted")
			}
			return printJSON(result)
		},
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
