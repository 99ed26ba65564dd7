package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Report output formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatCSV     = "csv"
)

// GenerateConsoleReport formats a report for terminal output
func GenerateConsoleReport(r *Report) string {
	var b strings.Builder
	b.WriteString("Backtest Report\n")
	b.WriteString("================\n")
	b.WriteString(fmt.Sprintf("Range: %s .. %s\n", r.From.Format("2006-01-02"), r.To.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Risk Level: %s (Kelly x%.2f)\n", r.RiskLevel, r.RiskLevel.KellyFraction()))
	b.WriteString(fmt.Sprintf("Refit Cadence: %s (%d refits, last fit %s)\n", r.RefitCadence, r.Refits, r.LastFitAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Matches: %d (skipped %d)\n", r.Matches, r.Skipped))
	b.WriteString(fmt.Sprintf("Opportunities: %d\n", r.Opportunities))
	b.WriteString(fmt.Sprintf("Bets Placed: %d (execution rate %.2f%%)\n", r.BetsPlaced, r.ExecutionRate*100))
	b.WriteString(fmt.Sprintf("Capital: %s -> %s\n", r.InitialCapital.StringFixed(2), r.FinalCapital.StringFixed(2)))
	b.WriteString(fmt.Sprintf("ROI: %.2f%%\n", r.ROI*100))
	b.WriteString(fmt.Sprintf("Yield on Stakes: %.2f%%\n", r.Yield*100))
	b.WriteString(fmt.Sprintf("Max Drawdown: %.2f%% (terminal %.2f%%)\n", r.MaxDrawdown*100, r.TerminalDrawdown*100))
	b.WriteString(fmt.Sprintf("Win Rate: %.2f%% (%dW / %dL)\n", r.WinRate*100, r.Wins, r.Losses))
	b.WriteString(fmt.Sprintf("Streaks: %d wins, %d losses\n", r.LongestWinStreak, r.LongestLossStreak))
	b.WriteString(fmt.Sprintf("Volatility: %.2f%% per bet (downside %.2f%%)\n", r.Volatility*100, r.DownsideDeviation*100))
	b.WriteString(fmt.Sprintf("Sharpe Ratio: %.2f (Sortino %.2f)\n", r.SharpeRatio, r.SortinoRatio))
	b.WriteString(fmt.Sprintf("Profit Factor: %.2f\n", r.ProfitFactor))
	b.WriteString(fmt.Sprintf("Consistency: %.2f%% of months profitable\n", r.Consistency*100))
	b.WriteString(fmt.Sprintf("Risk-Adjusted Score: %.3f\n", r.RiskAdjustedScore))
	if r.Halted && r.HaltedAt != nil {
		b.WriteString(fmt.Sprintf("HALTED at %s\n", r.HaltedAt.Format("2006-01-02 15:04")))
	}

	if len(r.Sweep) > 0 {
		b.WriteString("\nRisk Sweep\n")
		b.WriteString("----------\n")
		for _, s := range r.Sweep {
			marker := " "
			if s.RiskLevel == r.RecommendedRiskLevel {
				marker = "*"
			}
			b.WriteString(fmt.Sprintf("%s %-12s ROI %7.2f%%  DD %6.2f%%  exec %6.2f%%  score %8.3f\n",
				marker, s.RiskLevel, s.ROI*100, s.MaxDrawdown*100, s.ExecutionRate*100, s.Score))
		}
		b.WriteString(fmt.Sprintf("Recommended Risk Level: %s\n", r.RecommendedRiskLevel))
	}

	if mc := r.MonteCarlo; mc != nil {
		b.WriteString("\nMonte Carlo\n")
		b.WriteString("-----------\n")
		b.WriteString(fmt.Sprintf("Iterations: %d\n", mc.Iterations))
		b.WriteString(fmt.Sprintf("Mean Return: %.2f%% (std %.2f%%)\n", mc.MeanReturn*100, mc.StdReturn*100))
		b.WriteString(fmt.Sprintf("VaR 95/99: %.2f%% / %.2f%%\n", mc.VaR95*100, mc.VaR99*100))
		b.WriteString(fmt.Sprintf("Drawdown p50/p95/p99: %.2f%% / %.2f%% / %.2f%%\n",
			mc.DrawdownPercentiles["p50"]*100, mc.DrawdownPercentiles["p95"]*100, mc.DrawdownPercentiles["p99"]*100))
		b.WriteString(fmt.Sprintf("P(profit): %.2f%%  P(halt): %.2f%%\n", mc.ProbabilityOfProfit*100, mc.ProbabilityOfHalt*100))
	}
	return b.String()
}

// WriteReport renders the report in the given format
func WriteReport(w io.Writer, r *Report, format string) error {
	switch format {
	case "", FormatConsole:
		_, err := io.WriteString(w, GenerateConsoleReport(r))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatCSV:
		_, err := io.WriteString(w, GenerateCSVSummary(r))
		return err
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// GenerateCSVSummary exports key metrics for spreadsheets
func GenerateCSVSummary(r *Report) string {
	return "metric,value\n" +
		fmt.Sprintf("risk_level,%s\n", r.RiskLevel) +
		fmt.Sprintf("refit_cadence,%s\n", r.RefitCadence) +
		fmt.Sprintf("refits,%d\n", r.Refits) +
		fmt.Sprintf("opportunities,%d\n", r.Opportunities) +
		fmt.Sprintf("bets_placed,%d\n", r.BetsPlaced) +
		fmt.Sprintf("execution_rate,%.4f\n", r.ExecutionRate) +
		fmt.Sprintf("initial_capital,%s\n", r.InitialCapital.StringFixed(2)) +
		fmt.Sprintf("final_capital,%s\n", r.FinalCapital.StringFixed(2)) +
		fmt.Sprintf("roi,%.4f\n", r.ROI) +
		fmt.Sprintf("max_drawdown,%.4f\n", r.MaxDrawdown) +
		fmt.Sprintf("terminal_drawdown,%.4f\n", r.TerminalDrawdown) +
		fmt.Sprintf("win_rate,%.4f\n", r.WinRate) +
		fmt.Sprintf("volatility,%.4f\n", r.Volatility) +
		fmt.Sprintf("downside_deviation,%.4f\n", r.DownsideDeviation) +
		fmt.Sprintf("sharpe_ratio,%.4f\n", r.SharpeRatio) +
		fmt.Sprintf("profit_factor,%.4f\n", r.ProfitFactor) +
		fmt.Sprintf("risk_adjusted_score,%.4f\n", r.RiskAdjustedScore) +
		fmt.Sprintf("recommended_risk_level,%s\n", r.RecommendedRiskLevel)
}

// ExportReport writes the report to outputPath in the given format, plus the equity curve as
// a sibling CSV.
func ExportReport(r *Report, outputPath, format string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := WriteReport(f, r, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	curvePath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_equity.csv"
	return os.WriteFile(curvePath, []byte(r.EquityCurve.ToCSV()), 0o644)
}
