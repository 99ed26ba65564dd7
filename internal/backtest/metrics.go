package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Report summarises one backtest run at a single risk level
type Report struct {
	ID                   uuid.UUID          `json:"id"`
	RunAt                time.Time          `json:"run_at"`
	From                 time.Time          `json:"from"`
	To                   time.Time          `json:"to"`
	RiskLevel            models.RiskLevel   `json:"risk_level"`
	RefitCadence         RefitCadence       `json:"refit_cadence"`
	Refits               int                `json:"refits"`
	LastFitAt            time.Time          `json:"last_fit_at"`
	Matches              int                `json:"matches"`
	Skipped              int                `json:"skipped"`
	Opportunities        int                `json:"opportunities"`
	BetsPlaced           int                `json:"bets_placed"`
	ExecutionRate        float64            `json:"execution_rate"`
	InitialCapital       decimal.Decimal    `json:"initial_capital"`
	FinalCapital         decimal.Decimal    `json:"final_capital"`
	Profit               decimal.Decimal    `json:"profit"`
	ROI                  float64            `json:"roi"`
	Yield                float64            `json:"yield"`
	TerminalDrawdown     float64            `json:"terminal_drawdown"`
	MaxDrawdown          float64            `json:"max_drawdown"`
	Wins                 int                `json:"wins"`
	Losses               int                `json:"losses"`
	WinRate              float64            `json:"win_rate"`
	LongestWinStreak     int                `json:"longest_win_streak"`
	LongestLossStreak    int                `json:"longest_loss_streak"`
	MeanStake            decimal.Decimal    `json:"mean_stake"`
	Volatility           float64            `json:"volatility"`
	DownsideDeviation    float64            `json:"downside_deviation"`
	SharpeRatio          float64            `json:"sharpe_ratio"`
	SortinoRatio         float64            `json:"sortino_ratio"`
	ProfitFactor         float64            `json:"profit_factor"`
	Expectancy           float64            `json:"expectancy"`
	LargestWin           float64            `json:"largest_win"`
	LargestLoss          float64            `json:"largest_loss"`
	RiskAdjustedScore    float64            `json:"risk_adjusted_score"`
	Halted               bool               `json:"halted"`
	HaltedAt             *time.Time         `json:"halted_at,omitempty"`
	Alerts               []models.Alert     `json:"alerts"`
	Periods              []PeriodResult     `json:"periods"`
	Consistency          float64            `json:"consistency"`
	EquityCurve          EquityCurve        `json:"equity_curve"`
	Bets                 []models.BetRecord `json:"bets"`
	Sweep                []SweepResult      `json:"sweep,omitempty"`
	RecommendedRiskLevel models.RiskLevel   `json:"recommended_risk_level,omitempty"`
	MonteCarlo           *MonteCarloResult  `json:"monte_carlo,omitempty"`
}

// buildReport derives the report from the replay state and the ledger's final snapshot
func buildReport(cfg Config, level models.RiskLevel, s *runState, final models.BankrollState, epsilon float64) *Report {
	r := &Report{
		ID:                uuid.New(),
		RunAt:             time.Now().UTC(),
		From:              cfg.From,
		To:                cfg.To,
		RiskLevel:         level,
		RefitCadence:      cfg.RefitCadence,
		Refits:            s.refits,
		LastFitAt:         s.lastFitAt,
		Matches:           s.matches,
		Skipped:           s.skipped,
		Opportunities:     s.opportunities,
		BetsPlaced:        len(s.records),
		InitialCapital:    final.InitialCapital,
		FinalCapital:      final.CurrentCapital,
		Profit:            final.Profit,
		Yield:             final.ROI,
		TerminalDrawdown:  final.CurrentDrawdown,
		MaxDrawdown:       final.MaxDrawdown,
		Wins:              final.Wins,
		Losses:            final.Losses,
		WinRate:           final.WinRate,
		LongestWinStreak:  final.LongestWinStreak,
		LongestLossStreak: final.LongestLossStreak,
		MeanStake:         final.MeanStake,
		Halted:            s.halted,
		HaltedAt:          s.haltedAt,
		Alerts:            final.Alerts,
		EquityCurve:       s.curve,
		Bets:              s.records,
	}
	if r.Opportunities > 0 {
		r.ExecutionRate = float64(r.BetsPlaced) / float64(r.Opportunities)
	}
	if final.InitialCapital.IsPositive() {
		r.ROI = final.Profit.Div(final.InitialCapital).InexactFloat64()
	}

	returns := s.curve.GetReturns()
	r.Volatility = s.curve.GetVolatility()
	r.DownsideDeviation = s.curve.GetDownsideDeviation()
	r.SharpeRatio = calculateSharpeRatio(returns)
	r.SortinoRatio = calculateSortinoRatio(returns)
	r.ProfitFactor = calculateProfitFactor(s.records)
	r.Expectancy = calculateExpectancy(s.records)
	r.LargestWin, r.LargestLoss = calculateExtremes(s.records)
	r.RiskAdjustedScore = RiskAdjustedScore(r.ROI, r.MaxDrawdown, epsilon)
	r.Periods = monthlyPeriods(s.curve, s.monthlyPnL)
	r.Consistency = CalculateConsistency(r.Periods)
	return r
}

// RiskAdjustedScore returns ROI / max(drawdown, ε)
func RiskAdjustedScore(roi, maxDrawdown, epsilon float64) float64 {
	return roi / math.Max(maxDrawdown, epsilon)
}

// calculateSharpeRatio is the per-bet Sharpe ratio, not annualised
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	std := stddev(returns)
	if std == 0 {
		return 0
	}
	return average(returns) / std
}

func calculateSortinoRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	std := downsideStddev(returns)
	if std == 0 {
		return 0
	}
	return average(returns) / std
}

func calculateProfitFactor(records []models.BetRecord) float64 {
	grossProfit := 0.0
	grossLoss := 0.0
	for _, rec := range records {
		pl := rec.Profit.InexactFloat64()
		if pl > 0 {
			grossProfit += pl
		} else {
			grossLoss += math.Abs(pl)
		}
	}
	if grossLoss == 0 {
		if grossProfit > 0 {
			return 999
		}
		return 0
	}
	return grossProfit / grossLoss
}

func calculateExpectancy(records []models.BetRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	net := 0.0
	for _, rec := range records {
		net += rec.Profit.InexactFloat64()
	}
	return net / float64(len(records))
}

func calculateExtremes(records []models.BetRecord) (largestWin, largestLoss float64) {
	for _, rec := range records {
		pl := rec.Profit.InexactFloat64()
		if pl > largestWin {
			largestWin = pl
		}
		if pl < largestLoss {
			largestLoss = pl
		}
	}
	return largestWin, largestLoss
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	return mean / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func downsideStddev(values []float64) float64 {
	negatives := make([]float64, 0)
	for _, v := range values {
		if v < 0 {
			negatives = append(negatives, v)
		}
	}
	return stddev(negatives)
}
