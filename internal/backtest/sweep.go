package backtest

import (
	"context"
	"fmt"

	"github.com/yourusername/bet-advisor/internal/metrics"
	"github.com/yourusername/bet-advisor/internal/models"
)

// SweepResult scores one risk level over the same match range
type SweepResult struct {
	RiskLevel     models.RiskLevel `json:"risk_level"`
	KellyFraction float64          `json:"kelly_fraction"`
	ROI           float64          `json:"roi"`
	MaxDrawdown   float64          `json:"max_drawdown"`
	ExecutionRate float64          `json:"execution_rate"`
	BetsPlaced    int              `json:"bets_placed"`
	Halted        bool             `json:"halted"`
	Score         float64          `json:"score"`
}

// RunSweep replays the range once per risk level and recommends the level with the best
// risk-adjusted score. Ties go to the more conservative level.
func (e *Engine) RunSweep(ctx context.Context, cfg Config) ([]SweepResult, models.RiskLevel, error) {
	results := make([]SweepResult, 0, len(models.RiskLevels))
	for _, level := range models.RiskLevels {
		run := cfg
		run.RiskLevel = level
		run.SweepRiskLevels = false
		run.MonteCarloIterations = 0

		report, err := e.run(ctx, run)
		if err != nil {
			return nil, "", fmt.Errorf("sweep at %s failed: %w", level, err)
		}
		results = append(results, sweepResultOf(report))
		metrics.UpdateRiskSweep(string(level), report.ROI, report.RiskAdjustedScore)
	}
	return results, RecommendRiskLevel(results), nil
}

// RecommendRiskLevel returns the level with the top score
func RecommendRiskLevel(results []SweepResult) models.RiskLevel {
	var best *SweepResult
	for i := range results {
		if best == nil || results[i].Score > best.Score {
			best = &results[i]
		}
	}
	if best == nil {
		return ""
	}
	return best.RiskLevel
}

func sweepResultOf(r *Report) SweepResult {
	return SweepResult{
		RiskLevel:     r.RiskLevel,
		KellyFraction: r.RiskLevel.KellyFraction(),
		ROI:           r.ROI,
		MaxDrawdown:   r.MaxDrawdown,
		ExecutionRate: r.ExecutionRate,
		BetsPlaced:    r.BetsPlaced,
		Halted:        r.Halted,
		Score:         r.RiskAdjustedScore,
	}
}
