package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/yourusername/bet-advisor/internal/models"
)

// MonteCarloConfig configures monte carlo simulation
type MonteCarloConfig struct {
	Iterations  int
	Seed        int64
	MaxDrawdown float64
}

// MonteCarloResult summarises bootstrap resamples of the run's bet sequence
type MonteCarloResult struct {
	Iterations          int                `json:"iterations"`
	MeanReturn          float64            `json:"mean_return"`
	StdReturn           float64            `json:"std_return"`
	VaR95               float64            `json:"var_95"`
	VaR99               float64            `json:"var_99"`
	ProbabilityOfProfit float64            `json:"probability_of_profit"`
	ProbabilityOfHalt   float64            `json:"probability_of_halt"`
	DrawdownPercentiles map[string]float64 `json:"drawdown_percentiles"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
}

// RunMonteCarlo resamples the per-bet capital returns with replacement and compounds each
// resample from unit capital. A resample whose drawdown reaches MaxDrawdown counts as halted.
func RunMonteCarlo(ctx context.Context, records []models.BetRecord, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if len(records) == 0 {
		return MonteCarloResult{}, fmt.Errorf("%w: no settled bets to resample", models.ErrInvalidInputs)
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = 1000
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	betReturns := make([]float64, 0, len(records))
	for _, rec := range records {
		before := rec.CapitalBefore.InexactFloat64()
		if before <= 0 {
			continue
		}
		betReturns = append(betReturns, rec.Profit.InexactFloat64()/before)
	}
	if len(betReturns) == 0 {
		return MonteCarloResult{}, fmt.Errorf("%w: no bets with positive capital", models.ErrInvalidInputs)
	}

	rng := rand.New(rand.NewSource(seed))
	finals := make([]float64, cfg.Iterations)
	drawdowns := make([]float64, cfg.Iterations)
	halted := 0

	for i := 0; i < cfg.Iterations; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return MonteCarloResult{}, err
			}
		}
		capital, peak, maxDD := 1.0, 1.0, 0.0
		for range betReturns {
			capital *= 1 + betReturns[rng.Intn(len(betReturns))]
			if capital > peak {
				peak = capital
			}
			if dd := (peak - capital) / peak; dd > maxDD {
				maxDD = dd
			}
			if capital <= 0 {
				capital = 0
				break
			}
		}
		finals[i] = capital - 1
		drawdowns[i] = maxDD
		if cfg.MaxDrawdown > 0 && maxDD > cfg.MaxDrawdown {
			halted++
		}
	}

	sort.Float64s(finals)
	sort.Float64s(drawdowns)
	mean, std := meanStd(finals)

	return MonteCarloResult{
		Iterations:          cfg.Iterations,
		MeanReturn:          mean,
		StdReturn:           std,
		VaR95:               percentile(finals, 0.05),
		VaR99:               percentile(finals, 0.01),
		ProbabilityOfProfit: probabilityAbove(finals, 0),
		ProbabilityOfHalt:   float64(halted) / float64(cfg.Iterations),
		DrawdownPercentiles: map[string]float64{
			"p50": percentile(drawdowns, 0.50),
			"p95": percentile(drawdowns, 0.95),
			"p99": percentile(drawdowns, 0.99),
		},
		ConfidenceIntervals: CalculateConfidenceIntervals(finals, []float64{0.9, 0.95, 0.99}),
	}, nil
}

// CalculateConfidenceIntervals computes the width of the central interval per level.
// The distribution must be sorted.
func CalculateConfidenceIntervals(sorted []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64)
	for _, level := range levels {
		p := (1.0 - level) / 2.0
		results[formatPercent(level)] = percentile(sorted, 1.0-p) - percentile(sorted, p)
	}
	return results
}

func meanStd(values []float64) (float64, float64) {
	return average(values), stddev(values)
}

// percentile reads the p-quantile of a sorted slice
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func probabilityAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func formatPercent(level float64) string {
	return fmt.Sprintf("%.0f%%", level*100)
}
