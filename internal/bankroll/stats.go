package bankroll

import (
	"github.com/shopspring/decimal"
	"github.com/yourusername/bet-advisor/internal/models"
)

// summarise derives the cumulative statistics of a record sequence
func summarise(initial decimal.Decimal, records []models.BetRecord) models.BankrollState {
	state := models.BankrollState{
		InitialCapital: initial,
		CurrentCapital: initial,
		PeakCapital:    initial,
		Profit:         decimal.Zero,
		TotalStaked:    decimal.Zero,
		MeanStake:      decimal.Zero,
	}

	winStreak, lossStreak := 0, 0
	for i := range records {
		r := &records[i]
		state.TotalBets++
		state.TotalStaked = state.TotalStaked.Add(r.StakeAmount)
		state.Profit = state.Profit.Add(r.Profit)
		state.CurrentCapital = r.CapitalAfter
		if r.CapitalAfter.GreaterThan(state.PeakCapital) {
			state.PeakCapital = r.CapitalAfter
		}
		if dd := drawdown(state.PeakCapital, r.CapitalAfter); dd > state.MaxDrawdown {
			state.MaxDrawdown = dd
		}

		if r.Won() {
			state.Wins++
			winStreak++
			lossStreak = 0
		} else {
			state.Losses++
			lossStreak++
			winStreak = 0
		}
		if winStreak > state.LongestWinStreak {
			state.LongestWinStreak = winStreak
		}
		if lossStreak > state.LongestLossStreak {
			state.LongestLossStreak = lossStreak
		}
	}

	state.CurrentDrawdown = drawdown(state.PeakCapital, state.CurrentCapital)
	if initial.IsPositive() {
		state.ProfitPct = state.Profit.Div(initial).InexactFloat64()
	}
	if state.TotalBets > 0 {
		state.WinRate = float64(state.Wins) / float64(state.TotalBets)
		state.MeanStake = state.TotalStaked.Div(decimal.NewFromInt(int64(state.TotalBets))).Round(2)
	}
	if state.TotalStaked.IsPositive() {
		state.ROI = state.Profit.Div(state.TotalStaked).InexactFloat64()
	}
	return state
}

// Summarise exposes the statistics of an arbitrary record sequence, as used in reports
func Summarise(initial decimal.Decimal, records []models.BetRecord) models.BankrollState {
	return summarise(initial, records)
}
