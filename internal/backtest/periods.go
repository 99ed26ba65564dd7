package backtest

import (
	"sort"
	"time"
)

// PeriodResult is the calendar-month slice of a run
type PeriodResult struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Bets         int       `json:"bets"`
	Profit       float64   `json:"profit"`
	OpeningValue float64   `json:"opening_value"`
	Return       float64   `json:"return"`
	MaxDrawdown  float64   `json:"max_drawdown"`
}

// monthlyPeriods splits the equity curve into calendar months that saw at least one bet
func monthlyPeriods(curve EquityCurve, pnl map[time.Time]float64) []PeriodResult {
	if len(curve) < 2 {
		return nil
	}

	months := make([]time.Time, 0, len(pnl))
	for m := range pnl {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	periods := make([]PeriodResult, 0, len(months))
	opening := curve[0].Value
	idx := 1
	for _, month := range months {
		end := month.AddDate(0, 1, 0)
		p := PeriodResult{Start: month, End: end, OpeningValue: opening, Profit: pnl[month]}

		window := EquityCurve{{Value: opening}}
		for idx < len(curve) && curve[idx].Time.Before(end) {
			window = append(window, curve[idx])
			p.Bets++
			idx++
		}
		p.MaxDrawdown = window.MaxDrawdown()
		if opening > 0 {
			p.Return = p.Profit / opening
		}
		opening = window[len(window)-1].Value
		periods = append(periods, p)
	}
	return periods
}

// CalculateConsistency calculates the share of profitable periods
func CalculateConsistency(periods []PeriodResult) float64 {
	if len(periods) == 0 {
		return 0
	}
	profitable := 0
	for _, p := range periods {
		if p.Profit > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(periods))
}
