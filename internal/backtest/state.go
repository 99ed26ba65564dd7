package backtest

import (
	"time"

	"github.com/yourusername/bet-advisor/internal/models"
)

// runState tracks one replay as it walks the match list
type runState struct {
	matches       int
	skipped       int
	opportunities int
	refits        int
	lastFitAt     time.Time
	lastCutoff    time.Time
	halted        bool
	haltedAt      *time.Time
	peak          float64
	records       []models.BetRecord
	curve         EquityCurve
	monthlyPnL    map[time.Time]float64
}

func newRunState(initial float64, start time.Time) *runState {
	s := &runState{
		peak:       initial,
		monthlyPnL: make(map[time.Time]float64),
	}
	s.curve = append(s.curve, EquityPoint{Time: start, Value: initial})
	return s
}

// settle appends a settled bet and its equity point
func (s *runState) settle(record models.BetRecord, kickoff time.Time) {
	s.records = append(s.records, record)

	value := record.CapitalAfter.InexactFloat64()
	if value > s.peak {
		s.peak = value
	}
	drawdown := 0.0
	if s.peak > 0 && value < s.peak {
		drawdown = (s.peak - value) / s.peak
	}
	s.curve = append(s.curve, EquityPoint{Time: kickoff, MatchID: record.MatchID, Value: value, Drawdown: drawdown})
	s.monthlyPnL[monthOf(kickoff)] += record.Profit.InexactFloat64()
}

// refitDue reports whether the cadence asks for a new fit before the match
func (s *runState) refitDue(cadence RefitCadence, kickoff time.Time, ready bool) bool {
	if !ready {
		return true
	}
	switch cadence {
	case RefitPerMatch:
		return true
	case RefitPerMonth:
		return !monthOf(kickoff).Equal(monthOf(s.lastCutoff))
	default:
		return false
	}
}

func monthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
