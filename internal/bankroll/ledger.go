// Package bankroll owns the simulated capital and the append-only bet record sequence.
package bankroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
)

// RecordStore persists bet records in insertion order
type RecordStore interface {
	AppendBetRecord(ctx context.Context, record *models.BetRecord) error
	ListBetRecords(ctx context.Context) ([]models.BetRecord, error)
	DeleteBetRecords(ctx context.Context) error
}

// AlertHandler is notified when an alert starts holding
type AlertHandler func(alert models.Alert)

// Ledger is the single mutable bankroll. RecordBet is the only mutating path
// outside of Reset and Replay; every read returns a consistent snapshot.
type Ledger struct {
	mu          sync.RWMutex
	initial     decimal.Decimal
	current     decimal.Decimal
	peak        decimal.Decimal
	maxDrawdown float64
	riskLevel   models.RiskLevel
	records     []models.BetRecord
	alerts      []models.Alert
	limits      Limits
	store       RecordStore
	handlers    []AlertHandler
	audit       *logger.AuditLogger
	logger      *logrus.Entry
	now         func() time.Time
}

// NewLedger creates a ledger starting at the initial capital. store may be nil.
func NewLedger(initial decimal.Decimal, level models.RiskLevel, limits Limits, store RecordStore, log *logrus.Logger) (*Ledger, error) {
	if !initial.IsPositive() {
		return nil, fmt.Errorf("%w: initial capital must be positive, got %s", models.ErrInvalidInputs, initial)
	}
	if !level.IsValid() {
		return nil, fmt.Errorf("%w: unknown risk level %q", models.ErrInvalidInputs, level)
	}
	return &Ledger{
		initial:   initial,
		current:   initial,
		peak:      initial,
		riskLevel: level,
		limits:    limits,
		store:     store,
		audit:     logger.NewAuditLogger(log),
		logger:    log.WithField("component", "bankroll"),
		now:       time.Now,
	}, nil
}

// OnAlert registers a handler for newly raised alerts
func (l *Ledger) OnAlert(handler AlertHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, handler)
}

// SetClock replaces the clock stamping bet records
func (l *Ledger) SetClock(clock func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = clock
}

// SetRiskLevel records the risk level reported in status snapshots
func (l *Ledger) SetRiskLevel(level models.RiskLevel) error {
	if !level.IsValid() {
		return fmt.Errorf("%w: unknown risk level %q", models.ErrInvalidInputs, level)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.riskLevel = level
	return nil
}

// CurrentCapital returns the live capital
func (l *Ledger) CurrentCapital() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// RecordBet settles a sized recommendation against the actual winning outcome of its market
// and appends the resulting record. A failed store write leaves the ledger untouched.
func (l *Ledger) RecordBet(ctx context.Context, rec models.StakeRecommendation, actual models.Outcome) (*models.BetRecord, error) {
	if !rec.StakeAmount.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive, got %s", models.ErrInvalidInputs, rec.StakeAmount)
	}
	if rec.Odds <= 1 {
		return nil, fmt.Errorf("%w: odds must exceed 1, got %.4f", models.ErrInvalidInputs, rec.Odds)
	}
	if !rec.Market.Contains(actual) {
		return nil, fmt.Errorf("%w: outcome %q does not settle market %s", models.ErrInvalidInputs, actual, rec.Market)
	}

	record, raised, err := l.record(ctx, rec, actual)
	if err != nil {
		return nil, err
	}

	l.audit.LogBetSettled(record.ID.String(), record.MatchID, string(record.Market), string(record.Outcome),
		string(record.Result), record.Sequence, record.Odds, record.StakeAmount.String(), record.Profit.String(),
		record.CapitalBefore.String(), record.CapitalAfter.String())
	l.notify(raised)

	return record, nil
}

func (l *Ledger) record(ctx context.Context, rec models.StakeRecommendation, actual models.Outcome) (*models.BetRecord, []models.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.StakeAmount.GreaterThan(l.current) {
		return nil, nil, fmt.Errorf("%w: stake %s exceeds current capital %s", models.ErrInvalidInputs, rec.StakeAmount, l.current)
	}

	won := rec.Outcome == actual
	result := models.BetResultLost
	if won {
		result = models.BetResultWon
	}
	profit := models.BetProfit(rec.StakeAmount, rec.Odds, won)

	record := models.BetRecord{
		ID:               uuid.New(),
		Sequence:         int64(len(l.records) + 1),
		PlacedAt:         l.now().UTC(),
		MatchID:          rec.MatchID,
		Market:           rec.Market,
		Outcome:          rec.Outcome,
		StakeAmount:      rec.StakeAmount,
		StakeFraction:    rec.StakeFraction,
		Odds:             rec.Odds,
		ModelProbability: rec.ModelProbability,
		ExpectedValue:    rec.ExpectedValue,
		Result:           result,
		Profit:           profit,
		CapitalBefore:    l.current,
		CapitalAfter:     l.current.Add(profit),
	}

	if l.store != nil {
		if err := l.store.AppendBetRecord(ctx, &record); err != nil {
			return nil, nil, fmt.Errorf("failed to persist bet record for match %s: %w", rec.MatchID, err)
		}
	}

	l.applyLocked(record)
	raised := l.evaluateAlertsLocked()

	out := record
	return &out, raised, nil
}

func (l *Ledger) applyLocked(record models.BetRecord) {
	l.records = append(l.records, record)
	l.current = record.CapitalAfter
	if l.current.GreaterThan(l.peak) {
		l.peak = l.current
	}
	if dd := drawdown(l.peak, l.current); dd > l.maxDrawdown {
		l.maxDrawdown = dd
	}
}

// Status returns a consistent snapshot of capital and derived statistics
func (l *Ledger) Status() models.BankrollState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() models.BankrollState {
	state := summarise(l.initial, l.records)
	state.CurrentCapital = l.current
	state.PeakCapital = l.peak
	state.CurrentDrawdown = drawdown(l.peak, l.current)
	state.MaxDrawdown = l.maxDrawdown
	state.RiskLevel = l.riskLevel
	state.Alerts = append([]models.Alert(nil), l.alerts...)
	return state
}

// Alerts returns the currently active alerts
func (l *Ledger) Alerts() []models.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Alert(nil), l.alerts...)
}

// Records returns a copy of the bet record sequence
func (l *Ledger) Records() []models.BetRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.BetRecord(nil), l.records...)
}

// Reset clears the ledger, optionally at a new capital. Administrative and test use only.
func (l *Ledger) Reset(ctx context.Context, newCapital *decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	capital := l.initial
	if newCapital != nil {
		if !newCapital.IsPositive() {
			return fmt.Errorf("%w: reset capital must be positive, got %s", models.ErrInvalidInputs, newCapital)
		}
		capital = *newCapital
	}

	if l.store != nil {
		if err := l.store.DeleteBetRecords(ctx); err != nil {
			return fmt.Errorf("failed to clear stored bet records: %w", err)
		}
	}

	l.audit.LogLedgerReset(l.current.String(), capital.String(), len(l.records))

	l.initial = capital
	l.current = capital
	l.peak = capital
	l.maxDrawdown = 0
	l.records = nil
	l.alerts = nil
	return nil
}

// Replay rebuilds the ledger from the store, starting at the initial capital
func (l *Ledger) Replay(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	records, err := l.store.ListBetRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bet records: %w", err)
	}

	l.mu.Lock()
	if _, err := ReplayCapital(l.initial, records); err != nil {
		l.mu.Unlock()
		return err
	}

	l.current = l.initial
	l.peak = l.initial
	l.maxDrawdown = 0
	l.records = nil
	for _, record := range records {
		l.applyLocked(record)
	}
	l.alerts = nil
	raised := l.evaluateAlertsLocked()
	initial, current := l.initial, l.current
	l.mu.Unlock()

	l.audit.LogLedgerReplayed(len(records), initial.String(), current.String())
	l.notify(raised)
	return nil
}

// ReplayCapital reconstructs capital from the initial amount and a record sequence,
// verifying every record and the continuity of the capital chain
func ReplayCapital(initial decimal.Decimal, records []models.BetRecord) (decimal.Decimal, error) {
	capital := initial
	for i := range records {
		r := &records[i]
		if !r.CapitalBefore.Equal(capital) {
			return decimal.Zero, fmt.Errorf("%w: record %d starts at %s, expected %s",
				models.ErrInvalidInputs, r.Sequence, r.CapitalBefore, capital)
		}
		if err := r.Verify(); err != nil {
			return decimal.Zero, err
		}
		capital = capital.Add(r.Profit)
	}
	return capital, nil
}

func drawdown(peak, current decimal.Decimal) float64 {
	if !peak.IsPositive() || current.GreaterThanOrEqual(peak) {
		return 0
	}
	return peak.Sub(current).Div(peak).InexactFloat64()
}
