package bankroll

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
)

type fakeRecordStore struct {
	mu      sync.Mutex
	records []models.BetRecord
	failing bool
}

func (s *fakeRecordStore) AppendBetRecord(ctx context.Context, record *models.BetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("disk full")
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *fakeRecordStore) ListBetRecords(ctx context.Context) ([]models.BetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.BetRecord(nil), s.records...), nil
}

func (s *fakeRecordStore) DeleteBetRecords(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

func newTestLedger(t *testing.T, store RecordStore) *Ledger {
	t.Helper()
	l, err := NewLedger(decimal.NewFromInt(1000), models.RiskConservative, DefaultLimits(), store, logger.NewNopLogger())
	require.NoError(t, err)
	return l
}

func stake(amount string, p, odds float64) models.StakeRecommendation {
	return models.StakeRecommendation{
		MatchID:          "m1",
		Market:           models.MarketMatchResult,
		Outcome:          models.OutcomeHome,
		Odds:             odds,
		ModelProbability: p,
		ExpectedValue:    p*odds - 1,
		StakeAmount:      decimal.RequireFromString(amount),
		StakeFraction:    0.01,
		Label:            models.LabelBet,
	}
}

func TestRecordBetWinAndLoss(t *testing.T) {
	ctx := context.Background()

	winLedger := newTestLedger(t, nil)
	rec, err := winLedger.RecordBet(ctx, stake("10", 0.5, 2.2), models.OutcomeHome)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1012).Equal(rec.CapitalAfter), "got %s", rec.CapitalAfter)
	assert.True(t, decimal.NewFromInt(12).Equal(rec.Profit))
	assert.Equal(t, models.BetResultWon, rec.Result)

	lossLedger := newTestLedger(t, nil)
	rec, err = lossLedger.RecordBet(ctx, stake("10", 0.5, 2.2), models.OutcomeAway)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(990).Equal(rec.CapitalAfter))

	rec, err = newTestLedger(t, nil).RecordBet(ctx, stake("12.50", 0.6, 2.0), models.OutcomeDraw)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("987.50").Equal(rec.CapitalAfter))
}

func TestRecordBetRejectsInvalid(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()

	_, err := l.RecordBet(ctx, stake("0", 0.5, 2.2), models.OutcomeHome)
	assert.ErrorIs(t, err, models.ErrInvalidInputs)

	_, err = l.RecordBet(ctx, stake("5000", 0.5, 2.2), models.OutcomeHome)
	assert.ErrorIs(t, err, models.ErrInvalidInputs)

	_, err = l.RecordBet(ctx, stake("10", 0.5, 2.2), models.OutcomeOver)
	assert.ErrorIs(t, err, models.ErrInvalidInputs)

	assert.Empty(t, l.Records())
}

func TestCapitalChainContinuity(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	outcomes := []models.Outcome{models.OutcomeHome, models.OutcomeAway, models.OutcomeDraw, models.OutcomeHome}

	for i := 0; i < 40; i++ {
		_, err := l.RecordBet(ctx, stake("7.35", 0.4, 2.75), outcomes[i%len(outcomes)])
		require.NoError(t, err)
	}

	records := l.Records()
	require.Len(t, records, 40)
	for i := 0; i < len(records)-1; i++ {
		assert.True(t, records[i].CapitalAfter.Equal(records[i+1].CapitalBefore), "break at %d", i)
		assert.Equal(t, int64(i+1), records[i].Sequence)
	}
	for i := range records {
		require.NoError(t, records[i].Verify())
	}
}

func TestConcurrentRecordBetKeepsChain(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := models.OutcomeAway
			if i%3 == 0 {
				outcome = models.OutcomeHome
			}
			for j := 0; j < 10; j++ {
				_, err := l.RecordBet(ctx, stake("1", 0.5, 2.1), outcome)
				assert.NoError(t, err)
				_ = l.Status()
			}
		}(i)
	}
	wg.Wait()

	records := l.Records()
	require.Len(t, records, 160)
	replayed, err := ReplayCapital(decimal.NewFromInt(1000), records)
	require.NoError(t, err)
	assert.True(t, replayed.Equal(l.CurrentCapital()))
}

func TestStatusIsIdempotent(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	_, err := l.RecordBet(ctx, stake("25", 0.5, 2.2), models.OutcomeHome)
	require.NoError(t, err)
	_, err = l.RecordBet(ctx, stake("25", 0.5, 2.2), models.OutcomeAway)
	require.NoError(t, err)

	assert.Equal(t, l.Status(), l.Status())
}

func TestStatusStatistics(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	results := []models.Outcome{
		models.OutcomeHome, models.OutcomeHome, models.OutcomeAway,
		models.OutcomeAway, models.OutcomeAway, models.OutcomeHome,
	}
	for _, actual := range results {
		_, err := l.RecordBet(ctx, stake("10", 0.5, 2.0), actual)
		require.NoError(t, err)
	}

	s := l.Status()
	assert.Equal(t, 6, s.TotalBets)
	assert.Equal(t, 3, s.Wins)
	assert.InDelta(t, 0.5, s.WinRate, 1e-9)
	assert.Equal(t, 2, s.LongestWinStreak)
	assert.Equal(t, 3, s.LongestLossStreak)
	assert.True(t, decimal.NewFromInt(10).Equal(s.MeanStake))
	assert.True(t, decimal.Zero.Equal(s.Profit))
	assert.True(t, decimal.NewFromInt(1020).Equal(s.PeakCapital))
	// peak 1020, trough 990
	assert.InDelta(t, 30.0/1020.0, s.MaxDrawdown, 1e-9)
	assert.InDelta(t, 20.0/1020.0, s.CurrentDrawdown, 1e-9)
}

func TestDrawdownHaltSequence(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()

	expected := decimal.NewFromInt(1000)
	tenth := decimal.RequireFromString("0.1")
	for n := 1; n <= 20; n++ {
		bet := stake(l.CurrentCapital().Mul(tenth).String(), 0.5, 2.0)
		bet.StakeFraction = 0.10
		_, err := l.RecordBet(ctx, bet, models.OutcomeAway)
		require.NoError(t, err)
		expected = expected.Mul(decimal.RequireFromString("0.9"))
		require.True(t, expected.Equal(l.CurrentCapital()), "n=%d capital=%s", n, l.CurrentCapital())

		state := l.Status()
		switch n {
		case 2:
			assert.True(t, decimal.NewFromInt(810).Equal(state.CurrentCapital))
			assert.InDelta(t, 0.19, state.CurrentDrawdown, 1e-9)
			assert.False(t, hasAlert(state, models.AlertMaxDrawdownExceeded))
		case 3:
			assert.True(t, decimal.NewFromInt(729).Equal(state.CurrentCapital))
			assert.InDelta(t, 0.271, state.CurrentDrawdown, 1e-9)
			assert.True(t, hasAlert(state, models.AlertMaxDrawdownExceeded))
			assert.True(t, state.IsHalted())
		}
	}
}

func hasAlert(state models.BankrollState, alertType models.AlertType) bool {
	for _, a := range state.Alerts {
		if a.Type == alertType {
			return true
		}
	}
	return false
}

func TestAlertsRaisedOnceAndHandlersNotified(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []models.AlertType
	l.OnAlert(func(a models.Alert) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, a.Type)
		// handlers may read the ledger
		_ = l.Status()
	})

	_, err := l.RecordBet(ctx, stake("100", 0.6, 4.5), models.OutcomeHome)
	require.NoError(t, err)
	_, err = l.RecordBet(ctx, stake("10", 0.6, 2.0), models.OutcomeHome)
	require.NoError(t, err)

	state := l.Status()
	assert.True(t, hasAlert(state, models.AlertTakeProfitTriggered))
	assert.False(t, state.IsHalted())
	assert.Equal(t, []models.AlertType{models.AlertTakeProfitTriggered}, seen)
}

func TestLowWinRateAlert(t *testing.T) {
	l := newTestLedger(t, nil)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		actual := models.OutcomeAway
		if i < 3 {
			actual = models.OutcomeHome
		}
		_, err := l.RecordBet(ctx, stake("1", 0.5, 2.0), actual)
		require.NoError(t, err)
		if i < 9 {
			assert.False(t, hasAlert(l.Status(), models.AlertLowWinRate))
		}
	}
	state := l.Status()
	assert.True(t, hasAlert(state, models.AlertLowWinRate))
	assert.False(t, state.IsHalted())
}

func TestFailedStoreWriteLeavesLedgerIntact(t *testing.T) {
	store := &fakeRecordStore{}
	l := newTestLedger(t, store)
	ctx := context.Background()

	_, err := l.RecordBet(ctx, stake("10", 0.5, 2.2), models.OutcomeHome)
	require.NoError(t, err)

	store.failing = true
	_, err = l.RecordBet(ctx, stake("10", 0.5, 2.2), models.OutcomeHome)
	require.Error(t, err)

	assert.Len(t, l.Records(), 1)
	assert.True(t, decimal.NewFromInt(1012).Equal(l.CurrentCapital()))
}

func TestReplayMatchesLiveLedger(t *testing.T) {
	store := &fakeRecordStore{}
	live := newTestLedger(t, store)
	ctx := context.Background()

	outcomes := []models.Outcome{models.OutcomeHome, models.OutcomeAway, models.OutcomeAway, models.OutcomeHome, models.OutcomeDraw}
	for i := 0; i < 25; i++ {
		_, err := live.RecordBet(ctx, stake("12.34", 0.45, 2.4), outcomes[i%len(outcomes)])
		require.NoError(t, err)
	}

	cold := newTestLedger(t, store)
	require.NoError(t, cold.Replay(ctx))

	assert.True(t, live.CurrentCapital().Equal(cold.CurrentCapital()))
	liveState, coldState := live.Status(), cold.Status()
	assert.True(t, liveState.PeakCapital.Equal(coldState.PeakCapital))
	assert.Equal(t, liveState.MaxDrawdown, coldState.MaxDrawdown)
	assert.Equal(t, liveState.TotalBets, coldState.TotalBets)
}

func TestReplayDetectsBrokenChain(t *testing.T) {
	store := &fakeRecordStore{}
	live := newTestLedger(t, store)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := live.RecordBet(ctx, stake("10", 0.5, 2.0), models.OutcomeHome)
		require.NoError(t, err)
	}
	store.records[1].CapitalBefore = store.records[1].CapitalBefore.Add(decimal.NewFromInt(1))

	cold := newTestLedger(t, store)
	assert.ErrorIs(t, cold.Replay(ctx), models.ErrInvalidInputs)
}

func TestReset(t *testing.T) {
	store := &fakeRecordStore{}
	l := newTestLedger(t, store)
	ctx := context.Background()
	_, err := l.RecordBet(ctx, stake("300", 0.5, 2.0), models.OutcomeAway)
	require.NoError(t, err)
	require.True(t, l.Status().IsHalted())

	capital := decimal.NewFromInt(500)
	require.NoError(t, l.Reset(ctx, &capital))

	state := l.Status()
	assert.True(t, capital.Equal(state.CurrentCapital))
	assert.True(t, capital.Equal(state.InitialCapital))
	assert.Empty(t, state.Alerts)
	assert.Zero(t, state.TotalBets)
	assert.Empty(t, store.records)

	bad := decimal.NewFromInt(-1)
	assert.ErrorIs(t, l.Reset(ctx, &bad), models.ErrInvalidInputs)
}
