package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/database"
	"github.com/yourusername/bet-advisor/internal/models"
)

var base = time.Date(2024, 8, 10, 15, 0, 0, 0, time.UTC)

func goals(v int) *int { return &v }

func fixture(id, home, away string, daysFromBase int, score ...int) *models.Match {
	m := &models.Match{
		ID:         id,
		Kickoff:    base.AddDate(0, 0, daysFromBase),
		LeagueID:   "EPL",
		Season:     "2024",
		HomeTeamID: home,
		AwayTeamID: away,
	}
	if len(score) == 2 {
		m.HomeGoals, m.AwayGoals = goals(score[0]), goals(score[1])
	}
	return m
}

func record(capitalBefore string, won bool) *models.BetRecord {
	stake := decimal.NewFromInt(10)
	before := decimal.RequireFromString(capitalBefore)
	result := models.BetResultLost
	if won {
		result = models.BetResultWon
	}
	profit := models.BetProfit(stake, 2.0, won)
	return &models.BetRecord{
		ID:               uuid.New(),
		PlacedAt:         base,
		MatchID:          "m1",
		Market:           models.MarketMatchResult,
		Outcome:          models.OutcomeHome,
		StakeAmount:      stake,
		StakeFraction:    0.01,
		Odds:             2.0,
		ModelProbability: 0.55,
		ExpectedValue:    0.1,
		Result:           result,
		Profit:           profit,
		CapitalBefore:    before,
		CapitalAfter:     before.Add(profit),
	}
}

func seedMatches(t *testing.T, repo MatchRepository) {
	t.Helper()
	ctx := context.Background()
	for _, m := range []*models.Match{
		fixture("m3", "ars", "che", 14, 2, 2),
		fixture("m1", "ars", "liv", 0, 1, 0),
		fixture("m2", "liv", "che", 7, 0, 3),
		fixture("m4", "che", "ars", 21),
	} {
		require.NoError(t, repo.SaveMatch(ctx, m))
	}
}

func runMatchRepositoryContract(t *testing.T, repo MatchRepository) {
	ctx := context.Background()
	seedMatches(t, repo)

	got, err := repo.GetMatch(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "liv", got.HomeTeamID)
	assert.Equal(t, 3, *got.AwayGoals)

	_, err = repo.GetMatch(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	prior, err := repo.ListPriorMatches(ctx, "ars", base.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Len(t, prior, 1)
	assert.Equal(t, "m1", prior[0].ID)

	completed, err := repo.ListMatches(ctx, models.MatchFilter{LeagueID: "EPL", CompletedOnly: true})
	require.NoError(t, err)
	ids := make([]string, 0, len(completed))
	for _, m := range completed {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)

	window, err := repo.ListMatches(ctx, models.MatchFilter{From: base.AddDate(0, 0, 7), To: base.AddDate(0, 0, 21)})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "m2", window[0].ID)
	assert.Equal(t, "m3", window[1].ID)

	// scores arrive after kickoff
	upcoming := fixture("m4", "che", "ars", 21, 1, 1)
	require.NoError(t, repo.SaveMatch(ctx, upcoming))
	got, err = repo.GetMatch(ctx, "m4")
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())
}

func runOddsRepositoryContract(t *testing.T, matches MatchRepository, repo OddsRepository) {
	ctx := context.Background()
	require.NoError(t, matches.SaveMatch(ctx, fixture("m1", "ars", "liv", 0)))

	quotes := []models.OddsQuote{
		{MatchID: "m1", Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: models.OutcomeHome, Odds: 2.1, CapturedAt: base.Add(-time.Hour)},
		{MatchID: "m1", Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: models.OutcomeDraw, Odds: 3.4, CapturedAt: base.Add(-time.Hour)},
		{MatchID: "m1", Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: models.OutcomeAway, Odds: 3.6, CapturedAt: base.Add(-time.Hour)},
		{MatchID: "m1", Bookmaker: "b2", Market: models.MarketOverUnder25, Outcome: models.OutcomeOver, Odds: 1.9, CapturedAt: base.Add(-time.Hour)},
	}
	require.NoError(t, repo.SaveQuotes(ctx, quotes))

	// repeated capture replaces the price
	quotes[0].Odds = 2.15
	require.NoError(t, repo.SaveQuotes(ctx, quotes[:1]))

	got, err := repo.GetOdds(ctx, "m1", models.MarketMatchResult)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, q := range got {
		if q.Outcome == models.OutcomeHome {
			assert.Equal(t, 2.15, q.Odds)
		}
	}

	none, err := repo.GetOdds(ctx, "m1", models.MarketBTTS)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func runBetRecordRepositoryContract(t *testing.T, repo BetRecordRepository) {
	ctx := context.Background()
	first := record("1000", true)
	second := record(first.CapitalAfter.String(), false)
	require.NoError(t, repo.AppendBetRecord(ctx, first))
	require.NoError(t, repo.AppendBetRecord(ctx, second))
	assert.ErrorIs(t, repo.AppendBetRecord(ctx, first), models.ErrDuplicateKey)

	records, err := repo.ListBetRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
	assert.True(t, records[0].CapitalAfter.Equal(records[1].CapitalBefore))
	assert.True(t, decimal.NewFromInt(1000).Equal(records[1].CapitalAfter))

	require.NoError(t, repo.DeleteBetRecords(ctx))
	records, err = repo.ListBetRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func runModelFitRepositoryContract(t *testing.T, repo ModelFitRepository) {
	ctx := context.Background()

	_, err := repo.LatestFit(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	older := &models.ModelFitReport{ID: uuid.New(), FittedAt: base, TrainingCutoff: base, Strategy: models.EnsembleWeightedVote, Schema: []string{"a"}}
	newer := &models.ModelFitReport{ID: uuid.New(), FittedAt: base.Add(time.Hour), TrainingCutoff: base, Strategy: models.EnsembleStacked, Schema: []string{"a"}}
	require.NoError(t, repo.SaveFit(ctx, newer))
	require.NoError(t, repo.SaveFit(ctx, older))

	latest, err := repo.LatestFit(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, models.EnsembleStacked, latest.Strategy)

	all, err := repo.ListFits(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore(t *testing.T) {
	t.Run("matches", func(t *testing.T) { runMatchRepositoryContract(t, NewMemoryStore()) })
	t.Run("odds", func(t *testing.T) {
		s := NewMemoryStore()
		runOddsRepositoryContract(t, s, s)
	})
	t.Run("bet records", func(t *testing.T) { runBetRecordRepositoryContract(t, NewMemoryStore()) })
	t.Run("model fits", func(t *testing.T) { runModelFitRepositoryContract(t, NewMemoryStore()) })
}

func TestMemoryStoreRejectsInvalidMatch(t *testing.T) {
	s := NewMemoryStore()
	err := s.SaveMatch(context.Background(), fixture("m1", "ars", "ars", 0))
	assert.ErrorIs(t, err, models.ErrInvalidInputs)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.SaveMatch(ctx, fixture("m1", "ars", "liv", 0, 1, 0)))

	got, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	*got.HomeGoals = 9

	again, err := s.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, *again.HomeGoals)
}

func TestPostgresRepositories(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos, err := NewRepositories(db)
	require.NoError(t, err)

	t.Run("matches", func(t *testing.T) { runMatchRepositoryContract(t, repos.Matches) })
	t.Run("odds", func(t *testing.T) { runOddsRepositoryContract(t, repos.Matches, repos.Odds) })
	t.Run("bet records", func(t *testing.T) { runBetRecordRepositoryContract(t, repos.BetRecords) })
	t.Run("model fits", func(t *testing.T) { runModelFitRepositoryContract(t, repos.ModelFits) })
}

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}

func TestRepositoriesStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRepositories().Store()

	require.NoError(t, store.SaveMatch(ctx, fixture("m1", "ars", "che", 0)))
	require.NoError(t, store.SaveQuotes(ctx, []models.OddsQuote{
		{MatchID: "m1", Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: models.OutcomeHome, Odds: 2.1, CapturedAt: base.Add(-time.Hour)},
	}))

	got, err := store.GetMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "ars", got.HomeTeamID)

	quotes, err := store.GetOdds(ctx, "m1", models.MarketMatchResult)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
}
