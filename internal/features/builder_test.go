package features

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/repository"
	"github.com/yourusername/bet-advisor/internal/testutil"
)

var start = time.Date(2024, 1, 6, 15, 0, 0, 0, time.UTC)

func played(id, home, away string, day, hg, ag int) models.Match {
	return models.Match{
		ID:         id,
		Kickoff:    start.AddDate(0, 0, day),
		LeagueID:   "L",
		HomeTeamID: home,
		AwayTeamID: away,
		HomeGoals:  testutil.IntPtr(hg),
		AwayGoals:  testutil.IntPtr(ag),
	}
}

func book(matchID string, captured time.Time, home, draw, away float64) []models.OddsQuote {
	mk := func(o models.Outcome, odds float64) models.OddsQuote {
		return models.OddsQuote{MatchID: matchID, Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: o, Odds: odds, CapturedAt: captured}
	}
	return []models.OddsQuote{mk(models.OutcomeHome, home), mk(models.OutcomeDraw, draw), mk(models.OutcomeAway, away)}
}

// history gives teams a and b seven matches each before the target fixture on day 70
func history() []models.Match {
	return []models.Match{
		played("h1", "a", "c", 0, 2, 0),
		played("h2", "b", "d", 1, 1, 1),
		played("h3", "c", "b", 7, 0, 1),
		played("h4", "d", "a", 8, 1, 3),
		played("h5", "a", "b", 14, 1, 1),
		played("h6", "c", "d", 15, 2, 2),
		played("h7", "b", "a", 21, 0, 2),
		played("h8", "a", "d", 28, 4, 1),
		played("h9", "b", "c", 29, 2, 0),
		played("h10", "c", "a", 35, 1, 1),
		played("h11", "d", "b", 36, 0, 1),
		played("h12", "a", "b", 42, 3, 0),
	}
}

func newStore(t *testing.T, matches []models.Match, quotes []models.OddsQuote) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	for i := range matches {
		require.NoError(t, store.SaveMatch(ctx, &matches[i]))
	}
	require.NoError(t, store.SaveQuotes(ctx, quotes))
	return store
}

func newBuilder(t *testing.T, cfg Config, store *repository.MemoryStore) *Builder {
	t.Helper()
	b, err := NewBuilder(cfg, store, store, logger.NewNopLogger())
	require.NoError(t, err)
	return b
}

func target() models.Match {
	return models.Match{ID: "target", Kickoff: start.AddDate(0, 0, 70), LeagueID: "L", HomeTeamID: "a", AwayTeamID: "b"}
}

func TestSchemaIsStableAndComplete(t *testing.T) {
	schema := DefaultConfig().Schema()
	assert.Equal(t, HomeAdvantage, schema[0])
	assert.Contains(t, schema, "home_scored_avg_5")
	assert.Contains(t, schema, "away_conceded_avg_10")
	assert.Contains(t, schema, "home_attack_strength")
	assert.Contains(t, schema, MarketOverround)

	reordered := Config{WindowSizes: []int{10, 5}, H2HWindow: 5, MinHistory: 5}
	assert.Equal(t, schema, reordered.Schema())

	seen := map[string]bool{}
	for _, name := range schema {
		assert.False(t, seen[name], "duplicate column %s", name)
		seen[name] = true
	}
}

func TestNewBuilderRejectsBadConfig(t *testing.T) {
	store := repository.NewMemoryStore()
	for _, cfg := range []Config{
		{WindowSizes: nil, H2HWindow: 5, MinHistory: 5},
		{WindowSizes: []int{5, 5}, H2HWindow: 5, MinHistory: 5},
		{WindowSizes: []int{0}, H2HWindow: 5, MinHistory: 5},
		{WindowSizes: []int{5}, H2HWindow: 0, MinHistory: 5},
	} {
		_, err := NewBuilder(cfg, store, store, logger.NewNopLogger())
		assert.ErrorIs(t, err, models.ErrInvalidInputs)
	}
}

func TestBuildComputesFeatures(t *testing.T) {
	m := target()
	store := newStore(t, append(history(), m), book("target", m.Kickoff.Add(-time.Hour), 2.10, 3.40, 3.60))
	b := newBuilder(t, DefaultConfig(), store)

	vec, err := b.Build(context.Background(), &m, m.Kickoff)
	require.NoError(t, err)
	assert.Equal(t, b.Schema(), vec.Schema)
	assert.Len(t, vec.Values, len(vec.Schema))

	get := func(name string) float64 {
		v, ok := vec.Get(name)
		require.True(t, ok, name)
		return v
	}

	// a: last five are h5 (1-1), h7 (2-0 away), h8 (4-1), h10 (1-1 away), h12 (3-0)
	assert.InDelta(t, 11.0/5, get("home_scored_avg_5"), 1e-9)
	assert.InDelta(t, 3.0/5, get("home_conceded_avg_5"), 1e-9)
	assert.InDelta(t, 11.0/5, get("home_points_avg_5"), 1e-9)
	// a has seven matches, the ten window averages all of them
	assert.InDelta(t, 16.0/7, get("home_scored_avg_10"), 1e-9)

	// meetings h5 1-1, h7 b 0-2 a, h12 a 3-0 b
	assert.Equal(t, 3.0, get(H2HMeetings))
	assert.InDelta(t, 2.0/3, get(H2HHomeWinRate), 1e-9)
	assert.InDelta(t, 1.0/3, get(H2HDrawRate), 1e-9)
	assert.InDelta(t, 0.0, get(H2HAwayWinRate), 1e-9)
	assert.InDelta(t, 5.0/3, get(H2HGoalDiffAvg), 1e-9)

	// 12 league matches: 17 home goals, 13 away goals
	assert.InDelta(t, 17.0/12, get(LeagueHomeGoalRate), 1e-9)
	assert.InDelta(t, 13.0/12, get(LeagueAwayGoalRate), 1e-9)
	teamRate := 30.0 / 24
	assert.InDelta(t, (16.0/7)/teamRate, get("home_attack_strength"), 1e-9)
	assert.InDelta(t, get("home_attack_strength")*get("away_defence_strength")*17.0/12, get(HomeXGProxy), 1e-9)

	assert.InDelta(t, 0.454, get(MarketHomeProb), 1e-3)
	assert.InDelta(t, 0.048, get(MarketOverround), 1e-3)
	assert.Equal(t, 0.0, get(MarketOverProb))

	assert.Equal(t, 1.0, get(HomeAdvantage))
	assert.Equal(t, float64(m.Kickoff.Weekday()), get(DayOfWeek))
	assert.Equal(t, float64(m.Kickoff.Month()), get(Month))
	// a last played h12 on day 42, 28 days before the target
	assert.InDelta(t, 28.0, get("home_rest_days"), 1e-9)
}

func TestBuildNeutralVenue(t *testing.T) {
	m := target()
	m.Auxiliary = map[string]string{"venue": "neutral"}
	store := newStore(t, append(history(), m), book("target", m.Kickoff.Add(-time.Hour), 2.10, 3.40, 3.60))

	vec, err := newBuilder(t, DefaultConfig(), store).Build(context.Background(), &m, m.Kickoff)
	require.NoError(t, err)
	v, _ := vec.Get(HomeAdvantage)
	assert.Equal(t, 0.0, v)
}

func TestBuildInsufficientHistory(t *testing.T) {
	m := target()
	store := newStore(t, append(history(), m), book("target", m.Kickoff.Add(-time.Hour), 2.10, 3.40, 3.60))
	cfg := DefaultConfig()
	cfg.MinHistory = 8

	_, err := newBuilder(t, cfg, store).Build(context.Background(), &m, m.Kickoff)
	require.ErrorIs(t, err, models.ErrInsufficientHistory)

	var typed *models.InsufficientHistoryError
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "a", typed.TeamID)
	assert.Equal(t, 7, typed.Have)
	assert.Equal(t, 8, typed.Required)
}

func TestBuildRequiresPreMatchOdds(t *testing.T) {
	m := target()

	store := newStore(t, append(history(), m), nil)
	_, err := newBuilder(t, DefaultConfig(), store).Build(context.Background(), &m, m.Kickoff)
	assert.ErrorIs(t, err, models.ErrNoMarket)

	// quotes captured after kickoff are in-play and ignored
	store = newStore(t, append(history(), m), book("target", m.Kickoff.Add(time.Minute), 2.10, 3.40, 3.60))
	_, err = newBuilder(t, DefaultConfig(), store).Build(context.Background(), &m, m.Kickoff)
	assert.ErrorIs(t, err, models.ErrNoMarket)
}

func TestBuildHonoursCancellation(t *testing.T) {
	m := target()
	store := newStore(t, append(history(), m), book("target", m.Kickoff.Add(-time.Hour), 2.10, 3.40, 3.60))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBuilder(t, DefaultConfig(), store).Build(ctx, &m, m.Kickoff)
	assert.ErrorIs(t, err, context.Canceled)
}

// leakyStore ignores the time bound, returning every match it holds
type leakyStore struct {
	*repository.MemoryStore
}

func (s leakyStore) ListPriorMatches(ctx context.Context, teamID string, before time.Time) ([]models.Match, error) {
	all, err := s.MemoryStore.ListMatches(ctx, models.MatchFilter{})
	if err != nil {
		return nil, err
	}
	var out []models.Match
	for _, m := range all {
		if m.Involves(teamID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s leakyStore) ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error) {
	filter.To = time.Time{}
	return s.MemoryStore.ListMatches(ctx, filter)
}

func TestBuildHasNoForwardReference(t *testing.T) {
	m := target()
	m.HomeGoals, m.AwayGoals = testutil.IntPtr(5), testutil.IntPtr(0)
	quotes := book("target", m.Kickoff.Add(-time.Hour), 2.10, 3.40, 3.60)

	clean := newStore(t, append(history(), m), quotes)
	baseline, err := newBuilder(t, DefaultConfig(), clean).Build(context.Background(), &m, m.Kickoff)
	require.NoError(t, err)

	// the future: later results for both teams and in-play prices for the target
	future := append(history(), m,
		played("f1", "a", "c", 77, 9, 0),
		played("f2", "d", "b", 77, 0, 9),
		played("f3", "b", "a", 84, 7, 7),
		played("f4", "a", "b", 70, 6, 6),
	)
	leaked := append(quotes, book("target", m.Kickoff.Add(30*time.Minute), 1.05, 15, 30)...)
	store := newStore(t, future, leaked)

	for name, b := range map[string]*Builder{
		"time-bounded store": newBuilder(t, DefaultConfig(), store),
		"unbounded store":    mustBuilder(t, leakyStore{store}),
	} {
		t.Run(name, func(t *testing.T) {
			vec, err := b.Build(context.Background(), &m, m.Kickoff)
			require.NoError(t, err)
			assert.Equal(t, baseline.Values, vec.Values)
		})
	}
}

func mustBuilder(t *testing.T, store leakyStore) *Builder {
	t.Helper()
	b, err := NewBuilder(DefaultConfig(), store, store, logger.NewNopLogger())
	require.NoError(t, err)
	return b
}

func TestBuildDatasetOnSyntheticLeague(t *testing.T) {
	league := testutil.GenerateLeague(testutil.DefaultLeague())
	store := repository.NewMemoryStore()
	testutil.Seed(t, store, league)
	b := newBuilder(t, DefaultConfig(), store)

	last := league.Matches[len(league.Matches)-1]
	ds, err := b.BuildDataset(context.Background(), league.Matches, last.Kickoff)
	require.NoError(t, err)

	// every team needs five prior matches, which takes five rounds
	assert.Equal(t, 25, ds.Skipped)
	assert.Equal(t, len(league.Matches)-1-25, ds.Len())
	assert.Equal(t, b.Schema(), ds.Schema)

	for i := 1; i < ds.Len(); i++ {
		assert.False(t, ds.Samples[i].Match.Kickoff.Before(ds.Samples[i-1].Match.Kickoff))
	}
	for _, s := range ds.Samples {
		assert.True(t, s.Match.Kickoff.Before(last.Kickoff))
		assert.Equal(t, s.Match.Kickoff, s.Vector.Cutoff)
		assert.NotEqual(t, -1, ClassIndex(s.Label))
	}
	assert.Len(t, ds.X(), ds.Len())
	assert.Len(t, ds.Y(), ds.Len())
}
