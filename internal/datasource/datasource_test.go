package datasource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/logger"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/repository"
)

var kickoff = time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

func goals(n int) *int { return &n }

func sampleFixtures() Fixtures {
	captured := kickoff.Add(-2 * time.Hour)
	return Fixtures{
		Matches: []models.Match{
			{ID: "m-1", Kickoff: kickoff, LeagueID: "EPL", Season: "2023", HomeTeamID: "ars", AwayTeamID: "che"},
			{ID: "m-0", Kickoff: kickoff.AddDate(0, 0, -7), LeagueID: "EPL", Season: "2023", HomeTeamID: "che", AwayTeamID: "ars", HomeGoals: goals(1), AwayGoals: goals(1)},
			// same team on both sides
			{ID: "m-bad", Kickoff: kickoff, LeagueID: "EPL", HomeTeamID: "ars", AwayTeamID: "ars"},
		},
		Quotes: []models.OddsQuote{
			{MatchID: "m-1", Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: models.OutcomeHome, Odds: 2.2, CapturedAt: captured},
			{MatchID: "m-1", Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: models.OutcomeDraw, Odds: 3.4, CapturedAt: captured},
			{MatchID: "m-1", Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: models.OutcomeAway, Odds: 4.0, CapturedAt: captured},
			{MatchID: "m-1", Bookmaker: "b1", Market: models.MarketBTTS, Outcome: models.OutcomeOver, Odds: 1.9, CapturedAt: captured},
			{MatchID: "m-unknown", Bookmaker: "b1", Market: models.MarketMatchResult, Outcome: models.OutcomeHome, Odds: 2.0, CapturedAt: captured},
			{MatchID: "m-1", Bookmaker: "b2", Market: models.MarketMatchResult, Outcome: models.OutcomeHome, Odds: 0.9, CapturedAt: captured},
		},
	}
}

func writeFixtures(t *testing.T, fx Fixtures) string {
	t.Helper()
	data, err := json.Marshal(fx)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func fastClient(maxRetries, breaker int) *RateLimitedHTTPClient {
	return NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        maxRetries,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      5 * time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: breaker,
	}, logger.NewNopLogger())
}

func TestImportFromFile(t *testing.T) {
	store := repository.NewMemoryStore()
	importer, err := NewImporter(store, logger.NewNopLogger())
	require.NoError(t, err)

	result, err := importer.Import(context.Background(), NewFileSource(writeFixtures(t, sampleFixtures())))
	require.NoError(t, err)

	assert.Equal(t, 2, result.MatchesImported)
	assert.Equal(t, 3, result.QuotesImported)
	assert.Equal(t, 4, result.Rejected)
	assert.Len(t, result.Errors, 4)

	m, err := store.GetMatch(context.Background(), "m-0")
	require.NoError(t, err)
	assert.True(t, m.IsCompleted())
	_, err = store.GetMatch(context.Background(), "m-bad")
	assert.ErrorIs(t, err, models.ErrNotFound)

	quotes, err := store.GetOdds(context.Background(), "m-1", models.MarketMatchResult)
	require.NoError(t, err)
	assert.Len(t, quotes, 3)
}

func TestImportQuotesForStoredMatch(t *testing.T) {
	store := repository.NewMemoryStore()
	require.NoError(t, store.SaveMatch(context.Background(), &models.Match{
		ID: "m-9", Kickoff: kickoff, LeagueID: "EPL", HomeTeamID: "liv", AwayTeamID: "eve",
	}))
	importer, err := NewImporter(store, logger.NewNopLogger())
	require.NoError(t, err)

	fx := Fixtures{Quotes: []models.OddsQuote{
		{MatchID: "m-9", Bookmaker: "b1", Market: models.MarketOverUnder25, Outcome: models.OutcomeOver, Odds: 1.8, CapturedAt: kickoff.Add(-time.Hour)},
	}}
	result, err := importer.Import(context.Background(), NewFileSource(writeFixtures(t, fx)))
	require.NoError(t, err)
	assert.Equal(t, 1, result.QuotesImported)
	assert.Zero(t, result.Rejected)
}

func TestFileSourceErrors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"matches": [`), 0o644))
	_, err = NewFileSource(path).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrInvalidData)

	var dsErr DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, ErrCodeInvalidData, dsErr.Code)
}

func TestHTTPSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sampleFixtures())
	}))
	defer server.Close()

	source, err := NewSource(server.URL+"/fixtures", fastClient(0, 3))
	require.NoError(t, err)
	require.IsType(t, &HTTPSource{}, source)

	fx, err := source.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, fx.Matches, 3)
	assert.Len(t, fx.Quotes, 6)
}

func TestHTTPSourceStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"bad request", http.StatusBadRequest, ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHTTPSource(server.URL, fastClient(0, 3)).Fetch(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"matches": [], "quotes": []}`))
	}))
	defer server.Close()

	fx, err := NewHTTPSource(server.URL, fastClient(3, 5)).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fx.Matches)
	assert.Equal(t, 3, calls)
}

func TestHTTPClientCircuitBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := fastClient(0, 2)
	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), url)
		require.Error(t, err)
	}
	assert.True(t, client.IsOpen())

	_, err := client.Get(context.Background(), url)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	client.Reset()
	assert.False(t, client.IsOpen())
}

func TestNewSource(t *testing.T) {
	_, err := NewSource("", nil)
	assert.Error(t, err)

	_, err = NewSource("https://example.com/fixtures.json", nil)
	assert.Error(t, err)

	source, err := NewSource("fixtures.json", nil)
	require.NoError(t, err)
	assert.Equal(t, "fixtures.json", source.Name())
}

func TestHTTPClientConfigFrom(t *testing.T) {
	cfg := HTTPClientConfigFrom(nil)
	assert.Equal(t, DefaultHTTPClientConfig(), cfg)
}
