// Package testutil generates deterministic synthetic leagues for tests.
package testutil

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/bet-advisor/internal/models"
)

// LeagueSpec controls the synthetic league
type LeagueSpec struct {
	LeagueID   string
	Teams      int
	Seasons    int
	Start      time.Time
	Seed       int64
	Bookmakers int
	Margin     float64
	HomeRate   float64
	AwayRate   float64
	// Spread widens the gap between strong and weak teams
	Spread float64
}

// DefaultLeague returns a ten-team league with two double round-robin seasons
func DefaultLeague() LeagueSpec {
	return LeagueSpec{
		LeagueID:   "SYN",
		Teams:      10,
		Seasons:    2,
		Start:      time.Date(2022, 8, 6, 15, 0, 0, 0, time.UTC),
		Seed:       7,
		Bookmakers: 3,
		Margin:     0.05,
		HomeRate:   1.5,
		AwayRate:   1.15,
		Spread:     0.35,
	}
}

// League is a generated fixture list with its pre-match quotes
type League struct {
	Matches []models.Match
	Quotes  []models.OddsQuote
	Attack  map[string]float64
	Defence map[string]float64
}

// GenerateLeague plays a double round robin per season with Poisson goals drawn from
// each team's latent attack and defence, and quotes every match from the true probabilities.
func GenerateLeague(spec LeagueSpec) League {
	rng := rand.New(rand.NewSource(spec.Seed))
	teams := make([]string, spec.Teams)
	league := League{Attack: map[string]float64{}, Defence: map[string]float64{}}
	for i := range teams {
		teams[i] = fmt.Sprintf("team-%02d", i)
		league.Attack[teams[i]] = math.Exp(spec.Spread * rng.NormFloat64())
		league.Defence[teams[i]] = math.Exp(spec.Spread * rng.NormFloat64())
	}

	kickoff := spec.Start
	for season := 0; season < spec.Seasons; season++ {
		for _, round := range doubleRoundRobin(teams) {
			for slot, pair := range round {
				home, away := pair[0], pair[1]
				lh := spec.HomeRate * league.Attack[home] * league.Defence[away]
				la := spec.AwayRate * league.Attack[away] * league.Defence[home]
				hg, ag := poisson(rng, lh), poisson(rng, la)

				m := models.Match{
					ID:         fmt.Sprintf("%s-s%d-%s-%s", spec.LeagueID, season, home, away),
					Kickoff:    kickoff.Add(time.Duration(slot) * 2 * time.Hour),
					LeagueID:   spec.LeagueID,
					Season:     fmt.Sprintf("%d", spec.Start.Year()+season),
					HomeTeamID: home,
					AwayTeamID: away,
					HomeGoals:  &hg,
					AwayGoals:  &ag,
				}
				league.Matches = append(league.Matches, m)
				league.Quotes = append(league.Quotes, quote(rng, spec, m, lh, la)...)
			}
			kickoff = kickoff.AddDate(0, 0, 7)
		}
	}
	return league
}

// Store receives generated fixtures
type Store interface {
	SaveMatch(ctx context.Context, match *models.Match) error
	SaveQuotes(ctx context.Context, quotes []models.OddsQuote) error
}

// Seed writes the league into the store
func Seed(t *testing.T, store Store, league League) {
	t.Helper()
	ctx := context.Background()
	for i := range league.Matches {
		require.NoError(t, store.SaveMatch(ctx, &league.Matches[i]))
	}
	require.NoError(t, store.SaveQuotes(ctx, league.Quotes))
}

// CreateTestContext returns a context cancelled when the test ends or the timeout expires
func CreateTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// WaitForCondition polls until the condition holds or fails the test after timeout
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, message)
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

func doubleRoundRobin(teams []string) [][][2]string {
	n := len(teams)
	ring := append([]string(nil), teams...)
	var first [][][2]string
	for r := 0; r < n-1; r++ {
		var round [][2]string
		for i := 0; i < n/2; i++ {
			home, away := ring[i], ring[n-1-i]
			if r%2 == 1 {
				home, away = away, home
			}
			round = append(round, [2]string{home, away})
		}
		first = append(first, round)
		// rotate all but the first team
		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}

	rounds := append([][][2]string(nil), first...)
	for _, round := range first {
		var mirrored [][2]string
		for _, pair := range round {
			mirrored = append(mirrored, [2]string{pair[1], pair[0]})
		}
		rounds = append(rounds, mirrored)
	}
	return rounds
}

func poisson(rng *rand.Rand, lambda float64) int {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

func poissonPMF(k int, lambda float64) float64 {
	lg, _ := math.Lgamma(float64(k + 1))
	return math.Exp(float64(k)*math.Log(lambda) - lambda - lg)
}

// TrueProbabilities returns home/draw/away and over-2.5 probabilities of independent Poisson goals
func TrueProbabilities(lh, la float64) (home, draw, away, over float64) {
	for h := 0; h <= 10; h++ {
		for a := 0; a <= 10; a++ {
			p := poissonPMF(h, lh) * poissonPMF(a, la)
			switch {
			case h > a:
				home += p
			case h == a:
				draw += p
			default:
				away += p
			}
			if h+a > 2 {
				over += p
			}
		}
	}
	return home, draw, away, over
}

func quote(rng *rand.Rand, spec LeagueSpec, m models.Match, lh, la float64) []models.OddsQuote {
	home, draw, away, over := TrueProbabilities(lh, la)
	total := home + draw + away
	book := map[models.MarketKind]map[models.Outcome]float64{
		models.MarketMatchResult: {
			models.OutcomeHome: home / total,
			models.OutcomeDraw: draw / total,
			models.OutcomeAway: away / total,
		},
		models.MarketOverUnder25: {
			models.OutcomeOver:  over / total,
			models.OutcomeUnder: 1 - over/total,
		},
	}

	var quotes []models.OddsQuote
	captured := m.Kickoff.Add(-24 * time.Hour)
	for b := 0; b < spec.Bookmakers; b++ {
		for _, market := range []models.MarketKind{models.MarketMatchResult, models.MarketOverUnder25} {
			for _, outcome := range market.Outcomes() {
				p := book[market][outcome] * (1 + spec.Margin) * (1 + 0.04*rng.NormFloat64())
				odds := math.Max(1.01, math.Round(100/p)/100)
				quotes = append(quotes, models.OddsQuote{
					MatchID:    m.ID,
					Bookmaker:  fmt.Sprintf("book-%d", b),
					Market:     market,
					Outcome:    outcome,
					Odds:       odds,
					CapturedAt: captured,
				})
			}
		}
	}
	return quotes
}
