// Package features turns raw match records into feature vectors. Every aggregate
// for a match is computed from events strictly before the history cutoff.
package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/models"
	"github.com/yourusername/bet-advisor/internal/odds"
)

// HistoryStore is the read-only match history the builder consults
type HistoryStore interface {
	// ListPriorMatches returns the team's matches with kickoff strictly before the given time
	ListPriorMatches(ctx context.Context, teamID string, before time.Time) ([]models.Match, error)
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.Match, error)
}

// OddsSource supplies the quotes for one market of a match
type OddsSource interface {
	GetOdds(ctx context.Context, matchID string, market models.MarketKind) ([]models.OddsQuote, error)
}

const restDaysCap = 30.0

// Builder constructs feature vectors for matches
type Builder struct {
	cfg     Config
	schema  []string
	index   map[string]int
	history HistoryStore
	odds    OddsSource
	logger  *logrus.Entry
}

// NewBuilder creates a feature builder over the given stores
func NewBuilder(cfg Config, history HistoryStore, quotes OddsSource, log *logrus.Logger) (*Builder, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInputs, err)
	}
	if history == nil || quotes == nil {
		return nil, fmt.Errorf("%w: history and odds stores are required", models.ErrInvalidInputs)
	}
	schema := cfg.Schema()
	index := make(map[string]int, len(schema))
	for i, name := range schema {
		index[name] = i
	}
	return &Builder{
		cfg:     cfg,
		schema:  schema,
		index:   index,
		history: history,
		odds:    quotes,
		logger:  log.WithField("component", "features"),
	}, nil
}

// Schema returns a copy of the ordered feature names
func (b *Builder) Schema() []string {
	return append([]string(nil), b.schema...)
}

// Config returns the builder configuration
func (b *Builder) Config() Config {
	return b.cfg
}

// Build produces the feature vector of a match using only records with kickoff before cutoff.
// Returns ErrInsufficientHistory when either team has fewer than the minimum prior matches
// and ErrNoMarket when no complete 1X2 book was quoted before the cutoff.
func (b *Builder) Build(ctx context.Context, match *models.Match, cutoff time.Time) (*models.FeatureVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	homeHistory, err := b.priorMatches(ctx, match, match.HomeTeamID, cutoff)
	if err != nil {
		return nil, err
	}
	awayHistory, err := b.priorMatches(ctx, match, match.AwayTeamID, cutoff)
	if err != nil {
		return nil, err
	}

	league, err := b.leagueRates(ctx, match, cutoff)
	if err != nil {
		return nil, err
	}

	result, err := b.marketView(ctx, match, models.MarketMatchResult, cutoff)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(b.schema))
	set := func(name string, v float64) {
		values[b.index[name]] = v
	}

	set(HomeAdvantage, 1)
	if match.Auxiliary["venue"] == "neutral" {
		set(HomeAdvantage, 0)
	}

	strengths := make(map[string]teamStrength, 2)
	for _, side := range sides {
		teamID, history := match.HomeTeamID, homeHistory
		if side == "away" {
			teamID, history = match.AwayTeamID, awayHistory
		}
		var last form
		for _, n := range b.cfg.windows() {
			last = rollingForm(history, teamID, n)
			set(scoredAvg(side, n), last.scored)
			set(concededAvg(side, n), last.conceded)
			set(pointsAvg(side, n), last.points)
		}
		// strength uses the widest window
		s := teamStrength{
			attack:  ratio(last.scored, league.teamRate()),
			defence: ratio(last.conceded, league.teamRate()),
		}
		strengths[side] = s
		set(attackStrength(side), s.attack)
		set(defenceStrength(side), s.defence)
		set(restDays(side), daysSinceLast(history, match.Kickoff))
	}

	h2h := headToHead(homeHistory, match.HomeTeamID, match.AwayTeamID, b.cfg.H2HWindow)
	set(H2HMeetings, float64(h2h.meetings))
	set(H2HHomeWinRate, h2h.homeWinRate)
	set(H2HDrawRate, h2h.drawRate)
	set(H2HAwayWinRate, h2h.awayWinRate)
	set(H2HGoalDiffAvg, h2h.goalDiff)

	set(LeagueHomeGoalRate, league.home)
	set(LeagueAwayGoalRate, league.away)
	set(LeagueGoalRate, league.home+league.away)

	homeXG := strengths["home"].attack * strengths["away"].defence * league.home
	awayXG := strengths["away"].attack * strengths["home"].defence * league.away
	set(HomeXGProxy, homeXG)
	set(AwayXGProxy, awayXG)
	set(XGDiff, homeXG-awayXG)

	set(MarketHomeProb, result.Probabilities[models.OutcomeHome])
	set(MarketDrawProb, result.Probabilities[models.OutcomeDraw])
	set(MarketAwayProb, result.Probabilities[models.OutcomeAway])
	set(MarketOverround, result.Overround)
	if totals, err := b.marketView(ctx, match, models.MarketOverUnder25, cutoff); err == nil {
		set(MarketOverProb, totals.Probabilities[models.OutcomeOver])
	}

	set(DayOfWeek, float64(match.Kickoff.Weekday()))
	set(Month, float64(match.Kickoff.Month()))

	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			values[i] = 0
		}
	}

	return &models.FeatureVector{
		MatchID: match.ID,
		Cutoff:  cutoff,
		Schema:  b.Schema(),
		Values:  values,
	}, nil
}

// priorMatches returns the team's completed matches before cutoff, oldest first
func (b *Builder) priorMatches(ctx context.Context, match *models.Match, teamID string, cutoff time.Time) ([]models.Match, error) {
	raw, err := b.history.ListPriorMatches(ctx, teamID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list prior matches for team %s: %w", teamID, err)
	}
	prior := completedBefore(raw, cutoff, match.ID)
	if len(prior) < b.cfg.MinHistory {
		return nil, &models.InsufficientHistoryError{TeamID: teamID, Have: len(prior), Required: b.cfg.MinHistory}
	}
	return prior, nil
}

func (b *Builder) marketView(ctx context.Context, match *models.Match, market models.MarketKind, cutoff time.Time) (odds.MarketView, error) {
	quotes, err := b.odds.GetOdds(ctx, match.ID, market)
	if err != nil {
		return odds.MarketView{}, fmt.Errorf("failed to get %s odds for match %s: %w", market, match.ID, err)
	}
	// quotes captured at or after the cutoff are in-play
	preMatch := quotes[:0:0]
	for _, q := range quotes {
		if q.CapturedAt.Before(cutoff) {
			preMatch = append(preMatch, q)
		}
	}
	view, err := odds.ConsensusMarket(market, preMatch)
	if err != nil {
		return odds.MarketView{}, fmt.Errorf("match %s: %w", match.ID, err)
	}
	return view, nil
}

type leagueBaseline struct {
	home    float64
	away    float64
	matches int
}

// teamRate is the goals one team scores in an average league match
func (l leagueBaseline) teamRate() float64 {
	return (l.home + l.away) / 2
}

func (b *Builder) leagueRates(ctx context.Context, match *models.Match, cutoff time.Time) (leagueBaseline, error) {
	raw, err := b.history.ListMatches(ctx, models.MatchFilter{LeagueID: match.LeagueID, To: cutoff, CompletedOnly: true})
	if err != nil {
		return leagueBaseline{}, fmt.Errorf("failed to list league %s matches: %w", match.LeagueID, err)
	}
	var base leagueBaseline
	var home, away int
	for _, m := range completedBefore(raw, cutoff, match.ID) {
		if m.LeagueID != match.LeagueID {
			continue
		}
		home += *m.HomeGoals
		away += *m.AwayGoals
		base.matches++
	}
	if base.matches > 0 {
		base.home = float64(home) / float64(base.matches)
		base.away = float64(away) / float64(base.matches)
	}
	return base, nil
}

// completedBefore keeps completed matches with kickoff strictly before cutoff, oldest first
func completedBefore(matches []models.Match, cutoff time.Time, exclude string) []models.Match {
	out := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m.ID == exclude || !m.IsCompleted() || !m.Kickoff.Before(cutoff) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Kickoff.Before(out[j].Kickoff)
	})
	return out
}

type form struct {
	scored   float64
	conceded float64
	points   float64
}

type teamStrength struct {
	attack  float64
	defence float64
}

// rollingForm averages the team's last n matches, or all of them when fewer exist
func rollingForm(history []models.Match, teamID string, n int) form {
	start := len(history) - n
	if start < 0 {
		start = 0
	}
	var f form
	count := 0
	for _, m := range history[start:] {
		scored, conceded, ok := m.GoalsFor(teamID)
		if !ok {
			continue
		}
		f.scored += float64(scored)
		f.conceded += float64(conceded)
		switch {
		case scored > conceded:
			f.points += 3
		case scored == conceded:
			f.points++
		}
		count++
	}
	if count == 0 {
		return form{}
	}
	c := float64(count)
	return form{scored: f.scored / c, conceded: f.conceded / c, points: f.points / c}
}

type h2hSummary struct {
	meetings    int
	homeWinRate float64
	drawRate    float64
	awayWinRate float64
	goalDiff    float64
}

// headToHead summarises the last k meetings from the perspective of the current home team
func headToHead(homeHistory []models.Match, homeID, awayID string, k int) h2hSummary {
	var meetings []models.Match
	for _, m := range homeHistory {
		if m.Involves(awayID) {
			meetings = append(meetings, m)
		}
	}
	if len(meetings) > k {
		meetings = meetings[len(meetings)-k:]
	}

	var s h2hSummary
	var wins, draws, losses, diff int
	for _, m := range meetings {
		scored, conceded, ok := m.GoalsFor(homeID)
		if !ok {
			continue
		}
		s.meetings++
		diff += scored - conceded
		switch {
		case scored > conceded:
			wins++
		case scored == conceded:
			draws++
		default:
			losses++
		}
	}
	if s.meetings > 0 {
		n := float64(s.meetings)
		s.homeWinRate = float64(wins) / n
		s.drawRate = float64(draws) / n
		s.awayWinRate = float64(losses) / n
		s.goalDiff = float64(diff) / n
	}
	return s
}

func daysSinceLast(history []models.Match, kickoff time.Time) float64 {
	if len(history) == 0 {
		return restDaysCap
	}
	days := kickoff.Sub(history[len(history)-1].Kickoff).Hours() / 24
	return math.Min(days, restDaysCap)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
