package ml

import (
	"context"
	"fmt"
	"math"

	"github.com/yourusername/bet-advisor/internal/config"
	"github.com/yourusername/bet-advisor/internal/features"
	"github.com/yourusername/bet-advisor/internal/models"
)

// ScoreMatrix is the joint distribution of home and away goals under independent
// Poisson draws, truncated at MaxGoals each side
type ScoreMatrix struct {
	LambdaHome float64
	LambdaAway float64
	MaxGoals   int
	P          [][]float64
}

// NewScoreMatrix builds the truncated joint distribution
func NewScoreMatrix(lambdaHome, lambdaAway float64, maxGoals int) *ScoreMatrix {
	home := poissonPMF(lambdaHome, maxGoals)
	away := poissonPMF(lambdaAway, maxGoals)
	p := make([][]float64, maxGoals+1)
	for h := range p {
		p[h] = make([]float64, maxGoals+1)
		for a := range p[h] {
			p[h][a] = home[h] * away[a]
		}
	}
	return &ScoreMatrix{LambdaHome: lambdaHome, LambdaAway: lambdaAway, MaxGoals: maxGoals, P: p}
}

func poissonPMF(lambda float64, maxGoals int) []float64 {
	out := make([]float64, maxGoals+1)
	out[0] = math.Exp(-lambda)
	for k := 1; k <= maxGoals; k++ {
		out[k] = out[k-1] * lambda / float64(k)
	}
	return out
}

// Total returns the probability mass retained after truncation
func (m *ScoreMatrix) Total() float64 {
	total := 0.0
	for _, row := range m.P {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// MatchResult sums the joint into home win, draw and away win
func (m *ScoreMatrix) MatchResult() (home, draw, away float64) {
	for h, row := range m.P {
		for a, v := range row {
			switch {
			case h > a:
				home += v
			case h == a:
				draw += v
			default:
				away += v
			}
		}
	}
	return home, draw, away
}

// OverUnder splits the joint at a goal line
func (m *ScoreMatrix) OverUnder(line float64) (over, under float64) {
	for h, row := range m.P {
		for a, v := range row {
			if float64(h+a) > line {
				over += v
			} else {
				under += v
			}
		}
	}
	return over, under
}

// BothTeamsScore splits the joint on whether both sides score
func (m *ScoreMatrix) BothTeamsScore() (yes, no float64) {
	for h, row := range m.P {
		for a, v := range row {
			if h > 0 && a > 0 {
				yes += v
			} else {
				no += v
			}
		}
	}
	return yes, no
}

// Markets returns every supported market distribution, renormalised over the truncated mass
func (m *ScoreMatrix) Markets() map[models.MarketKind]models.OutcomeProbability {
	home, draw, away := m.MatchResult()
	over, under := m.OverUnder(models.OverUnderLine)
	yes, no := m.BothTeamsScore()
	return map[models.MarketKind]models.OutcomeProbability{
		models.MarketMatchResult: models.NewOutcomeProbability(models.MarketMatchResult, home, draw, away).Normalised(),
		models.MarketOverUnder25: models.NewOutcomeProbability(models.MarketOverUnder25, over, under).Normalised(),
		models.MarketBTTS:        models.NewOutcomeProbability(models.MarketBTTS, yes, no).Normalised(),
	}
}

type venueRating struct {
	attack  float64
	defence float64
}

// PoissonModel rates each team's attack and defence relative to the league average,
// separately at home and away, shrunk towards 1 by the smoothing prior
type PoissonModel struct {
	cfg     config.PoissonConfig
	homeAvg float64
	awayAvg float64
	home    map[string]venueRating
	away    map[string]venueRating
	fitted  bool
}

// NewPoissonModel creates an unfitted Poisson match model
func NewPoissonModel(cfg config.PoissonConfig) *PoissonModel {
	if cfg.MaxGoals <= 0 {
		cfg.MaxGoals = 10
	}
	return &PoissonModel{cfg: cfg}
}

func (p *PoissonModel) Name() string { return ModelPoisson }
func (p *PoissonModel) Kind() string { return "statistical" }

// Fit estimates ratings from the completed matches of the dataset
func (p *PoissonModel) Fit(ctx context.Context, ds *features.Dataset) error {
	matches := make([]models.Match, 0, ds.Len())
	for i := range ds.Samples {
		matches = append(matches, ds.Samples[i].Match)
	}
	return p.FitMatches(matches)
}

// FitMatches estimates ratings directly from match results
func (p *PoissonModel) FitMatches(matches []models.Match) error {
	type tally struct {
		scored, conceded float64
		n                float64
	}
	homeTally := map[string]*tally{}
	awayTally := map[string]*tally{}
	get := func(m map[string]*tally, team string) *tally {
		if m[team] == nil {
			m[team] = &tally{}
		}
		return m[team]
	}

	var homeGoals, awayGoals, n float64
	for i := range matches {
		m := &matches[i]
		if !m.IsCompleted() {
			continue
		}
		hg, ag := float64(*m.HomeGoals), float64(*m.AwayGoals)
		homeGoals += hg
		awayGoals += ag
		n++

		h := get(homeTally, m.HomeTeamID)
		h.scored += hg
		h.conceded += ag
		h.n++

		a := get(awayTally, m.AwayTeamID)
		a.scored += ag
		a.conceded += hg
		a.n++
	}
	if n == 0 || homeGoals == 0 || awayGoals == 0 {
		return fmt.Errorf("%w: poisson model needs scored goals at home and away", models.ErrInsufficientHistory)
	}

	p.homeAvg = homeGoals / n
	p.awayAvg = awayGoals / n
	s := p.cfg.Smoothing
	p.home = make(map[string]venueRating, len(homeTally))
	p.away = make(map[string]venueRating, len(awayTally))
	for team, t := range homeTally {
		p.home[team] = venueRating{
			attack:  (t.scored + s*p.homeAvg) / ((t.n + s) * p.homeAvg),
			defence: (t.conceded + s*p.awayAvg) / ((t.n + s) * p.awayAvg),
		}
	}
	for team, t := range awayTally {
		p.away[team] = venueRating{
			attack:  (t.scored + s*p.awayAvg) / ((t.n + s) * p.awayAvg),
			defence: (t.conceded + s*p.homeAvg) / ((t.n + s) * p.homeAvg),
		}
	}
	p.fitted = true
	return nil
}

// ExpectedGoals returns λ_H = att_H·def_A·home_avg and λ_A = att_A·def_H·away_avg.
// Teams without history rate as league average.
func (p *PoissonModel) ExpectedGoals(homeTeam, awayTeam string) (float64, float64, error) {
	if !p.fitted {
		return 0, 0, models.ErrNoModel
	}
	h, ok := p.home[homeTeam]
	if !ok {
		h = venueRating{attack: 1, defence: 1}
	}
	a, ok := p.away[awayTeam]
	if !ok {
		a = venueRating{attack: 1, defence: 1}
	}
	return h.attack * a.defence * p.homeAvg, a.attack * h.defence * p.awayAvg, nil
}

// ScoreMatrix returns the joint goal distribution for a fixture
func (p *PoissonModel) ScoreMatrix(homeTeam, awayTeam string) (*ScoreMatrix, error) {
	lh, la, err := p.ExpectedGoals(homeTeam, awayTeam)
	if err != nil {
		return nil, err
	}
	return NewScoreMatrix(lh, la, p.cfg.MaxGoals), nil
}

// PredictProba returns the normalised 1X2 distribution of the fixture
func (p *PoissonModel) PredictProba(sample *features.Sample) ([]float64, error) {
	sm, err := p.ScoreMatrix(sample.Match.HomeTeamID, sample.Match.AwayTeamID)
	if err != nil {
		return nil, err
	}
	home, draw, away := sm.MatchResult()
	return normalise([]float64{home, draw, away}), nil
}
