// Package odds converts bookmaker prices into implied and de-vigged probabilities and
// assesses model probabilities against them. It is the only place expected value is computed.
package odds

import (
	"fmt"
	"sort"

	"github.com/yourusername/bet-advisor/internal/models"
)

// Label thresholds
const (
	StrongBetEV          = 0.10
	StrongBetMinProb     = 0.20
	BetEV                = 0.05
	AvoidBelowProb       = 0.15
	AvoidBelowOdds       = 1.3
	minimumValidDecimals = 1.0
)

// ImpliedProbability returns 1/O
func ImpliedProbability(odds float64) float64 {
	if odds <= 0 {
		return 0
	}
	return 1.0 / odds
}

// Overround returns Σ(1/O_i) − 1 for a complete book
func Overround(book []float64) (float64, error) {
	if len(book) == 0 {
		return 0, models.ErrNoMarket
	}
	total := 0.0
	for _, o := range book {
		if o <= minimumValidDecimals {
			return 0, fmt.Errorf("%w: odds %.4f must exceed 1", models.ErrInvalidInputs, o)
		}
		total += 1.0 / o
	}
	return total - 1, nil
}

// Devig returns the normalised market probabilities (1/O_i)/(1+overround) and the overround
func Devig(book []float64) ([]float64, float64, error) {
	overround, err := Overround(book)
	if err != nil {
		return nil, 0, err
	}
	out := make([]float64, len(book))
	for i, o := range book {
		out[i] = (1.0 / o) / (1 + overround)
	}
	return out, overround, nil
}

// ExpectedValue returns p·O − 1, against the quoted odds
func ExpectedValue(p, odds float64) float64 {
	return p*odds - 1
}

// FairOdds returns 1/p
func FairOdds(p float64) float64 {
	if p <= 0 {
		return 0
	}
	return 1.0 / p
}

// Classify maps an assessment to its advisory label
func Classify(p, odds, ev float64) models.Label {
	switch {
	case ev <= 0 || p < AvoidBelowProb || odds < AvoidBelowOdds:
		return models.LabelAvoid
	case ev >= StrongBetEV && p >= StrongBetMinProb:
		return models.LabelStrongBet
	case ev >= BetEV:
		return models.LabelBet
	default:
		return models.LabelConsider
	}
}

// BestOdds selects the highest price per outcome across bookmakers.
// Malformed quotes (O ≤ 1) or outcomes outside the market are dropped and reported as warnings.
func BestOdds(market models.MarketKind, quotes []models.OddsQuote) (map[models.Outcome]models.OddsQuote, []string) {
	best := make(map[models.Outcome]models.OddsQuote)
	var warnings []string
	for _, q := range quotes {
		if q.Market != market {
			continue
		}
		if !market.Contains(q.Outcome) {
			warnings = append(warnings, fmt.Sprintf("%s/%s: outcome %q not in market, dropped", q.Bookmaker, market, q.Outcome))
			continue
		}
		if q.Odds <= minimumValidDecimals {
			warnings = append(warnings, fmt.Sprintf("%s/%s/%s: malformed odds %.4f dropped", q.Bookmaker, market, q.Outcome, q.Odds))
			continue
		}
		if current, ok := best[q.Outcome]; !ok || q.Odds > current.Odds {
			best[q.Outcome] = q
		}
	}
	return best, warnings
}

// bookmakerBooks groups valid quotes into complete per-bookmaker books in canonical outcome order
func bookmakerBooks(market models.MarketKind, quotes []models.OddsQuote) map[string][]float64 {
	outcomes := market.Outcomes()
	latest := make(map[string]map[models.Outcome]models.OddsQuote)
	for _, q := range quotes {
		if q.Market != market || !market.Contains(q.Outcome) || q.Odds <= minimumValidDecimals {
			continue
		}
		if latest[q.Bookmaker] == nil {
			latest[q.Bookmaker] = make(map[models.Outcome]models.OddsQuote)
		}
		// a bookmaker's book is its most recent price per outcome
		if prev, ok := latest[q.Bookmaker][q.Outcome]; !ok || !q.CapturedAt.Before(prev.CapturedAt) {
			latest[q.Bookmaker][q.Outcome] = q
		}
	}

	books := make(map[string][]float64)
	for bookmaker, byOutcome := range latest {
		if len(byOutcome) != len(outcomes) {
			continue
		}
		book := make([]float64, len(outcomes))
		for i, o := range outcomes {
			book[i] = byOutcome[o].Odds
		}
		books[bookmaker] = book
	}
	return books
}

// MarketView is the de-vigged consensus of every complete bookmaker book in a market
type MarketView struct {
	Market        models.MarketKind
	Overround     float64
	Probabilities map[models.Outcome]float64
	Books         int
}

// ConsensusMarket de-vigs every complete book and averages the results.
// Returns ErrNoMarket when no bookmaker quotes the full outcome space.
func ConsensusMarket(market models.MarketKind, quotes []models.OddsQuote) (MarketView, error) {
	books := bookmakerBooks(market, quotes)
	if len(books) == 0 {
		return MarketView{}, fmt.Errorf("%w: %s has no complete book", models.ErrNoMarket, market)
	}

	names := make([]string, 0, len(books))
	for name := range books {
		names = append(names, name)
	}
	sort.Strings(names)

	outcomes := market.Outcomes()
	view := MarketView{Market: market, Probabilities: make(map[models.Outcome]float64, len(outcomes)), Books: len(books)}
	for _, name := range names {
		probs, overround, err := Devig(books[name])
		if err != nil {
			return MarketView{}, err
		}
		view.Overround += overround
		for i, o := range outcomes {
			view.Probabilities[o] += probs[i]
		}
	}
	n := float64(len(books))
	view.Overround /= n
	for o := range view.Probabilities {
		view.Probabilities[o] /= n
	}
	return view, nil
}

// MarketAssessment holds the per-outcome assessments of one market
type MarketAssessment struct {
	Market      models.MarketKind
	Assessments []models.ValueAssessment
	Overround   float64
	HasBook     bool
	Warnings    []string
}

// AssessMarket compares a model distribution with the quotes of its market.
// An empty quote set yields ErrNoMarket; outcomes lacking a price are skipped with a warning.
func AssessMarket(dist models.OutcomeProbability, quotes []models.OddsQuote) (MarketAssessment, error) {
	market := dist.Market
	result := MarketAssessment{Market: market}

	best, warnings := BestOdds(market, quotes)
	result.Warnings = append(result.Warnings, warnings...)
	if len(best) == 0 {
		return result, fmt.Errorf("%w: %s", models.ErrNoMarket, market)
	}

	view, err := ConsensusMarket(market, quotes)
	if err == nil {
		result.Overround = view.Overround
		result.HasBook = true
	}

	for _, outcome := range market.Outcomes() {
		quote, ok := best[outcome]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s/%s: %v", market, outcome, models.ErrNoMarket))
			continue
		}
		a := Assess(market, outcome, dist.Get(outcome), quote)
		if result.HasBook {
			a.MarketProbability = view.Probabilities[outcome]
			a.Overround = view.Overround
		}
		result.Assessments = append(result.Assessments, a)
	}
	return result, nil
}

// Assess builds the value assessment of one outcome priced at the given quote
func Assess(market models.MarketKind, outcome models.Outcome, p float64, quote models.OddsQuote) models.ValueAssessment {
	ev := ExpectedValue(p, quote.Odds)
	return models.ValueAssessment{
		Market:             market,
		Outcome:            outcome,
		ModelProbability:   p,
		BestOdds:           quote.Odds,
		Bookmaker:          quote.Bookmaker,
		ImpliedProbability: ImpliedProbability(quote.Odds),
		ExpectedValue:      ev,
		FairOdds:           FairOdds(p),
		Label:              Classify(p, quote.Odds, ev),
	}
}
