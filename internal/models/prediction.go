package models

import (
	"math"
	"time"
)

// ProbabilityTolerance bounds how far a complete market distribution may drift from 1
const ProbabilityTolerance = 1e-6

// OutcomeProbability is a probability distribution over the outcome space of one market
type OutcomeProbability struct {
	Market        MarketKind          `json:"market"`
	Probabilities map[Outcome]float64 `json:"probabilities"`
}

// NewOutcomeProbability builds a distribution from values listed in the market's canonical order
func NewOutcomeProbability(market MarketKind, values ...float64) OutcomeProbability {
	outcomes := market.Outcomes()
	probs := make(map[Outcome]float64, len(outcomes))
	for i, o := range outcomes {
		if i < len(values) {
			probs[o] = values[i]
		}
	}
	return OutcomeProbability{Market: market, Probabilities: probs}
}

// Get returns the probability of one outcome
func (p OutcomeProbability) Get(o Outcome) float64 {
	return p.Probabilities[o]
}

// Vector returns probabilities in canonical outcome order
func (p OutcomeProbability) Vector() []float64 {
	outcomes := p.Market.Outcomes()
	out := make([]float64, len(outcomes))
	for i, o := range outcomes {
		out[i] = p.Probabilities[o]
	}
	return out
}

// Sum returns the total mass of the distribution
func (p OutcomeProbability) Sum() float64 {
	total := 0.0
	for _, v := range p.Probabilities {
		total += v
	}
	return total
}

// IsNormalised checks the distribution sums to one within tolerance
func (p OutcomeProbability) IsNormalised() bool {
	return math.Abs(p.Sum()-1) < ProbabilityTolerance
}

// Normalised returns a copy rescaled to sum to one
func (p OutcomeProbability) Normalised() OutcomeProbability {
	total := p.Sum()
	out := OutcomeProbability{Market: p.Market, Probabilities: make(map[Outcome]float64, len(p.Probabilities))}
	for o, v := range p.Probabilities {
		if total > 0 {
			out.Probabilities[o] = v / total
		} else {
			out.Probabilities[o] = 1.0 / float64(len(p.Probabilities))
		}
	}
	return out
}

// Confidence is the largest component of the distribution
func (p OutcomeProbability) Confidence() float64 {
	best := 0.0
	for _, v := range p.Probabilities {
		if v > best {
			best = v
		}
	}
	return best
}

// MatchPrediction groups the per-market distributions produced for one match
type MatchPrediction struct {
	MatchID  string                            `json:"match_id"`
	Markets  map[MarketKind]OutcomeProbability `json:"markets"`
	FittedAt time.Time                         `json:"fitted_at"`
	Strategy string                            `json:"strategy"`
}

// Market returns the distribution for one market
func (p *MatchPrediction) Market(kind MarketKind) (OutcomeProbability, bool) {
	dist, ok := p.Markets[kind]
	return dist, ok
}
