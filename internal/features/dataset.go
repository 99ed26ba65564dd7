package features

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Sample is one training row: the match, its feature vector and the realised 1X2 outcome
type Sample struct {
	Match  models.Match
	Vector models.FeatureVector
	Label  models.Outcome
}

// Dataset is a chronologically ordered set of samples sharing one schema
type Dataset struct {
	Schema  []string
	Samples []Sample
	Skipped int
}

// Len returns the number of samples
func (d *Dataset) Len() int {
	return len(d.Samples)
}

// X returns the feature matrix, one row per sample
func (d *Dataset) X() [][]float64 {
	rows := make([][]float64, len(d.Samples))
	for i := range d.Samples {
		rows[i] = d.Samples[i].Vector.Values
	}
	return rows
}

// Y returns class indices in canonical 1X2 order
func (d *Dataset) Y() []int {
	labels := make([]int, len(d.Samples))
	for i := range d.Samples {
		labels[i] = ClassIndex(d.Samples[i].Label)
	}
	return labels
}

// Slice returns the samples in [i, j) as a dataset sharing the schema
func (d *Dataset) Slice(i, j int) *Dataset {
	return &Dataset{Schema: d.Schema, Samples: d.Samples[i:j]}
}

// ClassIndex maps a 1X2 outcome to its position in the canonical outcome order
func ClassIndex(o models.Outcome) int {
	for i, candidate := range models.MarketMatchResult.Outcomes() {
		if candidate == o {
			return i
		}
	}
	return -1
}

// BuildDataset builds one sample per completed match with kickoff before cutoff, each with
// its own kickoff as history cutoff. Matches lacking history or odds are counted as skipped.
func (b *Builder) BuildDataset(ctx context.Context, matches []models.Match, cutoff time.Time) (*Dataset, error) {
	ordered := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if m.IsCompleted() && m.Kickoff.Before(cutoff) {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kickoff.Before(ordered[j].Kickoff)
	})

	ds := &Dataset{Schema: b.Schema()}
	for i := range ordered {
		m := ordered[i]
		vec, err := b.Build(ctx, &m, m.Kickoff)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientHistory) || errors.Is(err, models.ErrNoMarket) {
				ds.Skipped++
				continue
			}
			return nil, err
		}
		label, _ := m.Result()
		ds.Samples = append(ds.Samples, Sample{Match: m, Vector: *vec, Label: label})
	}

	b.logger.WithFields(logrus.Fields{
		"cutoff":  cutoff,
		"samples": len(ds.Samples),
		"skipped": ds.Skipped,
	}).Debug("Built training dataset")

	return ds, nil
}
