package models

import "time"

// FeatureVector is one row of the feature matrix together with its column schema
type FeatureVector struct {
	MatchID string    `json:"match_id"`
	Cutoff  time.Time `json:"cutoff"`
	Schema  []string  `json:"schema"`
	Values  []float64 `json:"values"`
}

// Get returns the value of a named feature
func (v *FeatureVector) Get(name string) (float64, bool) {
	for i, col := range v.Schema {
		if col == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// SameSchema reports whether the columns match exactly, order included
func SameSchema(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
