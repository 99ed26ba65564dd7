package models

import (
	"fmt"
	"time"
)

// Match represents a football fixture, completed or upcoming
type Match struct {
	ID         string            `db:"id" json:"id" validate:"required"`
	Kickoff    time.Time         `db:"kickoff" json:"kickoff" validate:"required"`
	LeagueID   string            `db:"league_id" json:"league_id" validate:"required"`
	Season     string            `db:"season" json:"season"`
	HomeTeamID string            `db:"home_team_id" json:"home_team_id" validate:"required"`
	AwayTeamID string            `db:"away_team_id" json:"away_team_id" validate:"required,nefield=HomeTeamID"`
	HomeGoals  *int              `db:"home_goals" json:"home_goals,omitempty" validate:"omitempty,gte=0"`
	AwayGoals  *int              `db:"away_goals" json:"away_goals,omitempty" validate:"omitempty,gte=0"`
	Auxiliary  map[string]string `db:"auxiliary" json:"auxiliary,omitempty"`
}

// MatchFilter narrows list queries against the match store
type MatchFilter struct {
	LeagueID      string
	Season        string
	From          time.Time
	To            time.Time
	CompletedOnly bool
}

// Validate checks the structural invariants of a match
func (m *Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: match id is required", ErrInvalidInputs)
	}
	if m.HomeTeamID == "" || m.AwayTeamID == "" {
		return fmt.Errorf("%w: match %s is missing a team", ErrInvalidInputs, m.ID)
	}
	if m.HomeTeamID == m.AwayTeamID {
		return fmt.Errorf("%w: match %s has identical home and away team %s", ErrInvalidInputs, m.ID, m.HomeTeamID)
	}
	if (m.HomeGoals == nil) != (m.AwayGoals == nil) {
		return fmt.Errorf("%w: match %s has a partial score", ErrInvalidInputs, m.ID)
	}
	return nil
}

// IsCompleted reports whether a final score is known
func (m *Match) IsCompleted() bool {
	return m.HomeGoals != nil && m.AwayGoals != nil
}

// UsableForTraining reports whether the match may feed model fitting at time now
func (m *Match) UsableForTraining(now time.Time) bool {
	return m.IsCompleted() && m.Kickoff.Before(now)
}

// Involves checks if the team plays in this match
func (m *Match) Involves(teamID string) bool {
	return m.HomeTeamID == teamID || m.AwayTeamID == teamID
}

// GoalsFor returns goals scored and conceded by the team, from its own perspective
func (m *Match) GoalsFor(teamID string) (scored, conceded int, ok bool) {
	if !m.IsCompleted() {
		return 0, 0, false
	}
	switch teamID {
	case m.HomeTeamID:
		return *m.HomeGoals, *m.AwayGoals, true
	case m.AwayTeamID:
		return *m.AwayGoals, *m.HomeGoals, true
	}
	return 0, 0, false
}

// Result returns the 1X2 outcome of a completed match
func (m *Match) Result() (Outcome, bool) {
	if !m.IsCompleted() {
		return "", false
	}
	switch {
	case *m.HomeGoals > *m.AwayGoals:
		return OutcomeHome, true
	case *m.HomeGoals < *m.AwayGoals:
		return OutcomeAway, true
	default:
		return OutcomeDraw, true
	}
}

// Settlement returns the settlement encoding of a completed match
func (m *Match) Settlement() (Settlement, bool) {
	result, ok := m.Result()
	if !ok {
		return Settlement{}, false
	}
	total := *m.HomeGoals + *m.AwayGoals
	btts := *m.HomeGoals > 0 && *m.AwayGoals > 0
	return Settlement{Result: result, TotalGoals: &total, BothTeamsScored: &btts}, true
}
