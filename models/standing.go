package models

import "time"

// Standing binds one player to one ranking. Unique per (player, ranking).
// In position mode the positions of a ranking always form 1..N.
type Standing struct {
	ID               int        `json:"id" db:"id"`
	PlayerID         int        `json:"player_id" db:"player_id"`
	RankingID        int        `json:"ranking_id" db:"ranking_id"`
	Position         int        `json:"position" db:"position"`
	Points           int        `json:"points" db:"points"`
	PreviousPosition *int       `json:"previous_position,omitempty" db:"previous_position"`
	PreviousPoints   *int       `json:"previous_points,omitempty" db:"previous_points"`
	LastChanged      *time.Time `json:"last_changed,omitempty" db:"last_changed"`
}

// StandingView is the read model returned to the presentation layer: one row
// of an ordered ranking table. DisplayRank is the 1-based rank in the chosen
// sort order; in points mode it is computed, not the stored position.
type StandingView struct {
	DisplayRank      int        `json:"display_rank"`
	Player           Player     `json:"player"`
	Position         int        `json:"position"`
	Points           int        `json:"points"`
	PreviousPosition *int       `json:"previous_position,omitempty"`
	LastChanged      *time.Time `json:"last_changed,omitempty"`
}
