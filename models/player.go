package models

// Player is a club member known across all rankings. Aggregates are
// career-wide, not per ranking.
type Player struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	SetsWon  int    `json:"sets_won"`
	SetsLost int    `json:"sets_lost"`

	// Optional linked data, populated by services for display
	Bonus *BonusRule `json:"bonus,omitempty"`
}
