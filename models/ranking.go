package models

import "time"

// SortMode определяет, как упорядочивается таблица рейтинга.
type SortMode string

const (
	// SortByPosition: ladder mode, position 1 is best, promotions swap slots.
	SortByPosition SortMode = "position"
	// SortByPoints: table mode, display order is points descending; stored
	// positions are frozen from the last time the list used ladder mode.
	SortByPoints SortMode = "points"
)

func (m SortMode) Valid() bool {
	return m == SortByPosition || m == SortByPoints
}

// Ranking is an independently configured ladder or tournament table.
type Ranking struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description,omitempty"`
	IsTournament   bool       `json:"is_tournament"`
	TournamentType *string    `json:"tournament_type,omitempty"`
	SortMode       SortMode   `json:"sort_mode"`
	EndsOn         *time.Time `json:"ends_on,omitempty"`
	Ended          bool       `json:"ended"`
	CreatedAt      time.Time  `json:"created_at"`
}
