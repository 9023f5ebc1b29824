package models

import "time"

// OngoingMatch is a challenge in progress. Bonus amounts are snapshotted at
// start time and never recomputed while the match runs.
type OngoingMatch struct {
	ID              int       `json:"id"`
	RankingID       int       `json:"ranking_id"`
	Challenger      string    `json:"challenger"`
	ChallengerID    int       `json:"challenger_id"`
	Defender        string    `json:"defender"`
	DefenderID      int       `json:"defender_id"`
	ChallengerBonus int       `json:"challenger_bonus"`
	DefenderBonus   int       `json:"defender_bonus"`
	StartedAt       time.Time `json:"started_at"`
}

// FinishedMatch is the immutable archival record of a settled match. Player
// names are denormalized so the record survives player deletion.
type FinishedMatch struct {
	ID              int       `json:"id"`
	RankingID       int       `json:"ranking_id"`
	Challenger      string    `json:"challenger"`
	ChallengerID    int       `json:"challenger_id"`
	Defender        string    `json:"defender"`
	DefenderID      int       `json:"defender_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Winner          string    `json:"winner"`
	WinnerID        int       `json:"winner_id"`
	ChallengerScore *int      `json:"challenger_score,omitempty"`
	DefenderScore   *int      `json:"defender_score,omitempty"`
}
