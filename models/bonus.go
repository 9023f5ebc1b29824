package models

// BonusOperator compares the opponent's position against the rule threshold.
type BonusOperator string

const (
	OpEqual          BonusOperator = "="
	OpLess           BonusOperator = "<"
	OpLessOrEqual    BonusOperator = "<="
	OpGreater        BonusOperator = ">"
	OpGreaterOrEqual BonusOperator = ">="
)

func (o BonusOperator) Valid() bool {
	switch o {
	case OpEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		return true
	}
	return false
}

// BonusRule grants a player extra points for a match when the opponent's
// position in the match's ranking satisfies the comparison. One rule per
// player at most, global to the player.
type BonusRule struct {
	ID                int           `json:"id"`
	PlayerID          int           `json:"player_id"`
	Amount            int           `json:"amount"`
	Operator          BonusOperator `json:"operator"`
	ThresholdPosition int           `json:"threshold_position"`
}
