package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// BonusAmounts is the per-side result of evaluating bonus rules for a match.
type BonusAmounts struct {
	Challenger int
	Defender   int
}

// BonusService evaluates per-player conditional bonus rules. A rule fires when
// the opponent's position in the match's ranking satisfies the comparison.
type BonusService struct {
	standingRepo repositories.StandingRepository
	bonusRepo    repositories.BonusRuleRepository
	audit        Audit
}

func NewBonusService(
	standingRepo repositories.StandingRepository,
	bonusRepo repositories.BonusRuleRepository,
	audit Audit,
) *BonusService {
	return &BonusService{
		standingRepo: standingRepo,
		bonusRepo:    bonusRepo,
		audit:        audit,
	}
}

// Evaluate computes the snapshot bonuses for a pending match. Missing rules or
// missing standings yield 0 for the affected side; the match proceeds either
// way, so no error is returned.
func (s *BonusService) Evaluate(ctx context.Context, exec repositories.SQLExecutor, match *models.OngoingMatch) BonusAmounts {
	return BonusAmounts{
		Challenger: s.sideBonus(ctx, exec, match.RankingID, match.ChallengerID, match.DefenderID),
		Defender:   s.sideBonus(ctx, exec, match.RankingID, match.DefenderID, match.ChallengerID),
	}
}

func (s *BonusService) sideBonus(ctx context.Context, exec repositories.SQLExecutor, rankingID, playerID, opponentID int) int {
	rule, err := s.bonusRepo.GetByPlayerID(ctx, exec, playerID)
	if err != nil {
		if !errors.Is(err, repositories.ErrBonusRuleNotFound) {
			s.audit.Event(ctx, models.LevelError, "bonus",
				fmt.Sprintf("could not load bonus rule for player %d: %v", playerID, err))
		}
		return 0
	}

	opponent, err := s.standingRepo.GetByPlayerAndRanking(ctx, exec, opponentID, rankingID)
	if err != nil {
		s.audit.Event(ctx, models.LevelWarning, "bonus",
			fmt.Sprintf("no standing for opponent %d in ranking %d, bonus defaults to 0", opponentID, rankingID))
		return 0
	}

	if compareAgainstThreshold(opponent.Position, rule.Operator, rule.ThresholdPosition) {
		return rule.Amount
	}
	return 0
}

func compareAgainstThreshold(position int, op models.BonusOperator, threshold int) bool {
	switch op {
	case models.OpEqual:
		return position == threshold
	case models.OpLess:
		return position < threshold
	case models.OpLessOrEqual:
		return position <= threshold
	case models.OpGreater:
		return position > threshold
	case models.OpGreaterOrEqual:
		return position >= threshold
	}
	return false
}

// SetRule creates or replaces the player's single bonus rule.
func (s *BonusService) SetRule(ctx context.Context, playerID, amount int, operator models.BonusOperator, threshold int) (*models.BonusRule, error) {
	if amount <= 0 || threshold < 1 || !operator.Valid() {
		return nil, ErrInvalidBonusRule
	}
	rule := &models.BonusRule{
		PlayerID:          playerID,
		Amount:            amount,
		Operator:          operator,
		ThresholdPosition: threshold,
	}
	if err := s.bonusRepo.Upsert(ctx, nil, rule); err != nil {
		return nil, fmt.Errorf("failed to save bonus rule for player %d: %w", playerID, err)
	}
	s.audit.Event(ctx, models.LevelInfo, "bonus",
		fmt.Sprintf("set bonus rule for player %d: %d when opponent %s %d", playerID, amount, operator, threshold))
	return rule, nil
}

// RemoveRule deletes the player's bonus rule if one exists.
func (s *BonusService) RemoveRule(ctx context.Context, playerID int) error {
	if err := s.bonusRepo.DeleteByPlayerID(ctx, nil, playerID); err != nil {
		return fmt.Errorf("failed to remove bonus rule for player %d: %w", playerID, err)
	}
	return nil
}
