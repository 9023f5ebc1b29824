package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// Promoter applies the single-slot promotion rule: a winner ranked worse than
// the loser moves up exactly one place, swapping with whoever holds that slot.
// It is not a re-sort; the gap between winner and loser does not matter.
type Promoter struct {
	standingRepo repositories.StandingRepository
	audit        Audit
}

func NewPromoter(standingRepo repositories.StandingRepository, audit Audit) *Promoter {
	return &Promoter{standingRepo: standingRepo, audit: audit}
}

// Promote runs inside the caller's transaction (exec). Anomalies that the
// ladder can survive (missing standings, density violation at the target
// slot) are logged and skipped rather than failing the whole match; only
// unexpected storage errors propagate.
func (p *Promoter) Promote(ctx context.Context, exec repositories.SQLExecutor, ranking *models.Ranking, winnerID, loserID int, now time.Time) error {
	if ranking.SortMode != models.SortByPosition {
		return nil
	}

	winner, err := p.standingRepo.GetByPlayerAndRanking(ctx, exec, winnerID, ranking.ID)
	if err != nil {
		return p.skipOnMissing(ctx, err, fmt.Sprintf("winner %d has no standing in ranking %d, skipping promotion", winnerID, ranking.ID))
	}
	loser, err := p.standingRepo.GetByPlayerAndRanking(ctx, exec, loserID, ranking.ID)
	if err != nil {
		return p.skipOnMissing(ctx, err, fmt.Sprintf("loser %d has no standing in ranking %d, skipping promotion", loserID, ranking.ID))
	}

	// Already equal or better ranked than the loser: nothing to win.
	if winner.Position <= loser.Position {
		return nil
	}

	target := winner.Position - 1
	if target < 1 {
		return nil
	}

	occupant, err := p.standingRepo.GetByPosition(ctx, exec, ranking.ID, target)
	if err != nil {
		if errors.Is(err, repositories.ErrStandingNotFound) {
			// Position target is unoccupied: the 1..N density invariant is
			// broken. Swapping against a hole would corrupt state further.
			p.audit.Event(ctx, models.LevelWarning, "promotion",
				fmt.Sprintf("no standing occupies position %d in ranking %d, skipping promotion", target, ranking.ID))
			return nil
		}
		return err
	}

	winnerPos := winner.Position
	occupantPos := occupant.Position

	winner.PreviousPosition = &winnerPos
	winner.Position = occupantPos
	winner.LastChanged = &now

	occupant.PreviousPosition = &occupantPos
	occupant.Position = winnerPos
	occupant.LastChanged = &now

	if err := p.standingRepo.Update(ctx, exec, winner); err != nil {
		return fmt.Errorf("failed to move winner %d to position %d: %w", winnerID, occupantPos, err)
	}
	if err := p.standingRepo.Update(ctx, exec, occupant); err != nil {
		return fmt.Errorf("failed to move player %d to position %d: %w", occupant.PlayerID, winnerPos, err)
	}

	p.audit.Event(ctx, models.LevelInfo, "promotion",
		fmt.Sprintf("player %d promoted to position %d in ranking %d, player %d moved down to %d",
			winnerID, occupantPos, ranking.ID, occupant.PlayerID, winnerPos))
	return nil
}

func (p *Promoter) skipOnMissing(ctx context.Context, err error, message string) error {
	if errors.Is(err, repositories.ErrStandingNotFound) {
		p.audit.Event(ctx, models.LevelWarning, "promotion", message)
		return nil
	}
	return err
}
