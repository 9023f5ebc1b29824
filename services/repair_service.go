package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// RepairService restores the standings invariants after deletions: it removes
// rows whose player is gone and closes position gaps back to a dense 1..N.
// Repairs are absorbed maintenance, never surfaced as fatal to the caller
// operation that triggered them.
type RepairService struct {
	db           *sql.DB
	playerRepo   repositories.PlayerRepository
	standingRepo repositories.StandingRepository
	audit        Audit
}

func NewRepairService(
	db *sql.DB,
	playerRepo repositories.PlayerRepository,
	standingRepo repositories.StandingRepository,
	audit Audit,
) *RepairService {
	return &RepairService{
		db:           db,
		playerRepo:   playerRepo,
		standingRepo: standingRepo,
		audit:        audit,
	}
}

// Fix runs both repairs on a ranking inside its own transaction. This is the
// entrypoint for the maintenance endpoint; internal callers that already hold
// a transaction use CheckAndFix or CompactPositions directly.
func (s *RepairService) Fix(ctx context.Context, rankingID int) error {
	return runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		return s.CheckAndFix(ctx, tx, rankingID)
	})
}

// RemoveOrphans deletes standings whose referenced player no longer exists.
func (s *RepairService) RemoveOrphans(ctx context.Context, exec repositories.SQLExecutor, rankingID int) error {
	standings, err := s.standingRepo.ListByRanking(ctx, exec, rankingID)
	if err != nil {
		return fmt.Errorf("failed to list standings of ranking %d: %w", rankingID, err)
	}

	for _, standing := range standings {
		_, err := s.playerRepo.GetByID(ctx, exec, standing.PlayerID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repositories.ErrPlayerNotFound) {
			return fmt.Errorf("failed to check player %d: %w", standing.PlayerID, err)
		}
		s.audit.Event(ctx, models.LevelWarning, "repair",
			fmt.Sprintf("player %d no longer exists, removing orphaned standing in ranking %d", standing.PlayerID, rankingID))
		if err := s.standingRepo.Delete(ctx, exec, standing.ID); err != nil {
			return fmt.Errorf("failed to remove orphaned standing %d: %w", standing.ID, err)
		}
	}
	return nil
}

// CompactPositions closes gaps in a ranking's position sequence. The first
// entry is forced to position 1; each following entry whose position is not
// exactly one above its (already repaired) predecessor is shifted down by the
// gap size, previous position included. Idempotent and order-preserving.
func (s *RepairService) CompactPositions(ctx context.Context, exec repositories.SQLExecutor, rankingID int) error {
	standings, err := s.standingRepo.ListByRanking(ctx, exec, rankingID)
	if err != nil {
		return fmt.Errorf("failed to list standings of ranking %d: %w", rankingID, err)
	}
	if len(standings) == 0 {
		return nil
	}

	if standings[0].Position != 1 {
		s.audit.Event(ctx, models.LevelInfo, "repair",
			fmt.Sprintf("first entry of ranking %d sits at position %d, pulling it up to 1", rankingID, standings[0].Position))
		diff := standings[0].Position - 1
		standings[0].Position = 1
		if standings[0].PreviousPosition != nil {
			prev := *standings[0].PreviousPosition - diff
			standings[0].PreviousPosition = &prev
		}
		if err := s.standingRepo.Update(ctx, exec, standings[0]); err != nil {
			return fmt.Errorf("failed to compact standing %d: %w", standings[0].ID, err)
		}
	}

	before := standings[0].Position
	for _, standing := range standings[1:] {
		if standing.Position == before+1 {
			before = standing.Position
			continue
		}
		diff := standing.Position - (before + 1)
		s.audit.Event(ctx, models.LevelInfo, "repair",
			fmt.Sprintf("gap of %d before position %d in ranking %d, shifting down", diff, standing.Position, rankingID))
		standing.Position -= diff
		if standing.PreviousPosition != nil {
			prev := *standing.PreviousPosition - diff
			standing.PreviousPosition = &prev
		}
		if err := s.standingRepo.Update(ctx, exec, standing); err != nil {
			return fmt.Errorf("failed to compact standing %d: %w", standing.ID, err)
		}
		before = standing.Position
	}
	return nil
}

// CheckAndFix runs both repairs, orphans first so compaction sees the final row set.
func (s *RepairService) CheckAndFix(ctx context.Context, exec repositories.SQLExecutor, rankingID int) error {
	if err := s.RemoveOrphans(ctx, exec, rankingID); err != nil {
		return err
	}
	return s.CompactPositions(ctx, exec, rankingID)
}
