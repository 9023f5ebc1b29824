package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// StandingsService owns the per-(player, ranking) standing rows and the
// ordered views over them.
type StandingsService struct {
	db           *sql.DB
	playerRepo   repositories.PlayerRepository
	rankingRepo  repositories.RankingRepository
	standingRepo repositories.StandingRepository
	repair       *RepairService
	audit        Audit
}

func NewStandingsService(
	db *sql.DB,
	playerRepo repositories.PlayerRepository,
	rankingRepo repositories.RankingRepository,
	standingRepo repositories.StandingRepository,
	repair *RepairService,
	audit Audit,
) *StandingsService {
	return &StandingsService{
		db:           db,
		playerRepo:   playerRepo,
		rankingRepo:  rankingRepo,
		standingRepo: standingRepo,
		repair:       repair,
		audit:        audit,
	}
}

// Attach puts a player at the bottom of a ranking: position max+1, points 0.
func (s *StandingsService) Attach(ctx context.Context, playerID, rankingID int) (*models.Standing, error) {
	var standing *models.Standing
	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		player, err := s.playerRepo.GetByID(ctx, tx, playerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		if _, err := s.rankingRepo.GetByID(ctx, tx, rankingID); err != nil {
			if errors.Is(err, repositories.ErrRankingNotFound) {
				return ErrRankingNotFound
			}
			return err
		}

		standing, err = s.attach(ctx, tx, playerID, rankingID)
		if err != nil {
			return err
		}
		s.audit.Event(ctx, models.LevelInfo, "standings",
			fmt.Sprintf("attached player %s(%d) to ranking %d at position %d", player.Name, playerID, rankingID, standing.Position))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return standing, nil
}

// attach creates the standing row at the bottom of the ranking inside the
// caller's transaction. The ranking catalog reuses it for initial players.
func (s *StandingsService) attach(ctx context.Context, exec repositories.SQLExecutor, playerID, rankingID int) (*models.Standing, error) {
	if _, err := s.standingRepo.GetByPlayerAndRanking(ctx, exec, playerID, rankingID); err == nil {
		return nil, ErrAlreadyAttached
	} else if !errors.Is(err, repositories.ErrStandingNotFound) {
		return nil, err
	}

	maxPos, err := s.standingRepo.MaxPosition(ctx, exec, rankingID)
	if err != nil {
		return nil, fmt.Errorf("failed to determine bottom position of ranking %d: %w", rankingID, err)
	}

	standing := &models.Standing{
		PlayerID:  playerID,
		RankingID: rankingID,
		Position:  maxPos + 1,
		Points:    0,
	}
	if err := s.standingRepo.Create(ctx, exec, standing); err != nil {
		if errors.Is(err, repositories.ErrStandingConflict) {
			return nil, ErrAlreadyAttached
		}
		return nil, err
	}
	return standing, nil
}

// Detach removes the player's standing and then compacts the ranking's
// positions as follow-up maintenance. A failed compaction is absorbed: the
// detach itself stays committed and the anomaly is only logged.
func (s *StandingsService) Detach(ctx context.Context, playerID, rankingID int) error {
	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		if err := s.standingRepo.DeleteByPlayerAndRanking(ctx, tx, playerID, rankingID); err != nil {
			if errors.Is(err, repositories.ErrStandingNotFound) {
				return ErrStandingNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit.Event(ctx, models.LevelInfo, "standings",
		fmt.Sprintf("removed player %d from ranking %d", playerID, rankingID))

	if err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		return s.repair.CompactPositions(ctx, tx, rankingID)
	}); err != nil {
		s.audit.Event(ctx, models.LevelError, "standings",
			fmt.Sprintf("post-detach compaction of ranking %d failed: %v", rankingID, err))
	}
	return nil
}

// Get returns the player's standing in one ranking.
func (s *StandingsService) Get(ctx context.Context, playerID, rankingID int) (*models.Standing, error) {
	standing, err := s.standingRepo.GetByPlayerAndRanking(ctx, nil, playerID, rankingID)
	if err != nil {
		if errors.Is(err, repositories.ErrStandingNotFound) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return standing, nil
}

// OrderedView returns the ranking table in its display order. In position
// mode the stored position is the rank. In points mode rows are ordered by
// points descending (player id as deterministic tiebreaker) and the display
// rank is the 1-based index of that sequence, not the frozen position field.
func (s *StandingsService) OrderedView(ctx context.Context, rankingID int) ([]models.StandingView, error) {
	ranking, err := s.rankingRepo.GetByID(ctx, nil, rankingID)
	if err != nil {
		if errors.Is(err, repositories.ErrRankingNotFound) {
			return nil, ErrRankingNotFound
		}
		return nil, err
	}

	standings, err := s.standingRepo.ListByRanking(ctx, nil, rankingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings of ranking %d: %w", rankingID, err)
	}

	if ranking.SortMode == models.SortByPoints {
		sort.SliceStable(standings, func(i, j int) bool {
			if standings[i].Points != standings[j].Points {
				return standings[i].Points > standings[j].Points
			}
			return standings[i].PlayerID < standings[j].PlayerID
		})
	}

	views := make([]models.StandingView, 0, len(standings))
	for _, standing := range standings {
		player, err := s.playerRepo.GetByID(ctx, nil, standing.PlayerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				// Orphaned row; skip it for display, repair will catch it.
				s.audit.Event(ctx, models.LevelWarning, "standings",
					fmt.Sprintf("standing %d references missing player %d", standing.ID, standing.PlayerID))
				continue
			}
			return nil, err
		}
		views = append(views, models.StandingView{
			DisplayRank:      len(views) + 1,
			Player:           *player,
			Position:         standing.Position,
			Points:           standing.Points,
			PreviousPosition: standing.PreviousPosition,
			LastChanged:      standing.LastChanged,
		})
	}
	return views, nil
}
