package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// CreateRankingInput carries the primitive arguments for a new ranking list.
// EndsOn must already be a canonical instant (the handler normalizes).
type CreateRankingInput struct {
	Name             string
	Description      *string
	IsTournament     bool
	TournamentType   *string
	SortMode         models.SortMode
	EndsOn           *time.Time
	InitialPlayerIDs []int
}

// RankingSettingsInput updates a ranking after creation. Nil fields are left
// untouched; ClearEndsOn removes a scheduled end.
type RankingSettingsInput struct {
	SortMode    *models.SortMode
	EndsOn      *time.Time
	ClearEndsOn bool
}

// RankingService manages the lifecycle of ranking lists: create, configure,
// end (soft), delete (hard cascade) and the auto-expiry sweep.
type RankingService struct {
	db           *sql.DB
	rankingRepo  repositories.RankingRepository
	standingRepo repositories.StandingRepository
	ongoingRepo  repositories.OngoingMatchRepository
	finishedRepo repositories.FinishedMatchRepository
	standings    *StandingsService
	clock        *Clock
	audit        Audit
}

func NewRankingService(
	db *sql.DB,
	rankingRepo repositories.RankingRepository,
	standingRepo repositories.StandingRepository,
	ongoingRepo repositories.OngoingMatchRepository,
	finishedRepo repositories.FinishedMatchRepository,
	standings *StandingsService,
	clock *Clock,
	audit Audit,
) *RankingService {
	return &RankingService{
		db:           db,
		rankingRepo:  rankingRepo,
		standingRepo: standingRepo,
		ongoingRepo:  ongoingRepo,
		finishedRepo: finishedRepo,
		standings:    standings,
		clock:        clock,
		audit:        audit,
	}
}

// Create validates and stores a new ranking and attaches the initial players
// in the given order, all in one transaction.
func (s *RankingService) Create(ctx context.Context, input CreateRankingInput) (*models.Ranking, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: ranking name is required", ErrValidationFailed)
	}
	if !input.SortMode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortMode, input.SortMode)
	}
	if input.EndsOn != nil && !input.EndsOn.After(s.clock.Now()) {
		return nil, ErrEndDateNotFuture
	}

	ranking := &models.Ranking{
		Name:           name,
		Description:    input.Description,
		IsTournament:   input.IsTournament,
		TournamentType: input.TournamentType,
		SortMode:       input.SortMode,
		EndsOn:         input.EndsOn,
	}
	if ranking.EndsOn != nil {
		canonical := ranking.EndsOn.UTC()
		ranking.EndsOn = &canonical
	}

	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		if err := s.rankingRepo.Create(ctx, tx, ranking); err != nil {
			if errors.Is(err, repositories.ErrRankingNameConflict) {
				return ErrRankingNameTaken
			}
			return err
		}
		for _, playerID := range input.InitialPlayerIDs {
			if _, err := s.standings.attach(ctx, tx, playerID, ranking.ID); err != nil {
				return fmt.Errorf("failed to attach initial player %d: %w", playerID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, models.LevelInfo, "ranking",
		fmt.Sprintf("created ranking %s(%d) with %d initial players", ranking.Name, ranking.ID, len(input.InitialPlayerIDs)))
	return ranking, nil
}

func (s *RankingService) GetByID(ctx context.Context, id int) (*models.Ranking, error) {
	ranking, err := s.rankingRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRankingNotFound) {
			return nil, ErrRankingNotFound
		}
		return nil, err
	}
	return ranking, nil
}

func (s *RankingService) List(ctx context.Context) ([]*models.Ranking, error) {
	return s.rankingRepo.List(ctx, nil)
}

// UpdateSettings changes sort mode and scheduled end of an existing ranking.
func (s *RankingService) UpdateSettings(ctx context.Context, id int, input RankingSettingsInput) (*models.Ranking, error) {
	var ranking *models.Ranking
	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		var err error
		ranking, err = s.rankingRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrRankingNotFound) {
				return ErrRankingNotFound
			}
			return err
		}

		if input.SortMode != nil {
			if !input.SortMode.Valid() {
				return fmt.Errorf("%w: %q", ErrInvalidSortMode, *input.SortMode)
			}
			ranking.SortMode = *input.SortMode
		}
		switch {
		case input.ClearEndsOn:
			ranking.EndsOn = nil
		case input.EndsOn != nil:
			if !input.EndsOn.After(s.clock.Now()) {
				return ErrEndDateNotFuture
			}
			canonical := input.EndsOn.UTC()
			ranking.EndsOn = &canonical
		}

		return s.rankingRepo.Update(ctx, tx, ranking)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, models.LevelInfo, "ranking", fmt.Sprintf("updated settings of ranking %d", id))
	return ranking, nil
}

// End marks the ranking as ended without deleting anything. It does not block
// later standings mutations; the presentation layer enforces the freeze.
func (s *RankingService) End(ctx context.Context, id int) error {
	if err := s.rankingRepo.MarkEnded(ctx, nil, id); err != nil {
		if errors.Is(err, repositories.ErrRankingNotFound) {
			return ErrRankingNotFound
		}
		return err
	}
	s.audit.Event(ctx, models.LevelInfo, "ranking", fmt.Sprintf("ended ranking %d", id))
	return nil
}

// Delete hard-deletes the ranking and every standing and match referencing it.
func (s *RankingService) Delete(ctx context.Context, id int) error {
	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		if _, err := s.rankingRepo.GetByID(ctx, tx, id); err != nil {
			if errors.Is(err, repositories.ErrRankingNotFound) {
				return ErrRankingNotFound
			}
			return err
		}
		if err := s.standingRepo.DeleteByRankingID(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete standings of ranking %d: %w", id, err)
		}
		if err := s.ongoingRepo.DeleteByRankingID(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete ongoing matches of ranking %d: %w", id, err)
		}
		if err := s.finishedRepo.DeleteByRankingID(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete finished matches of ranking %d: %w", id, err)
		}
		return s.rankingRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.audit.Event(ctx, models.LevelInfo, "ranking", fmt.Sprintf("deleted ranking %d with all standings and matches", id))
	return nil
}

// AutoExpire flips ended on every ranking whose scheduled end has passed.
// Safe to call repeatedly; already-ended rankings are not selected again.
func (s *RankingService) AutoExpire(ctx context.Context) (int, error) {
	expired, err := s.rankingRepo.ListExpired(ctx, nil, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expirable rankings: %w", err)
	}

	ended := 0
	for _, ranking := range expired {
		if err := s.rankingRepo.MarkEnded(ctx, nil, ranking.ID); err != nil {
			if errors.Is(err, repositories.ErrRankingNotFound) {
				continue // deleted mid-sweep
			}
			return ended, fmt.Errorf("failed to auto-end ranking %d: %w", ranking.ID, err)
		}
		ended++
		s.audit.Event(ctx, models.LevelInfo, "ranking",
			fmt.Sprintf("auto-ended ranking %s(%d), scheduled end %s passed", ranking.Name, ranking.ID, ranking.EndsOn.Format(time.RFC3339)))
	}
	return ended, nil
}
