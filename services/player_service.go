package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// CreatePlayerInput creates a player, optionally attaching them to a ranking
// and giving them a bonus rule in the same unit.
type CreatePlayerInput struct {
	Name      string
	RankingID *int
	Bonus     *BonusRuleInput
}

type BonusRuleInput struct {
	Amount            int
	Operator          models.BonusOperator
	ThresholdPosition int
}

// UpdatePlayerInput edits player fields; nil means unchanged.
type UpdatePlayerInput struct {
	Name     *string
	Wins     *int
	Losses   *int
	SetsWon  *int
	SetsLost *int
}

// PlayerService manages player identities and their cascade deletion.
type PlayerService struct {
	db           *sql.DB
	playerRepo   repositories.PlayerRepository
	standingRepo repositories.StandingRepository
	ongoingRepo  repositories.OngoingMatchRepository
	bonusRepo    repositories.BonusRuleRepository
	standings    *StandingsService
	repair       *RepairService
	audit        Audit
}

func NewPlayerService(
	db *sql.DB,
	playerRepo repositories.PlayerRepository,
	standingRepo repositories.StandingRepository,
	ongoingRepo repositories.OngoingMatchRepository,
	bonusRepo repositories.BonusRuleRepository,
	standings *StandingsService,
	repair *RepairService,
	audit Audit,
) *PlayerService {
	return &PlayerService{
		db:           db,
		playerRepo:   playerRepo,
		standingRepo: standingRepo,
		ongoingRepo:  ongoingRepo,
		bonusRepo:    bonusRepo,
		standings:    standings,
		repair:       repair,
		audit:        audit,
	}
}

// Create stores a new player with zeroed aggregates. When a ranking is given
// the player starts at its bottom position; when a bonus rule is given it is
// stored alongside. All of it is one atomic unit.
func (s *PlayerService) Create(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	if input.Bonus != nil {
		if input.Bonus.Amount <= 0 || input.Bonus.ThresholdPosition < 1 || !input.Bonus.Operator.Valid() {
			return nil, ErrInvalidBonusRule
		}
	}

	player := &models.Player{Name: name}
	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		if err := s.playerRepo.Create(ctx, tx, player); err != nil {
			if errors.Is(err, repositories.ErrPlayerNameConflict) {
				return ErrPlayerNameTaken
			}
			return err
		}
		if input.RankingID != nil {
			if _, err := s.standings.attach(ctx, tx, player.ID, *input.RankingID); err != nil {
				return fmt.Errorf("failed to attach new player to ranking %d: %w", *input.RankingID, err)
			}
		}
		if input.Bonus != nil {
			rule := &models.BonusRule{
				PlayerID:          player.ID,
				Amount:            input.Bonus.Amount,
				Operator:          input.Bonus.Operator,
				ThresholdPosition: input.Bonus.ThresholdPosition,
			}
			if err := s.bonusRepo.Upsert(ctx, tx, rule); err != nil {
				return fmt.Errorf("failed to store bonus rule for new player: %w", err)
			}
			player.Bonus = rule
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, models.LevelInfo, "player",
		fmt.Sprintf("created player %s(%d)", player.Name, player.ID))
	return player, nil
}

func (s *PlayerService) GetByID(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if rule, err := s.bonusRepo.GetByPlayerID(ctx, nil, id); err == nil {
		player.Bonus = rule
	}
	return player, nil
}

// List returns all players, most wins first.
func (s *PlayerService) List(ctx context.Context) ([]*models.Player, error) {
	return s.playerRepo.List(ctx, nil)
}

// Update edits the given fields of a player.
func (s *PlayerService) Update(ctx context.Context, id int, input UpdatePlayerInput) (*models.Player, error) {
	var player *models.Player
	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		var err error
		player, err = s.playerRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return ErrPlayerNameRequired
			}
			player.Name = name
		}
		if input.Wins != nil {
			player.Wins = *input.Wins
		}
		if input.Losses != nil {
			player.Losses = *input.Losses
		}
		if input.SetsWon != nil {
			player.SetsWon = *input.SetsWon
		}
		if input.SetsLost != nil {
			player.SetsLost = *input.SetsLost
		}

		if err := s.playerRepo.Update(ctx, tx, player); err != nil {
			if errors.Is(err, repositories.ErrPlayerNameConflict) {
				return ErrPlayerNameTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, models.LevelInfo, "player", fmt.Sprintf("edited player %s(%d)", player.Name, id))
	return player, nil
}

// Delete removes the player, every standing referencing them, any ongoing
// match they are part of and their bonus rule, then compacts each affected
// ranking so positions stay dense. One atomic unit.
func (s *PlayerService) Delete(ctx context.Context, id int) error {
	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		player, err := s.playerRepo.GetByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}

		standings, err := s.standingRepo.ListByPlayer(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to list standings of player %d: %w", id, err)
		}
		for _, standing := range standings {
			if err := s.standingRepo.Delete(ctx, tx, standing.ID); err != nil {
				return fmt.Errorf("failed to delete standing %d: %w", standing.ID, err)
			}
		}

		if err := s.ongoingRepo.DeleteByPlayerID(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete ongoing matches of player %d: %w", id, err)
		}
		if err := s.bonusRepo.DeleteByPlayerID(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete bonus rule of player %d: %w", id, err)
		}
		if err := s.playerRepo.Delete(ctx, tx, id); err != nil {
			return err
		}

		for _, standing := range standings {
			if err := s.repair.CompactPositions(ctx, tx, standing.RankingID); err != nil {
				return err
			}
		}

		s.audit.Event(ctx, models.LevelInfo, "player",
			fmt.Sprintf("deleted player %s(%d) and %d standings", player.Name, id, len(standings)))
		return nil
	})
	return err
}
