package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

// Publisher notifies interested parties (the websocket hub) that a ranking's
// standings changed. Implementations must not block.
type Publisher interface {
	PublishRankingChanged(rankingID int)
}

// MatchOutcome carries exactly one of the two accepted result forms: an
// explicit winner id, or both set scores.
type MatchOutcome struct {
	WinnerID        *int
	ChallengerScore *int
	DefenderScore   *int
}

// MatchService moves matches through their two states: a started match is
// Ongoing until Finish settles it into an immutable FinishedMatch.
type MatchService struct {
	db           *sql.DB
	playerRepo   repositories.PlayerRepository
	rankingRepo  repositories.RankingRepository
	standingRepo repositories.StandingRepository
	ongoingRepo  repositories.OngoingMatchRepository
	finishedRepo repositories.FinishedMatchRepository
	bonus        *BonusService
	promoter     *Promoter
	clock        *Clock
	audit        Audit
	publisher    Publisher

	// Serializes finishes per ranking. The promotion step is a scan-then-swap
	// against "who occupies the target slot"; two racing finishes in one list
	// must not both resolve that read against stale state.
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewMatchService(
	db *sql.DB,
	playerRepo repositories.PlayerRepository,
	rankingRepo repositories.RankingRepository,
	standingRepo repositories.StandingRepository,
	ongoingRepo repositories.OngoingMatchRepository,
	finishedRepo repositories.FinishedMatchRepository,
	bonus *BonusService,
	promoter *Promoter,
	clock *Clock,
	audit Audit,
	publisher Publisher,
) *MatchService {
	return &MatchService{
		db:           db,
		playerRepo:   playerRepo,
		rankingRepo:  rankingRepo,
		standingRepo: standingRepo,
		ongoingRepo:  ongoingRepo,
		finishedRepo: finishedRepo,
		bonus:        bonus,
		promoter:     promoter,
		clock:        clock,
		audit:        audit,
		publisher:    publisher,
		locks:        make(map[int]*sync.Mutex),
	}
}

func (s *MatchService) rankingLock(rankingID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[rankingID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[rankingID] = lock
	}
	return lock
}

// Start opens a match between two distinct players and snapshots both sides'
// bonus amounts. Standing changes after this point do not recompute them.
// Nothing prevents a second simultaneous match for the same pair.
func (s *MatchService) Start(ctx context.Context, challengerID, defenderID, rankingID int) (*models.OngoingMatch, error) {
	if challengerID == defenderID {
		return nil, ErrSamePlayer
	}

	var match *models.OngoingMatch
	err := runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		challenger, err := s.playerRepo.GetByID(ctx, tx, challengerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return fmt.Errorf("%w: challenger %d", ErrPlayerNotFound, challengerID)
			}
			return err
		}
		defender, err := s.playerRepo.GetByID(ctx, tx, defenderID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return fmt.Errorf("%w: defender %d", ErrPlayerNotFound, defenderID)
			}
			return err
		}
		if _, err := s.rankingRepo.GetByID(ctx, tx, rankingID); err != nil {
			if errors.Is(err, repositories.ErrRankingNotFound) {
				return ErrRankingNotFound
			}
			return err
		}

		match = &models.OngoingMatch{
			RankingID:    rankingID,
			Challenger:   challenger.Name,
			ChallengerID: challengerID,
			Defender:     defender.Name,
			DefenderID:   defenderID,
			StartedAt:    s.clock.Now(),
		}

		amounts := s.bonus.Evaluate(ctx, tx, match)
		match.ChallengerBonus = amounts.Challenger
		match.DefenderBonus = amounts.Defender

		return s.ongoingRepo.Create(ctx, tx, match)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, models.LevelInfo, "match",
		fmt.Sprintf("started match %d in ranking %d: %s(%d) challenges %s(%d)",
			match.ID, rankingID, match.Challenger, challengerID, match.Defender, defenderID))
	return match, nil
}

// Finish settles an ongoing match as one atomic unit: archive the finished
// snapshot, promote the winner if the ranking is in position mode, bump the
// player aggregates, award points (winner +2, loser +1, each plus their
// snapshotted bonus) and delete the ongoing row. Any failure rolls the whole
// unit back, leaving the match ongoing.
func (s *MatchService) Finish(ctx context.Context, matchID int, outcome MatchOutcome) (*models.FinishedMatch, error) {
	// Peek at the ranking id to pick the right lock; everything is re-read
	// inside the transaction once the lock is held.
	peek, err := s.ongoingRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrOngoingMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	lock := s.rankingLock(peek.RankingID)
	lock.Lock()
	defer lock.Unlock()

	var finished *models.FinishedMatch
	err = runInTx(ctx, s.db, func(tx repositories.SQLExecutor) error {
		match, err := s.ongoingRepo.GetByID(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrOngoingMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}

		challenger, err := s.playerRepo.GetByID(ctx, tx, match.ChallengerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return fmt.Errorf("%w: challenger %d", ErrPlayerNotFound, match.ChallengerID)
			}
			return err
		}
		defender, err := s.playerRepo.GetByID(ctx, tx, match.DefenderID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return fmt.Errorf("%w: defender %d", ErrPlayerNotFound, match.DefenderID)
			}
			return err
		}
		ranking, err := s.rankingRepo.GetByID(ctx, tx, match.RankingID)
		if err != nil {
			if errors.Is(err, repositories.ErrRankingNotFound) {
				return ErrRankingNotFound
			}
			return err
		}
		if ranking.Ended {
			return ErrRankingEnded
		}

		winner, loser, err := resolveWinner(match, challenger, defender, outcome)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		finished = &models.FinishedMatch{
			RankingID:    match.RankingID,
			Challenger:   match.Challenger,
			ChallengerID: match.ChallengerID,
			Defender:     match.Defender,
			DefenderID:   match.DefenderID,
			StartedAt:    match.StartedAt,
			FinishedAt:   now,
			Winner:       winner.player.Name,
			WinnerID:     winner.player.ID,
		}
		if outcome.scoreForm() {
			finished.ChallengerScore = outcome.ChallengerScore
			finished.DefenderScore = outcome.DefenderScore
		}
		if err := s.finishedRepo.Create(ctx, tx, finished); err != nil {
			return fmt.Errorf("failed to archive match %d: %w", matchID, err)
		}

		if err := s.promoter.Promote(ctx, tx, ranking, winner.player.ID, loser.player.ID, now); err != nil {
			return err
		}

		winner.player.Wins++
		loser.player.Losses++
		if outcome.scoreForm() {
			winner.player.SetsWon += winner.sets
			winner.player.SetsLost += loser.sets
			loser.player.SetsWon += loser.sets
			loser.player.SetsLost += winner.sets
		}
		if err := s.playerRepo.Update(ctx, tx, winner.player); err != nil {
			return fmt.Errorf("failed to update winner %d: %w", winner.player.ID, err)
		}
		if err := s.playerRepo.Update(ctx, tx, loser.player); err != nil {
			return fmt.Errorf("failed to update loser %d: %w", loser.player.ID, err)
		}

		if err := s.awardPoints(ctx, tx, match.RankingID, winner.player.ID, 2+winner.bonus, now); err != nil {
			return err
		}
		if err := s.awardPoints(ctx, tx, match.RankingID, loser.player.ID, 1+loser.bonus, now); err != nil {
			return err
		}

		return s.ongoingRepo.Delete(ctx, tx, matchID)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Event(ctx, models.LevelInfo, "match",
		fmt.Sprintf("finished match %d in ranking %d, winner %s(%d)",
			matchID, finished.RankingID, finished.Winner, finished.WinnerID))
	if s.publisher != nil {
		s.publisher.PublishRankingChanged(finished.RankingID)
	}
	return finished, nil
}

// ListByRanking returns the ranking's ongoing matches, oldest first.
func (s *MatchService) ListByRanking(ctx context.Context, rankingID int) ([]*models.OngoingMatch, error) {
	return s.ongoingRepo.ListByRanking(ctx, nil, rankingID)
}

// ListFinishedByRanking returns the ranking's archived matches, newest first.
func (s *MatchService) ListFinishedByRanking(ctx context.Context, rankingID int) ([]*models.FinishedMatch, error) {
	return s.finishedRepo.ListByRanking(ctx, nil, rankingID)
}

func (o MatchOutcome) scoreForm() bool {
	return o.ChallengerScore != nil && o.DefenderScore != nil
}

// matchSide pairs a player with their sets won and snapshotted bonus.
type matchSide struct {
	player *models.Player
	sets   int
	bonus  int
}

func resolveWinner(match *models.OngoingMatch, challenger, defender *models.Player, outcome MatchOutcome) (winner, loser matchSide, err error) {
	challengerSide := matchSide{player: challenger, bonus: match.ChallengerBonus}
	defenderSide := matchSide{player: defender, bonus: match.DefenderBonus}

	if outcome.scoreForm() {
		challengerSide.sets = *outcome.ChallengerScore
		defenderSide.sets = *outcome.DefenderScore
		switch {
		case challengerSide.sets > defenderSide.sets:
			return challengerSide, defenderSide, nil
		case defenderSide.sets > challengerSide.sets:
			return defenderSide, challengerSide, nil
		default:
			return matchSide{}, matchSide{}, ErrDrawNotSupported
		}
	}

	if outcome.WinnerID == nil {
		return matchSide{}, matchSide{}, fmt.Errorf("%w: either a winner id or both scores are required", ErrValidationFailed)
	}
	switch *outcome.WinnerID {
	case challenger.ID:
		return challengerSide, defenderSide, nil
	case defender.ID:
		return defenderSide, challengerSide, nil
	default:
		return matchSide{}, matchSide{}, ErrWinnerUnresolvable
	}
}

// awardPoints adds points to the player's standing in the match's ranking.
// A missing standing only costs the points, not the finish.
func (s *MatchService) awardPoints(ctx context.Context, tx repositories.SQLExecutor, rankingID, playerID, points int, now time.Time) error {
	standing, err := s.standingRepo.GetByPlayerAndRanking(ctx, tx, playerID, rankingID)
	if err != nil {
		if errors.Is(err, repositories.ErrStandingNotFound) {
			s.audit.Event(ctx, models.LevelWarning, "match",
				fmt.Sprintf("player %d has no standing in ranking %d, no points awarded", playerID, rankingID))
			return nil
		}
		return err
	}

	prev := standing.Points
	standing.PreviousPoints = &prev
	standing.Points += points
	standing.LastChanged = &now
	if err := s.standingRepo.Update(ctx, tx, standing); err != nil {
		return fmt.Errorf("failed to award %d points to player %d: %w", points, playerID, err)
	}
	return nil
}
