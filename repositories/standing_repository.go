package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ttleague/ladder-system/models"
)

var (
	ErrStandingNotFound = errors.New("standing not found")
	ErrStandingConflict = errors.New("player is already in this ranking")
)

type StandingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, standing *models.Standing) error
	GetByPlayerAndRanking(ctx context.Context, exec SQLExecutor, playerID, rankingID int) (*models.Standing, error)
	GetByPosition(ctx context.Context, exec SQLExecutor, rankingID, position int) (*models.Standing, error)
	ListByRanking(ctx context.Context, exec SQLExecutor, rankingID int) ([]*models.Standing, error)
	ListByPlayer(ctx context.Context, exec SQLExecutor, playerID int) ([]*models.Standing, error)
	MaxPosition(ctx context.Context, exec SQLExecutor, rankingID int) (int, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.Standing) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByPlayerAndRanking(ctx context.Context, exec SQLExecutor, playerID, rankingID int) error
	DeleteByRankingID(ctx context.Context, exec SQLExecutor, rankingID int) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const standingColumns = `id, player_id, ranking_id, position, points, previous_position, previous_points, last_changed`

func (r *postgresStandingRepository) Create(ctx context.Context, exec SQLExecutor, s *models.Standing) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO standings (player_id, ranking_id, position, points, previous_position, previous_points, last_changed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		s.PlayerID, s.RankingID, s.Position, s.Points, s.PreviousPosition, s.PreviousPoints, s.LastChanged,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err, "standings_player_id_ranking_id_key") {
			return ErrStandingConflict
		}
		return err
	}
	return nil
}

func (r *postgresStandingRepository) scanStanding(rowScanner interface{ Scan(...interface{}) error }) (*models.Standing, error) {
	s := &models.Standing{}
	err := rowScanner.Scan(
		&s.ID, &s.PlayerID, &s.RankingID, &s.Position, &s.Points,
		&s.PreviousPosition, &s.PreviousPoints, &s.LastChanged,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *postgresStandingRepository) GetByPlayerAndRanking(ctx context.Context, exec SQLExecutor, playerID, rankingID int) (*models.Standing, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx,
		`SELECT `+standingColumns+` FROM standings WHERE player_id = $1 AND ranking_id = $2`,
		playerID, rankingID)
	return r.scanStanding(row)
}

func (r *postgresStandingRepository) GetByPosition(ctx context.Context, exec SQLExecutor, rankingID, position int) (*models.Standing, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx,
		`SELECT `+standingColumns+` FROM standings WHERE ranking_id = $1 AND position = $2`,
		rankingID, position)
	return r.scanStanding(row)
}

// ListByRanking returns the ranking's standings ordered ascending by stored
// position. Callers that need points order re-sort the slice themselves.
func (r *postgresStandingRepository) ListByRanking(ctx context.Context, exec SQLExecutor, rankingID int) ([]*models.Standing, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT `+standingColumns+` FROM standings WHERE ranking_id = $1 ORDER BY position ASC, id ASC`,
		rankingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.Standing, 0)
	for rows.Next() {
		s, errScan := r.scanStanding(rows)
		if errScan != nil {
			return nil, errScan
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

func (r *postgresStandingRepository) ListByPlayer(ctx context.Context, exec SQLExecutor, playerID int) ([]*models.Standing, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT `+standingColumns+` FROM standings WHERE player_id = $1 ORDER BY ranking_id ASC`,
		playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.Standing, 0)
	for rows.Next() {
		s, errScan := r.scanStanding(rows)
		if errScan != nil {
			return nil, errScan
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

func (r *postgresStandingRepository) MaxPosition(ctx context.Context, exec SQLExecutor, rankingID int) (int, error) {
	executor := r.getExecutor(exec)
	var max sql.NullInt64
	err := executor.QueryRowContext(ctx,
		`SELECT MAX(position) FROM standings WHERE ranking_id = $1`, rankingID,
	).Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (r *postgresStandingRepository) Update(ctx context.Context, exec SQLExecutor, s *models.Standing) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE standings SET
			position = $1, points = $2, previous_position = $3, previous_points = $4, last_changed = $5
		WHERE id = $6`

	result, err := executor.ExecContext(ctx, query,
		s.Position, s.Points, s.PreviousPosition, s.PreviousPoints, s.LastChanged, s.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM standings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) DeleteByPlayerAndRanking(ctx context.Context, exec SQLExecutor, playerID, rankingID int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`DELETE FROM standings WHERE player_id = $1 AND ranking_id = $2`, playerID, rankingID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) DeleteByRankingID(ctx context.Context, exec SQLExecutor, rankingID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM standings WHERE ranking_id = $1`, rankingID)
	return err
}
