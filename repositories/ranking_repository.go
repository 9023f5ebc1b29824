package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ttleague/ladder-system/models"
)

var (
	ErrRankingNotFound     = errors.New("ranking not found")
	ErrRankingNameConflict = errors.New("ranking name is already taken")
)

type RankingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, ranking *models.Ranking) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Ranking, error)
	List(ctx context.Context, exec SQLExecutor) ([]*models.Ranking, error)
	Update(ctx context.Context, exec SQLExecutor, ranking *models.Ranking) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	ListExpired(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Ranking, error)
	MarkEnded(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresRankingRepository struct {
	db *sql.DB
}

func NewPostgresRankingRepository(db *sql.DB) RankingRepository {
	return &postgresRankingRepository{db: db}
}

func (r *postgresRankingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRankingRepository) Create(ctx context.Context, exec SQLExecutor, rk *models.Ranking) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rankings (name, description, is_tournament, tournament_type, sort_mode, ends_on, ended)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		rk.Name, rk.Description, rk.IsTournament, rk.TournamentType, rk.SortMode, rk.EndsOn, rk.Ended,
	).Scan(&rk.ID, &rk.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "rankings_name_key") {
			return ErrRankingNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresRankingRepository) scanRanking(rowScanner interface{ Scan(...interface{}) error }) (*models.Ranking, error) {
	rk := &models.Ranking{}
	err := rowScanner.Scan(
		&rk.ID, &rk.Name, &rk.Description, &rk.IsTournament, &rk.TournamentType,
		&rk.SortMode, &rk.EndsOn, &rk.Ended, &rk.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRankingNotFound
		}
		return nil, err
	}
	return rk, nil
}

const rankingColumns = `id, name, description, is_tournament, tournament_type, sort_mode, ends_on, ended, created_at`

func (r *postgresRankingRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Ranking, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+rankingColumns+` FROM rankings WHERE id = $1`, id)
	return r.scanRanking(row)
}

func (r *postgresRankingRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Ranking, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `SELECT `+rankingColumns+` FROM rankings ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rankings := make([]*models.Ranking, 0)
	for rows.Next() {
		rk, errScan := r.scanRanking(rows)
		if errScan != nil {
			return nil, errScan
		}
		rankings = append(rankings, rk)
	}
	return rankings, rows.Err()
}

func (r *postgresRankingRepository) Update(ctx context.Context, exec SQLExecutor, rk *models.Ranking) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE rankings SET
			name = $1, description = $2, is_tournament = $3, tournament_type = $4,
			sort_mode = $5, ends_on = $6, ended = $7
		WHERE id = $8`

	result, err := executor.ExecContext(ctx, query,
		rk.Name, rk.Description, rk.IsTournament, rk.TournamentType,
		rk.SortMode, rk.EndsOn, rk.Ended, rk.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "rankings_name_key") {
			return ErrRankingNameConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrRankingNotFound)
}

func (r *postgresRankingRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM rankings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRankingNotFound)
}

// ListExpired returns not-yet-ended rankings whose ends_on has passed.
func (r *postgresRankingRepository) ListExpired(ctx context.Context, exec SQLExecutor, now time.Time) ([]*models.Ranking, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + rankingColumns + ` FROM rankings
		WHERE ended = FALSE AND ends_on IS NOT NULL AND ends_on <= $1
		ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rankings := make([]*models.Ranking, 0)
	for rows.Next() {
		rk, errScan := r.scanRanking(rows)
		if errScan != nil {
			return nil, errScan
		}
		rankings = append(rankings, rk)
	}
	return rankings, rows.Err()
}

func (r *postgresRankingRepository) MarkEnded(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE rankings SET ended = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRankingNotFound)
}
