package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ttleague/ladder-system/models"
)

var ErrOngoingMatchNotFound = errors.New("ongoing match not found")

type OngoingMatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.OngoingMatch) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.OngoingMatch, error)
	ListByRanking(ctx context.Context, exec SQLExecutor, rankingID int) ([]*models.OngoingMatch, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	DeleteByRankingID(ctx context.Context, exec SQLExecutor, rankingID int) error
	DeleteByPlayerID(ctx context.Context, exec SQLExecutor, playerID int) error
}

type postgresOngoingMatchRepository struct {
	db *sql.DB
}

func NewPostgresOngoingMatchRepository(db *sql.DB) OngoingMatchRepository {
	return &postgresOngoingMatchRepository{db: db}
}

func (r *postgresOngoingMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const ongoingColumns = `id, ranking_id, challenger, challenger_id, defender, defender_id, challenger_bonus, defender_bonus, started_at`

func (r *postgresOngoingMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.OngoingMatch) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO ongoing_matches
			(ranking_id, challenger, challenger_id, defender, defender_id, challenger_bonus, defender_bonus, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		m.RankingID, m.Challenger, m.ChallengerID, m.Defender, m.DefenderID,
		m.ChallengerBonus, m.DefenderBonus, m.StartedAt,
	).Scan(&m.ID)
}

func (r *postgresOngoingMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.OngoingMatch, error) {
	m := &models.OngoingMatch{}
	err := rowScanner.Scan(
		&m.ID, &m.RankingID, &m.Challenger, &m.ChallengerID, &m.Defender, &m.DefenderID,
		&m.ChallengerBonus, &m.DefenderBonus, &m.StartedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOngoingMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresOngoingMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.OngoingMatch, error) {
	executor := r.getExecutor(exec)
	row := executor.QueryRowContext(ctx, `SELECT `+ongoingColumns+` FROM ongoing_matches WHERE id = $1`, id)
	return r.scanMatch(row)
}

func (r *postgresOngoingMatchRepository) ListByRanking(ctx context.Context, exec SQLExecutor, rankingID int) ([]*models.OngoingMatch, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT `+ongoingColumns+` FROM ongoing_matches WHERE ranking_id = $1 ORDER BY started_at ASC`,
		rankingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.OngoingMatch, 0)
	for rows.Next() {
		m, errScan := r.scanMatch(rows)
		if errScan != nil {
			return nil, errScan
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresOngoingMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM ongoing_matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrOngoingMatchNotFound)
}

func (r *postgresOngoingMatchRepository) DeleteByRankingID(ctx context.Context, exec SQLExecutor, rankingID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM ongoing_matches WHERE ranking_id = $1`, rankingID)
	return err
}

func (r *postgresOngoingMatchRepository) DeleteByPlayerID(ctx context.Context, exec SQLExecutor, playerID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`DELETE FROM ongoing_matches WHERE challenger_id = $1 OR defender_id = $1`, playerID)
	return err
}
