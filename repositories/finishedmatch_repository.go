package repositories

import (
	"context"
	"database/sql"

	"github.com/ttleague/ladder-system/models"
)

// FinishedMatchRepository is append-only apart from cascade deletion; archived
// matches are never updated.
type FinishedMatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.FinishedMatch) error
	ListByRanking(ctx context.Context, exec SQLExecutor, rankingID int) ([]*models.FinishedMatch, error)
	DeleteByRankingID(ctx context.Context, exec SQLExecutor, rankingID int) error
}

type postgresFinishedMatchRepository struct {
	db *sql.DB
}

func NewPostgresFinishedMatchRepository(db *sql.DB) FinishedMatchRepository {
	return &postgresFinishedMatchRepository{db: db}
}

func (r *postgresFinishedMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresFinishedMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.FinishedMatch) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO finished_matches
			(ranking_id, challenger, challenger_id, defender, defender_id,
			 started_at, finished_at, winner, winner_id, challenger_score, defender_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		m.RankingID, m.Challenger, m.ChallengerID, m.Defender, m.DefenderID,
		m.StartedAt, m.FinishedAt, m.Winner, m.WinnerID, m.ChallengerScore, m.DefenderScore,
	).Scan(&m.ID)
}

func (r *postgresFinishedMatchRepository) ListByRanking(ctx context.Context, exec SQLExecutor, rankingID int) ([]*models.FinishedMatch, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, ranking_id, challenger, challenger_id, defender, defender_id,
		       started_at, finished_at, winner, winner_id, challenger_score, defender_score
		FROM finished_matches
		WHERE ranking_id = $1
		ORDER BY finished_at DESC`

	rows, err := executor.QueryContext(ctx, query, rankingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.FinishedMatch, 0)
	for rows.Next() {
		m := &models.FinishedMatch{}
		err := rows.Scan(
			&m.ID, &m.RankingID, &m.Challenger, &m.ChallengerID, &m.Defender, &m.DefenderID,
			&m.StartedAt, &m.FinishedAt, &m.Winner, &m.WinnerID, &m.ChallengerScore, &m.DefenderScore,
		)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresFinishedMatchRepository) DeleteByRankingID(ctx context.Context, exec SQLExecutor, rankingID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM finished_matches WHERE ranking_id = $1`, rankingID)
	return err
}
