package repositories

import (
	"context"
	"database/sql"

	"github.com/ttleague/ladder-system/models"
)

type LogRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.LogEntry) error
	List(ctx context.Context, exec SQLExecutor, limit int) ([]*models.LogEntry, error)
	DeleteAll(ctx context.Context, exec SQLExecutor) error
}

type postgresLogRepository struct {
	db *sql.DB
}

func NewPostgresLogRepository(db *sql.DB) LogRepository {
	return &postgresLogRepository{db: db}
}

func (r *postgresLogRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLogRepository) Create(ctx context.Context, exec SQLExecutor, e *models.LogEntry) error {
	executor := r.getExecutor(exec)
	return executor.QueryRowContext(ctx,
		`INSERT INTO log_entries (level, origin, message) VALUES ($1, $2, $3) RETURNING id, created_at`,
		e.Level, e.Origin, e.Message,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *postgresLogRepository) List(ctx context.Context, exec SQLExecutor, limit int) ([]*models.LogEntry, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT id, level, origin, message, created_at FROM log_entries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.LogEntry, 0)
	for rows.Next() {
		e := &models.LogEntry{}
		if err := rows.Scan(&e.ID, &e.Level, &e.Origin, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresLogRepository) DeleteAll(ctx context.Context, exec SQLExecutor) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM log_entries`)
	return err
}
