package repositories

import (
	"context"
	"database/sql"

	"github.com/ttleague/ladder-system/models"
)

type AuthRepository interface {
	List(ctx context.Context, exec SQLExecutor) ([]*models.Authentication, error)
	Create(ctx context.Context, exec SQLExecutor, auth *models.Authentication) error
	Count(ctx context.Context, exec SQLExecutor) (int, error)
}

type postgresAuthRepository struct {
	db *sql.DB
}

func NewPostgresAuthRepository(db *sql.DB) AuthRepository {
	return &postgresAuthRepository{db: db}
}

func (r *postgresAuthRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAuthRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Authentication, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `SELECT id, name, password_hash FROM authentications ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	auths := make([]*models.Authentication, 0)
	for rows.Next() {
		a := &models.Authentication{}
		if err := rows.Scan(&a.ID, &a.Name, &a.PasswordHash); err != nil {
			return nil, err
		}
		auths = append(auths, a)
	}
	return auths, rows.Err()
}

func (r *postgresAuthRepository) Create(ctx context.Context, exec SQLExecutor, auth *models.Authentication) error {
	executor := r.getExecutor(exec)
	return executor.QueryRowContext(ctx,
		`INSERT INTO authentications (name, password_hash) VALUES ($1, $2) RETURNING id`,
		auth.Name, auth.PasswordHash,
	).Scan(&auth.ID)
}

func (r *postgresAuthRepository) Count(ctx context.Context, exec SQLExecutor) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM authentications`).Scan(&count)
	return count, err
}
