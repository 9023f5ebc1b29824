package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ttleague/ladder-system/models"
)

var ErrBonusRuleNotFound = errors.New("bonus rule not found")

type BonusRuleRepository interface {
	GetByPlayerID(ctx context.Context, exec SQLExecutor, playerID int) (*models.BonusRule, error)
	Upsert(ctx context.Context, exec SQLExecutor, rule *models.BonusRule) error
	DeleteByPlayerID(ctx context.Context, exec SQLExecutor, playerID int) error
}

type postgresBonusRuleRepository struct {
	db *sql.DB
}

func NewPostgresBonusRuleRepository(db *sql.DB) BonusRuleRepository {
	return &postgresBonusRuleRepository{db: db}
}

func (r *postgresBonusRuleRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBonusRuleRepository) GetByPlayerID(ctx context.Context, exec SQLExecutor, playerID int) (*models.BonusRule, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, player_id, amount, operator, threshold_position
		FROM bonus_rules
		WHERE player_id = $1`

	rule := &models.BonusRule{}
	err := executor.QueryRowContext(ctx, query, playerID).Scan(
		&rule.ID, &rule.PlayerID, &rule.Amount, &rule.Operator, &rule.ThresholdPosition,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBonusRuleNotFound
		}
		return nil, err
	}
	return rule, nil
}

// Upsert keeps the one-rule-per-player invariant at the database level.
func (r *postgresBonusRuleRepository) Upsert(ctx context.Context, exec SQLExecutor, rule *models.BonusRule) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO bonus_rules (player_id, amount, operator, threshold_position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			operator = EXCLUDED.operator,
			threshold_position = EXCLUDED.threshold_position
		RETURNING id`

	return executor.QueryRowContext(ctx, query,
		rule.PlayerID, rule.Amount, rule.Operator, rule.ThresholdPosition,
	).Scan(&rule.ID)
}

func (r *postgresBonusRuleRepository) DeleteByPlayerID(ctx context.Context, exec SQLExecutor, playerID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM bonus_rules WHERE player_id = $1`, playerID)
	return err
}
