package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ttleague/ladder-system/repositories"
)

// runInTx executes fn inside one transaction: every row change commits
// together or none do. Panics roll back and re-raise.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx repositories.SQLExecutor) error) error {
	if db == nil {
		// In-memory repositories carry no transactional store.
		return fn(nil)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
