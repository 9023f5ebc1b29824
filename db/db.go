package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // Import postgres driver
)

func Connect(dsn string, timeout time.Duration, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	// Connection pool sized for a small-club deployment.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close database handle after ping error", slog.Any("error", closeErr))
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return db, nil
}

// EnsureSchema creates the ladder tables when they do not exist yet. The
// statements mirror exactly what the repositories read and write.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id        SERIAL PRIMARY KEY,
			name      TEXT NOT NULL,
			wins      INTEGER NOT NULL DEFAULT 0,
			losses    INTEGER NOT NULL DEFAULT 0,
			sets_won  INTEGER NOT NULL DEFAULT 0,
			sets_lost INTEGER NOT NULL DEFAULT 0,
			CONSTRAINT players_name_key UNIQUE (name)
		)`,
		`CREATE TABLE IF NOT EXISTS rankings (
			id              SERIAL PRIMARY KEY,
			name            TEXT NOT NULL,
			description     TEXT,
			is_tournament   BOOLEAN NOT NULL DEFAULT FALSE,
			tournament_type TEXT,
			sort_mode       TEXT NOT NULL DEFAULT 'position',
			ends_on         TIMESTAMPTZ,
			ended           BOOLEAN NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT rankings_name_key UNIQUE (name)
		)`,
		`CREATE TABLE IF NOT EXISTS standings (
			id                SERIAL PRIMARY KEY,
			player_id         INTEGER NOT NULL,
			ranking_id        INTEGER NOT NULL REFERENCES rankings (id),
			position          INTEGER NOT NULL,
			points            INTEGER NOT NULL DEFAULT 0,
			previous_position INTEGER,
			previous_points   INTEGER,
			last_changed      TIMESTAMPTZ,
			CONSTRAINT standings_player_id_ranking_id_key UNIQUE (player_id, ranking_id)
		)`,
		`CREATE TABLE IF NOT EXISTS bonus_rules (
			id                 SERIAL PRIMARY KEY,
			player_id          INTEGER NOT NULL UNIQUE,
			amount             INTEGER NOT NULL,
			operator           TEXT NOT NULL,
			threshold_position INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ongoing_matches (
			id               SERIAL PRIMARY KEY,
			ranking_id       INTEGER NOT NULL REFERENCES rankings (id),
			challenger       TEXT NOT NULL,
			challenger_id    INTEGER NOT NULL,
			defender         TEXT NOT NULL,
			defender_id      INTEGER NOT NULL,
			challenger_bonus INTEGER NOT NULL DEFAULT 0,
			defender_bonus   INTEGER NOT NULL DEFAULT 0,
			started_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS finished_matches (
			id               SERIAL PRIMARY KEY,
			ranking_id       INTEGER NOT NULL REFERENCES rankings (id),
			challenger       TEXT NOT NULL,
			challenger_id    INTEGER NOT NULL,
			defender         TEXT NOT NULL,
			defender_id      INTEGER NOT NULL,
			started_at       TIMESTAMPTZ NOT NULL,
			finished_at      TIMESTAMPTZ NOT NULL,
			winner           TEXT NOT NULL,
			winner_id        INTEGER NOT NULL,
			challenger_score INTEGER,
			defender_score   INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS authentications (
			id            SERIAL PRIMARY KEY,
			name          TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS log_entries (
			id         SERIAL PRIMARY KEY,
			level      TEXT NOT NULL,
			origin     TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
