package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

func Connect(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &DB{db}, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		video_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		stage TEXT NOT NULL,
		error_message TEXT,
		started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS api_costs (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		service TEXT NOT NULL,
		cost_usd NUMERIC(12,6) NOT NULL,
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_costs_user ON api_costs (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs (status)`,
}

// Migrate applies the schema. Statements are idempotent so Migrate is safe to
// run on every boot.
func Migrate(db *DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
