package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

func Connect(connStr string) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the schema when it does not exist yet. Test case
// inputs/outputs are stored as JSONB arrays alongside their problem.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS contests (
			contest_id  TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_time  TIMESTAMPTZ NOT NULL,
			end_time    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS problems (
			contest_id         TEXT NOT NULL REFERENCES contests(contest_id),
			problem_id         TEXT NOT NULL,
			title              TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			input_test_cases   JSONB NOT NULL,
			expected_outputs   JSONB NOT NULL,
			time_limit_seconds INT NOT NULL,
			memory_limit_mb    INT NOT NULL,
			sort_order         INT NOT NULL,
			PRIMARY KEY (contest_id, problem_id)
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id                TEXT PRIMARY KEY,
			username          TEXT NOT NULL,
			contest_id        TEXT NOT NULL,
			problem_id        TEXT NOT NULL,
			code              TEXT NOT NULL,
			language          TEXT NOT NULL,
			status            TEXT NOT NULL,
			error_message     TEXT,
			test_cases_passed INT,
			total_test_cases  INT,
			submitted_at      TIMESTAMPTZ NOT NULL,
			processed_at      TIMESTAMPTZ,
			claimed_at        TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_contest ON submissions (contest_id, submitted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions (status, claimed_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
