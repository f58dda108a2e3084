package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// Migrate brings the schema up to schemaVersion, tracked in PRAGMA user_version.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	if v >= schemaVersion {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS tracked_jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  external_id TEXT NOT NULL,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  listing TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL CHECK (status IN ('interested','applied','interview','rejected','accepted')),
  notes TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`); err != nil {
		return fmt.Errorf("store: create tracked_jobs: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS status_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  tracked_job_id INTEGER NOT NULL REFERENCES tracked_jobs(id) ON DELETE CASCADE,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  at INTEGER NOT NULL
);
`); err != nil {
		return fmt.Errorf("store: create status_log: %w", err)
	}

	// ---- Schema v1: indexes ----

	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tracked_jobs_external_id ON tracked_jobs(external_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_jobs_status ON tracked_jobs(status);`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_jobs_updated_at ON tracked_jobs(updated_at);`,
		`CREATE INDEX IF NOT EXISTS idx_status_log_job ON status_log(tracked_job_id, id);`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create index: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return fmt.Errorf("store: set schema version: %w", err)
	}

	return tx.Commit()
}
