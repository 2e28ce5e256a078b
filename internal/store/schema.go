package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 2

// schemaV1 is the initial schema for the results index.
const schemaV1 = `
-- One row per invocation of the experiment runner
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    experiment TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT
);

-- One row per condition (output directory) in a run
CREATE TABLE IF NOT EXISTS conditions (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    dir TEXT NOT NULL,
    config_hash TEXT,
    config_yaml TEXT,
    error TEXT,           -- non-empty when the condition was aborted
    PRIMARY KEY (run_id, dir)
);

-- Per-trial evaluation summaries
CREATE TABLE IF NOT EXISTS trials (
    run_id TEXT NOT NULL,
    dir TEXT NOT NULL,
    trial INTEGER NOT NULL,
    correct REAL NOT NULL,
    reward REAL NOT NULL,
    PRIMARY KEY (run_id, dir, trial),
    FOREIGN KEY (run_id, dir) REFERENCES conditions(run_id, dir) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_trials_dir ON trials(dir);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// migrations[v] upgrades a database from version v to v+1.
var migrations = map[int]string{
	// v2: nontrivial-signaling score filled in by analysis
	1: `ALTER TABLE trials ADD COLUMN nontrivial INTEGER;`,
}

// InitSchema creates the schema on a fresh database and applies pending
// migrations on an existing one.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		currentVersion = 1
	}

	if currentVersion < SchemaVersion {
		if err := migrateSchema(ctx, db, currentVersion); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// getSchemaVersion returns the current schema version from the database.
// Returns an error if the schema_version table doesn't exist.
func getSchemaVersion(ctx context.Context, db *sqlx.DB) (int, error) {
	var version int
	if err := db.GetContext(ctx, &version, `SELECT MAX(version) FROM schema_version`); err != nil {
		return 0, err
	}
	return version, nil
}

// createSchema creates the version 1 schema.
func createSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (1, datetime('now'))`); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// migrateSchema applies migrations from currentVersion to SchemaVersion.
func migrateSchema(ctx context.Context, db *sqlx.DB, currentVersion int) error {
	for v := currentVersion; v < SchemaVersion; v++ {
		stmt, ok := migrations[v]
		if !ok {
			return fmt.Errorf("no migration from version %d", v)
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d -> %d: %w", v, v+1, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
