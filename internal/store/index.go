package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nvandessel/compsig/internal/config"
	"github.com/nvandessel/compsig/internal/game"

	_ "modernc.org/sqlite" // SQLite driver
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// ErrNoRuns is returned when the index holds no runs.
var ErrNoRuns = errors.New("no runs recorded")

// Index is the SQLite results index under <root>/.compsig/results.db.
// It records every run, condition, and trial summary so analysis can join
// results with their configurations without rescanning output directories.
type Index struct {
	db   *sqlx.DB
	path string
}

// RunRow is one experiment run.
type RunRow struct {
	ID         string         `db:"id" json:"id"`
	Experiment string         `db:"experiment" json:"experiment"`
	StartedAt  string         `db:"started_at" json:"started_at"`
	FinishedAt sql.NullString `db:"finished_at" json:"-"`
}

// ConditionRow is one condition of a run.
type ConditionRow struct {
	RunID      string         `db:"run_id" json:"run_id"`
	Dir        string         `db:"dir" json:"dir"`
	ConfigHash sql.NullString `db:"config_hash" json:"-"`
	ConfigYAML sql.NullString `db:"config_yaml" json:"-"`
	Error      sql.NullString `db:"error" json:"-"`
}

// TrialRow is one trial summary joined with its condition's configuration.
type TrialRow struct {
	RunID      string         `db:"run_id" json:"run_id"`
	Dir        string         `db:"dir" json:"dir"`
	Trial      int            `db:"trial" json:"trial"`
	Correct    float64        `db:"correct" json:"correct"`
	Reward     float64        `db:"reward" json:"reward"`
	Nontrivial sql.NullInt64  `db:"nontrivial" json:"-"`
	ConfigYAML sql.NullString `db:"config_yaml" json:"-"`
}

// Config decodes the condition configuration joined onto the row.
func (r TrialRow) Config() (config.Configuration, error) {
	if !r.ConfigYAML.Valid {
		return config.Configuration{}, fmt.Errorf("trial %s/%d has no configuration snapshot", r.Dir, r.Trial)
	}
	return config.UnmarshalSnapshot([]byte(r.ConfigYAML.String))
}

// TrialFilter narrows Trials. Empty fields match everything.
type TrialFilter struct {
	RunID string
	Dir   string
}

// OpenIndex opens or creates the results index under root.
func OpenIndex(root string) (*Index, error) {
	path := IndexPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Index{db: db, path: path}, nil
}

// Path returns the index file path.
func (ix *Index) Path() string { return ix.path }

// Close closes the database.
func (ix *Index) Close() error { return ix.db.Close() }

// StartRun records a new run and returns its id.
func (ix *Index) StartRun(ctx context.Context, experiment string) (string, error) {
	id := uuid.NewString()
	_, err := ix.db.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, started_at) VALUES (?, ?, ?)`,
		id, experiment, now())
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// FinishRun stamps a run's completion time.
func (ix *Index) FinishRun(ctx context.Context, runID string) error {
	_, err := ix.db.ExecContext(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`, now(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RecordCondition stores a condition's configuration, or the error that
// aborted it.
func (ix *Index) RecordCondition(ctx context.Context, runID, dir string, cfg config.Configuration, condErr error) error {
	row := map[string]any{
		"run_id":      runID,
		"dir":         dir,
		"config_hash": nil,
		"config_yaml": nil,
		"error":       nil,
	}
	if condErr != nil {
		row["error"] = condErr.Error()
	} else {
		data, err := config.MarshalSnapshot(cfg)
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		hash, err := cfg.Hash()
		if err != nil {
			return err
		}
		row["config_hash"] = hash
		row["config_yaml"] = string(data)
	}

	_, err := ix.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO conditions (run_id, dir, config_hash, config_yaml, error)
		VALUES (:run_id, :dir, :config_hash, :config_yaml, :error)`, row)
	if err != nil {
		return fmt.Errorf("failed to record condition %s: %w", dir, err)
	}
	return nil
}

// RecordTrials stores a condition's trial summaries in one transaction.
func (ix *Index) RecordTrials(ctx context.Context, runID, dir string, summaries []game.Summary) error {
	tx, err := ix.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range summaries {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO trials (run_id, dir, trial, correct, reward)
			VALUES (?, ?, ?, ?, ?)`,
			runID, dir, s.Trial, s.Correct, s.Reward); err != nil {
			return fmt.Errorf("failed to record trial %d: %w", s.Trial, err)
		}
	}
	return tx.Commit()
}

// SetNontrivial stores a trial's nontrivial-signaling score.
func (ix *Index) SetNontrivial(ctx context.Context, runID, dir string, trial, score int) error {
	res, err := ix.db.ExecContext(ctx,
		`UPDATE trials SET nontrivial = ? WHERE run_id = ? AND dir = ? AND trial = ?`,
		score, runID, dir, trial)
	if err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trial %s/%d not found in run %s", dir, trial, runID)
	}
	return nil
}

// LatestRun returns the most recently started run.
func (ix *Index) LatestRun(ctx context.Context) (RunRow, error) {
	var run RunRow
	err := ix.db.GetContext(ctx, &run,
		`SELECT id, experiment, started_at, finished_at FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRow{}, ErrNoRuns
	}
	if err != nil {
		return RunRow{}, fmt.Errorf("failed to query runs: %w", err)
	}
	return run, nil
}

// LastRunForDir returns the id of the most recently started run that
// recorded dir. Its artifacts are the ones currently on disk.
func (ix *Index) LastRunForDir(ctx context.Context, dir string) (string, error) {
	var id string
	err := ix.db.GetContext(ctx, &id, `
		SELECT c.run_id FROM conditions c
		JOIN runs r ON r.id = c.run_id
		WHERE c.dir = ?
		ORDER BY r.started_at DESC, r.rowid DESC LIMIT 1`, dir)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("failed to query runs for %s: %w", dir, err)
	}
	return id, nil
}

// Runs lists all runs, newest first.
func (ix *Index) Runs(ctx context.Context) ([]RunRow, error) {
	var runs []RunRow
	if err := ix.db.SelectContext(ctx, &runs,
		`SELECT id, experiment, started_at, finished_at FROM runs ORDER BY started_at DESC, rowid DESC`); err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	return runs, nil
}

// Conditions lists a run's conditions ordered by directory.
func (ix *Index) Conditions(ctx context.Context, runID string) ([]ConditionRow, error) {
	var rows []ConditionRow
	if err := ix.db.SelectContext(ctx, &rows, `
		SELECT run_id, dir, config_hash, config_yaml, error
		FROM conditions WHERE run_id = ? ORDER BY dir`, runID); err != nil {
		return nil, fmt.Errorf("failed to query conditions: %w", err)
	}
	return rows, nil
}

// Trials lists trial summaries joined with their configuration snapshots.
func (ix *Index) Trials(ctx context.Context, filter TrialFilter) ([]TrialRow, error) {
	query := `
		SELECT t.run_id, t.dir, t.trial, t.correct, t.reward, t.nontrivial, c.config_yaml
		FROM trials t
		JOIN conditions c ON c.run_id = t.run_id AND c.dir = t.dir
		WHERE (? = '' OR t.run_id = ?) AND (? = '' OR t.dir = ?)
		ORDER BY t.dir, t.trial`
	var rows []TrialRow
	if err := ix.db.SelectContext(ctx, &rows, query,
		filter.RunID, filter.RunID, filter.Dir, filter.Dir); err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	return rows, nil
}

func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z")
}
