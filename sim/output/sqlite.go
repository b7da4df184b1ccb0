package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cervical-sim/cervical-sim/sim/record"
)

// SQLiteWriter stores runs in a SQLite database. Several runs may share one file;
// rows are keyed by run id.
type SQLiteWriter struct {
	path string
}

// NewSQLiteWriter creates a writer for the database at path.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{path: path}
}

// Path returns the database file.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// Write stores the run, its state changes, and its events in one transaction.
func (w *SQLiteWriter) Write(ctx context.Context, run Run, rec *record.Recorder) error {
	if w.path == "" {
		return errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", w.path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insertRun(ctx, tx, run, rec); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func createTables(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		iteration INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		started TEXT NOT NULL,
		finished TEXT NOT NULL,
		months INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		living INTEGER NOT NULL,
		cancer_cases INTEGER NOT NULL,
		cancer_deaths INTEGER NOT NULL,
		total_cost REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS state_changes (
		run_id TEXT NOT NULL,
		time INTEGER NOT NULL,
		agent INTEGER NOT NULL,
		state TEXT NOT NULL,
		from_value INTEGER NOT NULL,
		to_value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		run_id TEXT NOT NULL,
		time INTEGER NOT NULL,
		agent INTEGER NOT NULL,
		event TEXT NOT NULL,
		cost REAL NOT NULL
	);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func insertRun(ctx context.Context, tx *sql.Tx, run Run, rec *record.Recorder) error {
	id := run.ID.String()
	s := run.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, iteration, seed, started, finished,
			months, agents, living, cancer_cases, cancer_deaths, total_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, run.Scenario, run.Iteration, run.Seed,
		run.Started.UTC().Format(timeLayout), run.Finished.UTC().Format(timeLayout),
		s.Months, s.Agents, s.Living, s.CancerCases, s.CancerDeaths, s.TotalCost); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO state_changes (run_id, time, agent, state, from_value, to_value) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range rec.StateChanges {
		if _, err := stmt.ExecContext(ctx, id, c.Time, c.Agent, c.State, c.From, c.To); err != nil {
			return fmt.Errorf("insert state change: %w", err)
		}
	}

	evStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (run_id, time, agent, event, cost) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer evStmt.Close()
	for _, ev := range rec.Events {
		if _, err := evStmt.ExecContext(ctx, id, ev.Time, ev.Agent, ev.Kind.String(), ev.Cost); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return nil
}
