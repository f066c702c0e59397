// Package history keeps a sqlite record of every run and its case outcomes
// so flaky cases can be spotted across runs.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/rxharness/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Run is one recorded harness invocation.
type Run struct {
	ID        string
	Mode      string
	TestSet   string
	StartedAt time.Time
	Duration  time.Duration
	Total     int
	Passed    int
	Failed    int
}

// FlakyCase is a case that both passed and failed within the inspected runs.
type FlakyCase struct {
	CaseID   string
	Passes   int
	Failures int
	LastSeen time.Time
}

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared across statements.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement, backing off on "database is locked".
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SchemaVersion returns the highest applied schema version.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// RecordRun stores a run and its case results in one transaction and
// returns the generated run id.
func (s *Store) RecordRun(ctx context.Context, mode, testSet string, startedAt time.Time, summary models.RunSummary, results []models.CaseResult) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, test_set, started_at, duration_ms, total, passed, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, mode, testSet, startedAt.UTC(), summary.Duration.Milliseconds(),
		summary.Total, summary.Passed, summary.Failed,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO case_results (run_id, case_id, status, failed_stage, reason, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare case insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, id, r.Case.ID, string(r.Status), r.FailedStage, r.Reason, r.Duration.Milliseconds()); err != nil {
			return "", fmt.Errorf("insert case %s: %w", r.Case.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, test_set, started_at, duration_ms, total, passed, failed
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ms int64
		if err := rows.Scan(&r.ID, &r.Mode, &r.TestSet, &r.StartedAt, &ms, &r.Total, &r.Passed, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CaseHistory returns the statuses recorded for caseID, newest first.
func (s *Store) CaseHistory(ctx context.Context, caseID string, limit int) ([]models.CaseStatus, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.status FROM case_results c JOIN runs r ON r.id = c.run_id
		WHERE c.case_id = ? ORDER BY r.started_at DESC, r.rowid DESC LIMIT ?`, caseID, limit)
	if err != nil {
		return nil, fmt.Errorf("query case history: %w", err)
	}
	defer rows.Close()

	var statuses []models.CaseStatus
	for rows.Next() {
		var st string
		if err := rows.Scan(&st); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, models.CaseStatus(st))
	}
	return statuses, rows.Err()
}

// FlakyCases returns cases that both passed and did not pass within the
// last window runs of mode, ordered by failure count then id.
func (s *Store) FlakyCases(ctx context.Context, mode string, window int) ([]FlakyCase, error) {
	if window <= 0 {
		window = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`WITH recent AS (
			SELECT id, started_at FROM runs WHERE mode = ?
			ORDER BY started_at DESC, rowid DESC LIMIT ?
		)
		SELECT c.case_id,
			SUM(CASE WHEN c.status = ? THEN 1 ELSE 0 END) AS passes,
			SUM(CASE WHEN c.status != ? THEN 1 ELSE 0 END) AS failures,
			MAX(recent.started_at) AS last_seen
		FROM case_results c JOIN recent ON recent.id = c.run_id
		GROUP BY c.case_id
		HAVING passes > 0 AND failures > 0
		ORDER BY failures DESC, c.case_id ASC`,
		mode, window, string(models.CasePass), string(models.CasePass))
	if err != nil {
		return nil, fmt.Errorf("query flaky cases: %w", err)
	}
	defer rows.Close()

	var flaky []FlakyCase
	for rows.Next() {
		var f FlakyCase
		var last string
		if err := rows.Scan(&f.CaseID, &f.Passes, &f.Failures, &last); err != nil {
			return nil, fmt.Errorf("scan flaky case: %w", err)
		}
		f.LastSeen = parseTimestamp(last)
		flaky = append(flaky, f)
	}
	return flaky, rows.Err()
}

// parseTimestamp reads the text form go-sqlite3 stores for time.Time values.
// Aggregates lose the column's declared type so they come back as strings.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05Z",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
