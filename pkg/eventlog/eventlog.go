// Package eventlog persists scheduler runs and their per-task decisions to a
// SQLite audit log. Writes are best effort: callers log failures and move on
// rather than blocking a scheduling pass on the audit trail.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"overseer/pkg/engine"
)

// SchemaDDL creates the audit tables. Idempotent.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id         TEXT    NOT NULL UNIQUE,
    fired_by       TEXT    NOT NULL,
    max_start      INTEGER NOT NULL,
    ready_count    INTEGER NOT NULL,
    excluded_count INTEGER NOT NULL,
    created_at     TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%S', 'now'))
);

CREATE TABLE IF NOT EXISTS decisions (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id  TEXT NOT NULL,
    task_id TEXT NOT NULL,
    owner   TEXT NOT NULL,
    verdict TEXT NOT NULL,
    reason  TEXT NOT NULL,
    source  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
`

// Decision verdicts.
const (
	VerdictReady    = "ready"
	VerdictExcluded = "excluded"
)

// Run is one recorded scheduler pass.
type Run struct {
	ID            int64
	RunID         string
	Trigger       string
	MaxStart      int
	ReadyCount    int
	ExcludedCount int
	CreatedAt     time.Time
}

// Decision is one task verdict within a run.
type Decision struct {
	RunID   string
	TaskID  string
	Owner   string
	Verdict string
	Reason  string
	Source  string
}

// Log is a read-write handle to the audit database.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database and applies the schema.
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(SchemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the database connection. Safe to call multiple times.
func (l *Log) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// RecordRun writes one scheduler report and all of its decisions in a single
// transaction.
func (l *Log) RecordRun(ctx context.Context, rep engine.ReadyReport) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, fired_by, max_start, ready_count, excluded_count) VALUES (?, ?, ?, ?, ?)`,
		rep.RunID, rep.Trigger, rep.MaxStart, len(rep.ReadyTasks), len(rep.ExcludedTasks),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO decisions (run_id, task_id, owner, verdict, reason, source) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare decisions: %w", err)
	}
	defer stmt.Close()

	for _, ready := range rep.ReadyTasks {
		if _, err := stmt.ExecContext(ctx, rep.RunID, ready.TaskID, ready.Owner, VerdictReady, "", engine.SourceScheduler); err != nil {
			return fmt.Errorf("insert ready decision: %w", err)
		}
	}
	for _, excluded := range rep.ExcludedTasks {
		if _, err := stmt.ExecContext(ctx, rep.RunID, excluded.TaskID, excluded.Owner, VerdictExcluded, excluded.Reason, excluded.Source); err != nil {
			return fmt.Errorf("insert excluded decision: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}

// Reader provides read-only access to the audit database.
type Reader struct {
	db *sql.DB
}

// NewReader opens the audit database in read-only mode with WAL so readers
// never block a scheduler writing a run.
func NewReader(dbPath string) (*Reader, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("audit db not found: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}
	return &Reader{db: db}, nil
}

// Close releases the database connection. Safe to call multiple times.
func (r *Reader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RecentRuns returns the newest runs first. A limit of zero returns all.
func (r *Reader) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, run_id, fired_by, max_start, ready_count, excluded_count, created_at FROM runs ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(&run.ID, &run.RunID, &run.Trigger, &run.MaxStart, &run.ReadyCount, &run.ExcludedCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if createdAt != "" {
			parsed, err := time.Parse("2006-01-02 15:04:05", createdAt)
			if err != nil {
				parsed, err = time.Parse(time.RFC3339, createdAt)
				if err != nil {
					return nil, fmt.Errorf("parse created_at: %w", err)
				}
			}
			run.CreatedAt = parsed
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunDecisions returns every decision recorded for one run, ready verdicts
// first, in insertion order.
func (r *Reader) RunDecisions(ctx context.Context, runID string) ([]Decision, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, task_id, owner, verdict, reason, source FROM decisions WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.RunID, &d.TaskID, &d.Owner, &d.Verdict, &d.Reason, &d.Source); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return decisions, nil
}

// ExclusionCounts tallies excluded decisions per reason across the newest
// runLimit runs.
func (r *Reader) ExclusionCounts(ctx context.Context, runLimit int) (map[string]int, error) {
	query := `
SELECT d.reason, COUNT(*)
FROM decisions d
WHERE d.verdict = ? AND d.run_id IN (SELECT run_id FROM runs ORDER BY id DESC`
	if runLimit > 0 {
		query += fmt.Sprintf(" LIMIT %d", runLimit)
	}
	query += `)
GROUP BY d.reason`

	rows, err := r.db.QueryContext(ctx, strings.TrimSpace(query), VerdictExcluded)
	if err != nil {
		return nil, fmt.Errorf("query exclusion counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan exclusion count: %w", err)
		}
		counts[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exclusion counts: %w", err)
	}
	return counts, nil
}
