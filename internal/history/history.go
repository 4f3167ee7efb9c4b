package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is bumped whenever the table shape changes. The history file
// is derived data, so a mismatch just means delete and start over.
const schemaVersion = 1

// ErrSchemaMismatch indicates the history database was written by a
// different version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

const schemaSQL = `
CREATE TABLE schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE job_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL,
    link_count INTEGER NOT NULL,
    artifact_count INTEGER NOT NULL,
    duration_minutes REAL NOT NULL,
    recorded_at TEXT NOT NULL
);

CREATE INDEX idx_job_history_recorded_at ON job_history(recorded_at);
`

// Entry is one completed job's footprint, used by the time estimator.
type Entry struct {
	JobID           string
	LinkCount       int
	ArtifactCount   int
	DurationMinutes float64
	RecordedAt      time.Time
}

// Recorder persists completed-job entries in a single SQLite file and trims
// the table to a fixed retention count.
type Recorder struct {
	db     *sql.DB
	path   string
	retain int
}

// Open initializes or connects to the history database at the given path.
// retain caps how many entries survive; older rows are pruned on insert.
func Open(path string, retain int) (*Recorder, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is empty")
	}
	if retain <= 0 {
		retain = 20
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	r := &Recorder{db: db, path: path, retain: retain}
	if err := r.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the underlying database connection.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Path returns the database file location.
func (r *Recorder) Path() string { return r.path }

func (r *Recorder) initSchema(ctx context.Context) error {
	var tableExists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return r.createSchema(ctx)
	}

	var version int
	if err := r.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read history schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the history file to reset)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (r *Recorder) createSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record history schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history schema: %w", err)
	}
	return nil
}

// Record appends one entry and prunes rows beyond the retention count.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.JobID) == "" {
		return errors.New("history entry missing job id")
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO job_history (job_id, link_count, artifact_count, duration_minutes, recorded_at)
         VALUES (?, ?, ?, ?, ?)`,
		entry.JobID, entry.LinkCount, entry.ArtifactCount, entry.DurationMinutes,
		entry.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM job_history WHERE id NOT IN (
            SELECT id FROM job_history ORDER BY id DESC LIMIT ?
        )`, r.retain)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history entry: %w", err)
	}
	return nil
}

// Recent returns the retained entries, newest first.
func (r *Recorder) Recent(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT job_id, link_count, artifact_count, duration_minutes, recorded_at
         FROM job_history ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var recordedAt string
		if err := rows.Scan(&entry.JobID, &entry.LinkCount, &entry.ArtifactCount, &entry.DurationMinutes, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, recordedAt); parseErr == nil {
			entry.RecordedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
