// Package history keeps a local record of submitted parse jobs so the CLI
// can list past submissions without contacting the server. All job state of
// record lives server-side; this is a convenience cache only.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one remembered submission.
type Entry struct {
	JobID       string
	Filename    string
	Language    string
	LastStatus  string
	SubmittedAt time.Time
	CheckedAt   *time.Time
}

// Store is a SQLite-backed submission history.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the history database at dbPath and runs migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			job_id       TEXT PRIMARY KEY,
			filename     TEXT NOT NULL DEFAULT '',
			language     TEXT NOT NULL DEFAULT '',
			last_status  TEXT NOT NULL DEFAULT '',
			submitted_at DATETIME NOT NULL,
			checked_at   DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at);
	`)
	return err
}

// Record remembers a fresh submission. Re-recording the same job id updates
// the row instead of failing.
func (s *Store) Record(ctx context.Context, jobID, filename, language, status string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (job_id, filename, language, last_status, submitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			filename = excluded.filename,
			language = excluded.language,
			last_status = excluded.last_status
	`, jobID, filename, language, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record submission %s: %w", jobID, err)
	}
	return nil
}

// UpdateStatus stores the most recently observed status for a job. Jobs the
// store never saw are ignored so status checks for foreign jobs stay cheap.
func (s *Store) UpdateStatus(ctx context.Context, jobID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE submissions SET last_status = ?, checked_at = ? WHERE job_id = ?
	`, status, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("update status for %s: %w", jobID, err)
	}
	return nil
}

// List returns up to limit entries, most recent submission first. limit <= 0
// means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `
		SELECT job_id, filename, language, last_status, submitted_at, checked_at
		FROM submissions ORDER BY submitted_at DESC
	`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var checked sql.NullTime
		if err := rows.Scan(&e.JobID, &e.Filename, &e.Language, &e.LastStatus, &e.SubmittedAt, &checked); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if checked.Valid {
			t := checked.Time
			e.CheckedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
