package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded backup run.
type Entry struct {
	ID              int64     `json:"id"`
	RunID           string    `json:"run_id"`
	DriveID         int       `json:"drive_id"`
	DriveLetter     string    `json:"drive_letter"`
	DiscName        string    `json:"disc_name"`
	DiscType        string    `json:"disc_type"`
	FingerprintType string    `json:"fingerprint_type"`
	OutputDir       string    `json:"output_dir"`
	Success         bool      `json:"success"`
	SavedTitles     int       `json:"saved_titles"`
	FailedTitles    int       `json:"failed_titles"`
	RecoveryPercent float64   `json:"recovery_percent"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS backup_runs (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id           TEXT NOT NULL UNIQUE,
    drive_id         INTEGER NOT NULL,
    drive_letter     TEXT NOT NULL,
    disc_name        TEXT NOT NULL,
    disc_type        TEXT NOT NULL DEFAULT '',
    fingerprint_type TEXT NOT NULL DEFAULT '',
    output_dir       TEXT NOT NULL DEFAULT '',
    success          INTEGER NOT NULL,
    saved_titles     INTEGER NOT NULL DEFAULT 0,
    failed_titles    INTEGER NOT NULL DEFAULT 0,
    recovery_percent REAL NOT NULL DEFAULT 0,
    error            TEXT NOT NULL DEFAULT '',
    started_at       TEXT NOT NULL,
    finished_at      TEXT NOT NULL
)`

// Store persists backup run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
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

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one finished backup run.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.RunID) == "" {
		return errors.New("run id required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO backup_runs (
            run_id, drive_id, drive_letter, disc_name, disc_type,
            fingerprint_type, output_dir, success, saved_titles, failed_titles,
            recovery_percent, error, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.DriveID,
		entry.DriveLetter,
		entry.DiscName,
		entry.DiscType,
		entry.FingerprintType,
		entry.OutputDir,
		boolToInt(entry.Success),
		entry.SavedTitles,
		entry.FailedTitles,
		entry.RecoveryPercent,
		entry.Error,
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
		entry.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert backup run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, run_id, drive_id, drive_letter, disc_name, disc_type,
        fingerprint_type, output_dir, success, saved_titles, failed_titles,
        recovery_percent, error, started_at, finished_at
        FROM backup_runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backup runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup runs: %w", err)
	}
	return entries, nil
}

// FindByRunID returns one run by its run id.
func (s *Store) FindByRunID(ctx context.Context, runID string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, drive_id, drive_letter, disc_name, disc_type,
            fingerprint_type, output_dir, success, saved_titles, failed_titles,
            recovery_percent, error, started_at, finished_at
         FROM backup_runs WHERE run_id = ?`, runID)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return entry, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	var success int
	var startedAt, finishedAt string
	err := row.Scan(
		&entry.ID,
		&entry.RunID,
		&entry.DriveID,
		&entry.DriveLetter,
		&entry.DiscName,
		&entry.DiscType,
		&entry.FingerprintType,
		&entry.OutputDir,
		&success,
		&entry.SavedTitles,
		&entry.FailedTitles,
		&entry.RecoveryPercent,
		&entry.Error,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan backup run: %w", err)
	}
	entry.Success = success != 0
	if ts, parseErr := time.Parse(time.RFC3339Nano, startedAt); parseErr == nil {
		entry.StartedAt = ts
	}
	if ts, parseErr := time.Parse(time.RFC3339Nano, finishedAt); parseErr == nil {
		entry.FinishedAt = ts
	}
	return entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
