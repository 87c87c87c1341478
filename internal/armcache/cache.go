package armcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"platter/internal/fingerprint"
	"platter/internal/logging"
)

// Entry is one cached fingerprint-to-title mapping.
type Entry struct {
	Hash     string    `json:"hash"`
	Title    string    `json:"title"`
	Year     int       `json:"year,omitempty"`
	CachedAt time.Time `json:"cached_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS arm_matches (
    hash      TEXT PRIMARY KEY,
    title     TEXT NOT NULL,
    year      INTEGER NOT NULL DEFAULT 0,
    cached_at TEXT NOT NULL
)`

// Cache persists fingerprint-to-title matches in SQLite. A cache opened with
// an empty path is disabled: lookups miss and writes are dropped.
type Cache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open connects to the cache database at path, creating it and its parent
// directory when missing.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	logger = logging.NewComponentLogger(logger, "armcache")

	if strings.TrimSpace(path) == "" {
		return &Cache{logger: logger}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
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

	return &Cache{db: db, path: path, logger: logger}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Enabled reports whether the cache is backed by a database.
func (c *Cache) Enabled() bool {
	return c != nil && c.db != nil
}

// Lookup resolves a content hash to a cached title/year guess.
func (c *Cache) Lookup(ctx context.Context, hash string) (fingerprint.Match, bool, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" || !c.Enabled() {
		return fingerprint.Match{}, false, nil
	}

	var match fingerprint.Match
	row := c.db.QueryRowContext(ctx, "SELECT title, year FROM arm_matches WHERE hash = ?", hash)
	if err := row.Scan(&match.Title, &match.Year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fingerprint.Match{}, false, nil
		}
		return fingerprint.Match{}, false, fmt.Errorf("query match: %w", err)
	}
	return match, true, nil
}

// Add inserts or replaces the match for a content hash.
func (c *Cache) Add(ctx context.Context, hash string, match fingerprint.Match) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return errors.New("hash cannot be empty")
	}
	if !c.Enabled() {
		return nil
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO arm_matches (hash, title, year, cached_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(hash) DO UPDATE SET title = excluded.title, year = excluded.year, cached_at = excluded.cached_at`,
		hash, match.Title, match.Year, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store match: %w", err)
	}

	c.logger.Debug("cached fingerprint match",
		logging.String("hash", hash),
		logging.String("title", match.Title),
	)
	return nil
}

// Remove deletes the match for a content hash.
func (c *Cache) Remove(ctx context.Context, hash string) error {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return errors.New("hash cannot be empty")
	}
	if !c.Enabled() {
		return nil
	}

	res, err := c.db.ExecContext(ctx, "DELETE FROM arm_matches WHERE hash = ?", hash)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("hash %q not found in cache", hash)
	}
	return nil
}

// List returns all entries, newest first.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	if !c.Enabled() {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT hash, title, year, cached_at FROM arm_matches ORDER BY cached_at DESC, hash")
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var cachedAt string
		if err := rows.Scan(&entry.Hash, &entry.Title, &entry.Year, &cachedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, cachedAt); parseErr == nil {
			entry.CachedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return entries, nil
}

// Clear removes all entries.
func (c *Cache) Clear(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if _, err := c.db.ExecContext(ctx, "DELETE FROM arm_matches"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Count returns the number of cached matches.
func (c *Cache) Count(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	var count int
	row := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM arm_matches")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count matches: %w", err)
	}
	return count, nil
}
