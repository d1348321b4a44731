package probecache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Compy/mpf-mc/internal/media/probe"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current cache schema version. On mismatch the
// cache file is stale and must be deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the cache database was written by a
// different version of this package.
var ErrSchemaMismatch = errors.New("probe cache schema version mismatch")

// Store caches ffprobe results in SQLite, keyed by file path and
// invalidated by file size and modification time.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the probe cache database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open probe cache: %w", err)
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

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: cache has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached probe result for a file, if the cache entry
// still matches the file's size and modification time.
func (s *Store) Get(ctx context.Context, path string, size int64, modTime time.Time) (probe.Result, bool, error) {
	var (
		cachedSize  int64
		cachedMtime int64
		resultJSON  string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT size, mtime_unix_ns, result_json FROM probe_results WHERE path = ?",
		path,
	).Scan(&cachedSize, &cachedMtime, &resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return probe.Result{}, false, nil
	}
	if err != nil {
		return probe.Result{}, false, fmt.Errorf("read probe cache: %w", err)
	}

	if cachedSize != size || cachedMtime != modTime.UnixNano() {
		return probe.Result{}, false, nil
	}

	var result probe.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		// A corrupt row behaves like a miss; the caller re-probes and
		// overwrites it.
		return probe.Result{}, false, nil
	}
	return result, true, nil
}

// Put stores or replaces the probe result for a file.
func (s *Store) Put(ctx context.Context, path string, size int64, modTime time.Time, result probe.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode probe result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO probe_results (path, size, mtime_unix_ns, probed_at, result_json)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(path) DO UPDATE SET
             size = excluded.size,
             mtime_unix_ns = excluded.mtime_unix_ns,
             probed_at = excluded.probed_at,
             result_json = excluded.result_json`,
		path, size, modTime.UnixNano(), time.Now().UTC().Format(time.RFC3339Nano), string(data),
	)
	if err != nil {
		return fmt.Errorf("write probe cache: %w", err)
	}
	return nil
}

// Purge removes entries whose files no longer exist on disk and
// returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM probe_results")
	if err != nil {
		return 0, fmt.Errorf("list probe cache: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return 0, fmt.Errorf("scan probe cache row: %w", err)
		}
		if _, err := os.Stat(path); err != nil {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate probe cache: %w", err)
	}

	for _, path := range stale {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM probe_results WHERE path = ?", path); err != nil {
			return 0, fmt.Errorf("delete probe cache row: %w", err)
		}
	}
	return len(stale), nil
}
