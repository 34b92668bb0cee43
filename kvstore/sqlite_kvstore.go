// cartservice/kvstore/sqlite_kvstore.go

package kvstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLiteKVStore persists values in a local SQLite file.
type SQLiteKVStore struct {
	sqlDB *sql.DB
}

// OpenSQLiteKVStore opens (creating if needed) the database at path and ensures the schema.
func OpenSQLiteKVStore(path string) (*SQLiteKVStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ensure kv schema")
	}
	return &SQLiteKVStore{sqlDB: sqlDB}, nil
}

// Initialize verifies the database handle answers.
func (s *SQLiteKVStore) Initialize(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return errors.New("storage is not configured")
	}
	return errors.Wrap(s.sqlDB.PingContext(ctx), "ping sqlite db")
}

// Get returns the value stored under key. A missing row is reported through ok, not err.
func (s *SQLiteKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var value string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	return value, true, nil
}

// Set upserts value under key and stamps updated_at.
func (s *SQLiteKVStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *SQLiteKVStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "remove %s", key)
	}
	return nil
}

// Ping reports whether the database handle answers.
func (s *SQLiteKVStore) Ping(ctx context.Context) bool {
	if s == nil || s.sqlDB == nil {
		return false
	}
	return s.sqlDB.PingContext(ctx) == nil
}

// Close closes the SQLite handle.
func (s *SQLiteKVStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
