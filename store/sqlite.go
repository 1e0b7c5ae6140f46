package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// SQLite driver.
	_ "modernc.org/sqlite"
)

// SQLiteKV persists device-scoped keys in a local sqlite database. One
// database file per device; survives restarts, unlike the per-view scope.
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV opens (and if needed initializes) the device store at dsn.
func NewSQLiteKV(dsn string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite device store")
	}

	stmt := `
		CREATE TABLE IF NOT EXISTS device_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
		)
	`
	if _, err := db.Exec(stmt); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize device store schema")
	}

	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM device_kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	return value, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	stmt := `
		INSERT INTO device_kv (key, value, updated_ts)
		VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_ts = excluded.updated_ts
	`
	if _, err := s.db.ExecContext(ctx, stmt, key, value); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM device_kv WHERE key = ?", key); err != nil {
		return errors.Wrapf(err, "delete %s", key)
	}
	return nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
