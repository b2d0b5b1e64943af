package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists entries in a single-table SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the cache database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS recommendations (
		key        TEXT PRIMARY KEY,
		blob       BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating cache %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM recommendations WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	return blob, err
}

func (s *SQLiteStore) Put(ctx context.Context, key string, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO recommendations (key, blob, created_at) VALUES (?, ?, ?)`,
		key, blob, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
