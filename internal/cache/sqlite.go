package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS cache_entries (
	key       TEXT PRIMARY KEY,
	data      BLOB NOT NULL,
	cached_at INTEGER NOT NULL
)`

// SQLiteStore keeps every entry in one database file.
type SQLiteStore struct {
	db     *sql.DB
	maxAge time.Duration
}

func OpenSQLite(path string, maxAge time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// One writer at a time keeps concurrent fetches from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &SQLiteStore{db: db, maxAge: maxAge}, nil
}

func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var data []byte
	var cachedAt int64
	err := s.db.QueryRow(`SELECT data, cached_at FROM cache_entries WHERE key = ?`, key).Scan(&data, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.maxAge > 0 && time.Since(time.Unix(cachedAt, 0)) > s.maxAge {
		return nil, false, nil
	}
	return data, true, nil
}

func (s *SQLiteStore) Put(key string, data []byte) error {
	_, err := s.db.Exec(`INSERT INTO cache_entries (key, data, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at`,
		key, data, time.Now().Unix())
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
