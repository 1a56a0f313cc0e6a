// Package cache keeps fetched provider data on disk so reruns can skip the
// network. Entries are keyed by a deterministic name per symbol, date range
// and data kind.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

// UniverseKey names the cached index constituents.
const UniverseKey = "sp500_symbols.csv"

type Store interface {
	// Get returns ok=false on a miss or an expired entry.
	Get(key string) (data []byte, ok bool, err error)
	Put(key string, data []byte) error
	Close() error
}

func PriceKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s-%s-%s-prices.csv", clean(symbol), from.Format(dateFormat), to.Format(dateFormat))
}

func InsiderKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s-insider-trades-%s-to-%s.csv", clean(symbol), from.Format(dateFormat), to.Format(dateFormat))
}

func clean(symbol string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(symbol))
}

// Open returns the store for backend "file" or "sqlite" rooted at dir.
func Open(backend, dir string, maxAge time.Duration) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir, maxAge), nil
	case "sqlite":
		return OpenSQLite(filepath.Join(dir, "cache.db"), maxAge)
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

// FileStore writes one file per key under Dir. MaxAge of zero never expires.
type FileStore struct {
	Dir    string
	MaxAge time.Duration
}

func NewFileStore(dir string, maxAge time.Duration) *FileStore {
	return &FileStore{Dir: dir, MaxAge: maxAge}
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	path := filepath.Join(s.Dir, key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.MaxAge > 0 && time.Since(info.ModTime()) > s.MaxAge {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put writes through a temp file and rename so readers never see a partial
// entry.
func (s *FileStore) Put(key string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, ".tmp-"+key+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.Dir, key))
}

func (s *FileStore) Close() error { return nil }
