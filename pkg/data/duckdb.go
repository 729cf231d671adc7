package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   VARCHAR PRIMARY KEY,
	value VARCHAR NOT NULL
)`

// InitDuckDB opens the database at path, creating parent directories and the kv table.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return db, nil
}

// DuckDBStore is the default KV backend, one row per key.
type DuckDBStore struct {
	db    *sql.DB
	quota int64
}

func NewDuckDBStore(path string, quota int64) (*DuckDBStore, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &DuckDBStore{db: db, quota: quota}, nil
}

func (s *DuckDBStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *DuckDBStore) Set(key, value string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	defer tx.Rollback()

	var used int64
	err = tx.QueryRow(
		`SELECT COALESCE(SUM(strlen(key) + strlen(value)), 0) FROM kv WHERE key <> ?`, key,
	).Scan(&used)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if used+entrySize(key, value) > s.quota {
		return fmt.Errorf("set %q: %w", key, ErrQuotaExceeded)
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return tx.Commit()
}

func (s *DuckDBStore) Remove(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("remove %q: %w", key, err)
		}
	}
	return nil
}

func (s *DuckDBStore) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM kv WHERE starts_with(key, ?) ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}
