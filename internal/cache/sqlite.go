package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a single-table SQLite database. It
// survives process restarts, which the in-memory store does not.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating when needed) a cache database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements Store.
func (s *SQLiteStore) Get(key string, dest interface{}) error {
	var payload []byte
	var expiresAt int64
	err := s.db.QueryRow("SELECT value, expires_at FROM cache WHERE key = ?", key).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if time.Now().Unix() >= expiresAt {
		return ErrNotFound
	}
	return msgpack.Unmarshal(payload, dest)
}

// Set implements Store.
func (s *SQLiteStore) Set(key string, value interface{}, ttl time.Duration) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(ttl).Unix()
	_, err = s.db.Exec(`
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, payload, expiresAt)
	return err
}

// Delete implements Store.
func (s *SQLiteStore) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

// Expire implements Store.
func (s *SQLiteStore) Expire(key string, ttl time.Duration) error {
	res, err := s.db.Exec("UPDATE cache SET expires_at = ? WHERE key = ?", time.Now().Add(ttl).Unix(), key)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge removes all expired entries. Intended for periodic maintenance.
func (s *SQLiteStore) Purge() error {
	_, err := s.db.Exec("DELETE FROM cache WHERE expires_at <= ?", time.Now().Unix())
	return err
}
