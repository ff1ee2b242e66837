// Package sqlite provides a durable scope store backed by SQLite.
//
// Values are encoded as JSON, so they come back in their JSON shapes:
// numbers as float64, objects as map[string]any and arrays as []any.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS scope_values (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value_json TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// DB owns the SQLite connection shared by every namespace opened from it.
type DB struct {
	sqlDB *sql.DB
}

// Open opens (creating when needed) the database at path and ensures the
// schema exists.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	// Single writer keeps concurrent Set calls from tripping SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: ping db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	if db == nil || db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}

// Namespace returns a store whose keys are isolated under name. Use one
// namespace per flow (and one for global) to share a file between scopes.
func (db *DB) Namespace(name string) *Store {
	return &Store{db: db, namespace: strings.TrimSpace(name)}
}

// Store is a scope store confined to one namespace.
type Store struct {
	db        *DB
	namespace string
}

// Get loads key. A missing row reports ok=false.
func (s *Store) Get(ctx context.Context, key string) (any, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	var raw string
	err := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT value_json FROM scope_values WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: get %s/%s: %w", s.namespace, key, err)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, fmt.Errorf("sqlite: decode %s/%s: %w", s.namespace, key, err)
	}
	return value, true, nil
}

// Set upserts key with value encoded as JSON.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if err := s.ready(); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s/%s: %w", s.namespace, key, err)
	}
	_, err = s.db.sqlDB.ExecContext(ctx,
		`INSERT INTO scope_values (namespace, key, value_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET
		    value_json = excluded.value_json,
		    updated_at = excluded.updated_at`,
		s.namespace, key, string(raw), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// Delete removes key from the namespace.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if _, err := s.db.sqlDB.ExecContext(ctx,
		`DELETE FROM scope_values WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	); err != nil {
		return fmt.Errorf("sqlite: delete %s/%s: %w", s.namespace, key, err)
	}
	return nil
}

// Keys lists the namespace keys in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.sqlDB.QueryContext(ctx,
		`SELECT key FROM scope_values WHERE namespace = ? ORDER BY key`,
		s.namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list %s: %w", s.namespace, err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("sqlite: list %s: %w", s.namespace, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *Store) ready() error {
	if s == nil || s.db == nil || s.db.sqlDB == nil {
		return fmt.Errorf("sqlite: storage is not configured")
	}
	return nil
}
