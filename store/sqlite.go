package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	_ "modernc.org/sqlite"
)

// DB is an embedded SQLite database holding every namespace of a workspace
// in a single table.
type DB struct {
	db *sql.DB
}

// OpenDB opens (and creates if needed) the database at path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, persistence("open", err)
	}
	// a single writer avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	createItemsTableSQL := `
	CREATE TABLE IF NOT EXISTS items (
		namespace TEXT NOT NULL,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		payload TEXT NOT NULL,
		PRIMARY KEY (namespace, id)
	);
	`
	if _, err := db.Exec(createItemsTableSQL); err != nil {
		db.Close()
		return nil, persistence("open", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// SQLite is a namespace of a DB.
type SQLite[T Keyed] struct {
	db        *sql.DB
	namespace string
}

// NewSQLite returns the repository of a namespace in d.
func NewSQLite[T Keyed](d *DB, namespace string) *SQLite[T] {
	return &SQLite[T]{db: d.db, namespace: namespace}
}

func (s *SQLite[T]) List() ([]T, error) {
	rows, err := s.db.Query("SELECT payload FROM items WHERE namespace = ? ORDER BY seq DESC", s.namespace)
	if err != nil {
		return nil, persistence("list", err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, persistence("list", err)
		}
		var it T
		if err := json.Unmarshal([]byte(payload), &it); err != nil {
			return nil, persistencef("list", "cannot decode item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list", err)
	}
	return items, nil
}

func (s *SQLite[T]) Get(key string) (T, bool, error) {
	var zero T
	var payload string
	err := s.db.QueryRow("SELECT payload FROM items WHERE namespace = ? AND id = ?", s.namespace, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, persistence("get", err)
	}
	var it T
	if err := json.Unmarshal([]byte(payload), &it); err != nil {
		return zero, false, persistencef("get", "cannot decode item %q: %w", key, err)
	}
	return it, true, nil
}

func (s *SQLite[T]) Append(item T) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return persistencef("append", "cannot encode item: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO items (namespace, id, seq, version, payload)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM items WHERE namespace = ?), ?, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET seq = excluded.seq, payload = excluded.payload`,
		s.namespace, item.Key(), s.namespace, Version, string(payload))
	if err != nil {
		return persistence("append", err)
	}
	return nil
}

func (s *SQLite[T]) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM items WHERE namespace = ? AND id = ?", s.namespace, key); err != nil {
		return persistence("delete", err)
	}
	return nil
}

func (s *SQLite[T]) Clear() error {
	if _, err := s.db.Exec("DELETE FROM items WHERE namespace = ?", s.namespace); err != nil {
		return persistence("clear", err)
	}
	return nil
}
