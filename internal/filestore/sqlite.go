package filestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a FileStore backed by a single SQLite table, keyed by
// path. Grounded on the teacher's internal/storage/sqlite/sqlite.go,
// which opens its database the same way (ensure parent dir, open via the
// mattn/go-sqlite3 driver, create schema with CREATE TABLE IF NOT EXISTS).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite-backed FileStore at
// path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("filestore: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("filestore: open sqlite: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			path    TEXT PRIMARY KEY,
			content BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("filestore: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Write upserts content at path.
func (s *SQLiteStore) Write(path string, content []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO files (path, content) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET content = excluded.content
	`, path, content)
	if err != nil {
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	return nil
}

// Read returns the content at path, or ErrNotFound if absent.
func (s *SQLiteStore) Read(path string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRow(`SELECT content FROM files WHERE path = ?`, path).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", path, err)
	}
	return content, nil
}

// Delete removes the row at path. Deleting an absent path is not an
// error.
func (s *SQLiteStore) Delete(path string) error {
	if _, err := s.db.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("filestore: delete %s: %w", path, err)
	}
	return nil
}

// List returns every path starting with prefix, sorted.
func (s *SQLiteStore) List(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT path FROM files WHERE path LIKE ? ORDER BY path`,
		strings.ReplaceAll(prefix, "%", "\\%")+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("filestore: list %s: %w", prefix, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("filestore: scan list row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
