// Package store persists index snapshots to SQLite for downstream tooling.
// The live index stays in memory; the database is an export artifact.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/snipdex/snipdex/internal/config"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex // serialize writes
}

// Open opens or creates the database at the configured path.
func Open() (*DB, error) {
	path, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	return OpenPath(path)
}

// OpenPath opens or creates the database at the given path.
func OpenPath(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// OpenMemory opens an in-memory database for testing.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB for direct queries.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			lang TEXT DEFAULT '',
			platform TEXT DEFAULT '',
			scope TEXT DEFAULT '',
			since TEXT DEFAULT '',
			description TEXT DEFAULT '',
			tags TEXT DEFAULT '[]',
			extra TEXT DEFAULT '{}',
			body TEXT NOT NULL,
			source_path TEXT NOT NULL,
			segment_index INTEGER NOT NULL,
			position INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_position ON records(position)`,
		`CREATE INDEX IF NOT EXISTS idx_records_source_path ON records(source_path)`,

		`CREATE TABLE IF NOT EXISTS duplicates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL,
			source_path TEXT NOT NULL,
			segment_index INTEGER NOT NULL,
			description TEXT DEFAULT '',
			tags TEXT DEFAULT '[]',
			body TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_duplicates_record_id ON duplicates(record_id)`,

		`CREATE TABLE IF NOT EXISTS diagnostics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			path TEXT NOT NULL,
			segment_index INTEGER NOT NULL,
			detail TEXT DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS builds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			built_at TEXT NOT NULL,
			root TEXT DEFAULT '',
			total_files INTEGER NOT NULL,
			files_read INTEGER NOT NULL,
			records INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			diagnostics INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
