package storage

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection.
type DB struct {
	conn *sql.DB
}

// New creates a new DB, opening (or creating) the SQLite file at dbPath.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS merge_runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			schools_total INTEGER NOT NULL DEFAULT 0,
			output_bytes INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS merge_run_datasets (
			run_id TEXT NOT NULL REFERENCES merge_runs(id),
			dataset TEXT NOT NULL,
			rows_read INTEGER NOT NULL DEFAULT 0,
			rows_qualified INTEGER NOT NULL DEFAULT 0,
			rows_matched INTEGER NOT NULL DEFAULT 0,
			schools_matched INTEGER NOT NULL DEFAULT 0,
			values_written INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, dataset)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_merge_runs_started ON merge_runs(started_at)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return errors.Wrapf(err, "migration failed: %s", m[:40])
		}
	}

	return nil
}
