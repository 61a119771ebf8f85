// Package statestore is the durable, single-writer store of per-MAC
// observation state and run history that the correlator and
// orchestrator use as their only persistence boundary. Callers touch
// the database exclusively through the operations on Store; nothing
// else in this repo opens the file directly.
package statestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps a single-writer SQLite connection holding the
// mac_observations and run_history tables.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if absent) the state database at path,
// creating its parent directory on demand, and applies the schema
// migrations. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("statestore: creating state dir %q: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("statestore: opening %q: %w", path, err)
	}
	// A single connection avoids SQLITE_BUSY storms under modernc's
	// driver; every read and write goes through it in turn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("statestore: pinging %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("statestore: applying %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS mac_observations (
	mac             TEXT PRIMARY KEY,
	switch          TEXT NOT NULL DEFAULT '',
	port            TEXT NOT NULL DEFAULT '',
	vlan            INTEGER,
	seen_at         DATETIME,
	stability_count INTEGER NOT NULL DEFAULT 0,
	last_status     TEXT NOT NULL DEFAULT '',
	last_action_at  DATETIME,
	cable_created   INTEGER NOT NULL DEFAULT 0,
	cable_id        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_history (
	id             TEXT PRIMARY KEY,
	run_at         DATETIME NOT NULL,
	total_macs     INTEGER NOT NULL DEFAULT 0,
	cnt_created    INTEGER NOT NULL DEFAULT 0,
	cnt_exists     INTEGER NOT NULL DEFAULT 0,
	cnt_skipped    INTEGER NOT NULL DEFAULT 0,
	cnt_ambiguous  INTEGER NOT NULL DEFAULT 0,
	cnt_not_found  INTEGER NOT NULL DEFAULT 0,
	cnt_errors     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_mac_observations_cable_created
	ON mac_observations(cable_created);
`
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("statestore: applying schema: %w", err)
	}
	return nil
}

// tx runs fn inside a committed transaction, rolling back on error or
// panic.
func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("statestore: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("statestore: commit: %w", err)
	}
	return nil
}
