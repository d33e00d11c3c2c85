// Package store is the durable layer behind the offense history and the
// dispatch ledger. Both live in one sqlite database so the uniqueness
// constraint on the incident key and the claim ledger share a single
// point of truth across concurrent workers and processes.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the sqlite handle shared by the offense history and the
// dispatch ledger.
type Store struct {
	db *sql.DB
}

// schema is applied on every Open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS offenses (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_upn     TEXT    NOT NULL,
	title        TEXT    NOT NULL,
	incident_key TEXT    NOT NULL UNIQUE,
	ts           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_offenses_user ON offenses(user_upn);
CREATE INDEX IF NOT EXISTS idx_offenses_ts   ON offenses(ts);

CREATE TABLE IF NOT EXISTS dispatch (
	incident_key TEXT    PRIMARY KEY,
	state        TEXT    NOT NULL,
	attempts     INTEGER NOT NULL DEFAULT 1,
	claimed_at   INTEGER NOT NULL,
	finalized_at INTEGER
);
`

// Open opens (or creates) the database at path and applies the schema.
// The DSN enables WAL and a busy timeout so concurrent workers block
// briefly instead of failing on lock contention.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
