package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateOffense is returned by Append when an offense with the
// same incident key already exists. The unique constraint is the second
// line of defense behind the dispatch ledger, so callers treat this as
// a benign no-op, not a failure.
var ErrDuplicateOffense = errors.New("offense already recorded for incident")

// Offense is one durable record of a user's violation. Append-only:
// the engine never mutates or deletes rows.
type Offense struct {
	ID          int64     `json:"id"`
	UserUPN     string    `json:"user_upn"`
	Title       string    `json:"title"`
	IncidentKey string    `json:"incident_key"`
	Timestamp   time.Time `json:"timestamp"`
}

// Append inserts an offense row. The insert is conditional on the
// incident key: a second append for the same incident affects zero rows
// and returns ErrDuplicateOffense.
func (s *Store) Append(ctx context.Context, o Offense) error {
	ts := o.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO offenses (user_upn, title, incident_key, ts) VALUES (?, ?, ?, ?)`,
		o.UserUPN, o.Title, o.IncidentKey, ts.UnixNano())
	if err != nil {
		return fmt.Errorf("append offense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append offense: %w", err)
	}
	if n == 0 {
		return ErrDuplicateOffense
	}
	return nil
}

// CountSince returns the number of offenses for a user at or after the
// given timestamp, excluding the given incident key. Excluding the
// incident under decision keeps a reclaimed attempt's ordinal stable
// even when the first attempt appended the row before crashing.
func (s *Store) CountSince(ctx context.Context, userUPN string, since time.Time, excludeKey string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offenses WHERE user_upn = ? AND ts >= ? AND incident_key != ?`,
		userUPN, since.UnixNano(), excludeKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count offenses: %w", err)
	}
	return n, nil
}

// ListForUser returns all offenses for a user, newest first.
func (s *Store) ListForUser(ctx context.Context, userUPN string) ([]Offense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_upn, title, incident_key, ts FROM offenses WHERE user_upn = ? ORDER BY ts DESC`,
		userUPN)
	if err != nil {
		return nil, fmt.Errorf("list offenses: %w", err)
	}
	defer rows.Close()
	return scanOffenses(rows)
}

// ListRecent returns offenses across all users with pagination, newest
// first.
func (s *Store) ListRecent(ctx context.Context, limit, offset int) ([]Offense, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_upn, title, incident_key, ts FROM offenses ORDER BY ts DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list offenses: %w", err)
	}
	defer rows.Close()
	return scanOffenses(rows)
}

// Stats summarizes the offense table.
type Stats struct {
	TotalOffenses int        `json:"total_offenses"`
	UniqueUsers   int        `json:"unique_users"`
	LatestOffense *time.Time `json:"latest_offense,omitempty"`
}

// OffenseStats returns aggregate counts over the offense table.
func (s *Store) OffenseStats(ctx context.Context) (Stats, error) {
	var st Stats
	var latest *int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_upn), MAX(ts) FROM offenses`).
		Scan(&st.TotalOffenses, &st.UniqueUsers, &latest)
	if err != nil {
		return Stats{}, fmt.Errorf("offense stats: %w", err)
	}
	if latest != nil {
		t := time.Unix(0, *latest).UTC()
		st.LatestOffense = &t
	}
	return st, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanOffenses(rows rowScanner) ([]Offense, error) {
	var out []Offense
	for rows.Next() {
		var o Offense
		var ts int64
		if err := rows.Scan(&o.ID, &o.UserUPN, &o.Title, &o.IncidentKey, &ts); err != nil {
			return nil, fmt.Errorf("scan offense: %w", err)
		}
		o.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan offenses: %w", err)
	}
	return out, nil
}
