package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dispatch ledger states. CLAIMED means a processing attempt owns the
// incident; NOTIFIED and FAILED are terminal.
const (
	StateClaimed  = "CLAIMED"
	StateNotified = "NOTIFIED"
	StateFailed   = "FAILED"
)

// maxAttempts bounds reclaim: the initial claim plus exactly one
// reclaim of a stale CLAIMED row.
const maxAttempts = 2

// ClaimResult is the outcome of a claim attempt.
type ClaimResult int

const (
	// ClaimLost means another delivery already owns this incident.
	// Callers must treat the event as a duplicate no-op.
	ClaimLost ClaimResult = iota
	// ClaimWon means this delivery is the first to see the incident.
	ClaimWon
	// ClaimReclaimed means a stale CLAIMED row (a crashed worker) was
	// taken over. Processing is legitimate but must lean on the offense
	// uniqueness constraint as a backstop.
	ClaimReclaimed
)

func (c ClaimResult) String() string {
	switch c {
	case ClaimWon:
		return "won"
	case ClaimReclaimed:
		return "reclaimed"
	default:
		return "lost"
	}
}

// DispatchRecord is one idempotency ledger entry.
type DispatchRecord struct {
	IncidentKey string     `json:"incident_key"`
	State       string     `json:"state"`
	Attempts    int        `json:"attempts"`
	ClaimedAt   time.Time  `json:"claimed_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// Claim atomically inserts a CLAIMED row for the incident key if none
// exists. Both the insert and the stale-reclaim are single conditional
// writes; there is no read-then-write window. staleAfter bounds how long
// a CLAIMED row may sit unfinalized before one reclaim is allowed.
func (s *Store) Claim(ctx context.Context, incidentKey string, staleAfter time.Duration) (ClaimResult, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO dispatch (incident_key, state, attempts, claimed_at) VALUES (?, ?, 1, ?)`,
		incidentKey, StateClaimed, now.UnixNano())
	if err != nil {
		return ClaimLost, fmt.Errorf("claim insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ClaimLost, fmt.Errorf("claim insert: %w", err)
	}
	if n == 1 {
		return ClaimWon, nil
	}

	// A record exists. The only legitimate takeover is a CLAIMED row
	// older than the staleness window that has not been reclaimed yet.
	cutoff := now.Add(-staleAfter)
	res, err = s.db.ExecContext(ctx,
		`UPDATE dispatch SET claimed_at = ?, attempts = attempts + 1
		 WHERE incident_key = ? AND state = ? AND claimed_at <= ? AND attempts < ?`,
		now.UnixNano(), incidentKey, StateClaimed, cutoff.UnixNano(), maxAttempts)
	if err != nil {
		return ClaimLost, fmt.Errorf("claim reclaim: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return ClaimLost, fmt.Errorf("claim reclaim: %w", err)
	}
	if n == 1 {
		return ClaimReclaimed, nil
	}

	return ClaimLost, nil
}

// Finalize moves a CLAIMED incident to a terminal state. Finalizing an
// already-terminal record is an error: terminal states never change.
func (s *Store) Finalize(ctx context.Context, incidentKey, state string) error {
	if state != StateNotified && state != StateFailed {
		return fmt.Errorf("finalize: invalid state %q", state)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE dispatch SET state = ?, finalized_at = ? WHERE incident_key = ? AND state = ?`,
		state, time.Now().UTC().UnixNano(), incidentKey, StateClaimed)
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finalize: no claimed record for %q", incidentKey)
	}
	return nil
}

// GetDispatch returns the ledger entry for an incident key, or nil if
// the incident has never been seen.
func (s *Store) GetDispatch(ctx context.Context, incidentKey string) (*DispatchRecord, error) {
	var rec DispatchRecord
	var claimed int64
	var finalized *int64
	err := s.db.QueryRowContext(ctx,
		`SELECT incident_key, state, attempts, claimed_at, finalized_at FROM dispatch WHERE incident_key = ?`,
		incidentKey).Scan(&rec.IncidentKey, &rec.State, &rec.Attempts, &claimed, &finalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dispatch: %w", err)
	}
	rec.ClaimedAt = time.Unix(0, claimed).UTC()
	if finalized != nil {
		t := time.Unix(0, *finalized).UTC()
		rec.FinalizedAt = &t
	}
	return &rec, nil
}

// GC removes terminal ledger entries finalized before the cutoff and
// exhausted CLAIMED rows older than the cutoff. Returns the number of
// rows removed. Retention must cover the maximum plausible upstream
// retry window; callers pass cutoff = now - retention.
func (s *Store) GC(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM dispatch
		 WHERE (finalized_at IS NOT NULL AND finalized_at <= ?)
		    OR (state = ? AND attempts >= ? AND claimed_at <= ?)`,
		cutoff.UnixNano(), StateClaimed, maxAttempts, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("gc dispatch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("gc dispatch: %w", err)
	}
	return int(n), nil
}
