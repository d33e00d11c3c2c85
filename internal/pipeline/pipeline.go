// Package pipeline runs one violation event through the full decision
// path: claim the incident in the dispatch ledger, detect and mask
// sensitive data, score, record the offense, and hand the outward
// intents to the external collaborators exactly once. The claim is the
// sole synchronization point; everything after it is either pure or
// idempotent behind the offense uniqueness constraint.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rizkypratama/dlpguard/internal/audit"
	"github.com/rizkypratama/dlpguard/internal/decision"
	"github.com/rizkypratama/dlpguard/internal/detect"
	"github.com/rizkypratama/dlpguard/internal/ingest"
	"github.com/rizkypratama/dlpguard/internal/model"
	"github.com/rizkypratama/dlpguard/internal/notify"
	"github.com/rizkypratama/dlpguard/internal/store"
)

// Status classifies the outcome of processing one delivery.
type Status string

const (
	// StatusProcessed means this delivery won the claim and produced
	// the incident's single notification.
	StatusProcessed Status = "processed"
	// StatusDuplicate means another delivery owns the incident. A
	// normal, expected no-op: the caller reports success upstream so
	// retry loops stop here.
	StatusDuplicate Status = "duplicate"
)

// Outcome is the result of Process for one delivery.
type Outcome struct {
	Status     Status
	DeliveryID string
	Claim      store.ClaimResult
	Decision   *model.DecisionResult
	// EnforceErr records a failed enforcement hand-off. The incident
	// still finalizes as NOTIFIED: the claim guarantees at most one
	// enforcement attempt, and under-enforcement is preferred over a
	// duplicate-notification loop.
	EnforceErr error
}

// Config holds pipeline tunables.
type Config struct {
	// StaleAfter bounds how long a CLAIMED record may sit unfinalized
	// before a later delivery may reclaim it once.
	StaleAfter time.Duration
	// StoreTimeout caps every store call.
	StoreTimeout time.Duration
	// HistoryLookback limits how far back offense history counts.
	// Zero means all time.
	HistoryLookback time.Duration
	// ConfigHash is stamped on audit entries for reproducibility.
	ConfigHash string
}

// DefaultStaleAfter is the reclaim window for stuck CLAIMED records.
const DefaultStaleAfter = 15 * time.Minute

// DefaultStoreTimeout caps individual store calls.
const DefaultStoreTimeout = 5 * time.Second

// Pipeline wires the detector, engine, store, and collaborators.
type Pipeline struct {
	cfg      Config
	detector *detect.Detector
	engine   *decision.Engine
	store    *store.Store
	notifier notify.Notifier
	enforcer notify.Enforcer
	auditLog *audit.Log         // optional
	webhooks *notify.Dispatcher // optional
}

// New creates a Pipeline. auditLog and webhooks may be nil.
func New(cfg Config, d *detect.Detector, e *decision.Engine, s *store.Store, n notify.Notifier, enf notify.Enforcer, log *audit.Log, hooks *notify.Dispatcher) *Pipeline {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &Pipeline{
		cfg:      cfg,
		detector: d,
		engine:   e,
		store:    s,
		notifier: n,
		enforcer: enf,
		auditLog: log,
		webhooks: hooks,
	}
}

// Process runs one delivery of an event through the engine.
//
// A lost claim is not an error: the outcome is StatusDuplicate and the
// caller must report success upstream. A store failure during claim is
// fail-safe toward suppressing a duplicate notification: no side
// effects, TransientStoreError returned so the upstream may retry.
// Transient store failures after a won claim leave the ledger row
// CLAIMED: the staleness window grants the retry those errors invite.
// FAILED is reserved for unrecoverable outcomes (a rejected
// notification), where retrying cannot help.
func (p *Pipeline) Process(ctx context.Context, event model.ViolationEvent) (Outcome, error) {
	if err := ingest.Validate(event); err != nil {
		return Outcome{}, err
	}

	out := Outcome{DeliveryID: uuid.NewString()}
	key := event.DedupKey()

	claimCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	claim, err := p.store.Claim(claimCtx, key, p.cfg.StaleAfter)
	cancel()
	if err != nil {
		p.record(event, out, "", nil, fmt.Sprintf("claim failed: %v", err))
		return out, &TransientStoreError{Op: "claim", Err: err}
	}
	out.Claim = claim

	if claim == store.ClaimLost {
		out.Status = StatusDuplicate
		p.record(event, out, "", nil, "")
		return out, nil
	}

	// This delivery owns the incident.
	findings := p.detector.Scan(event.Content)

	histCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	prior, err := p.store.CountSince(histCtx, event.UserUPN, p.historySince(), key)
	cancel()
	if err != nil {
		// Leave the row CLAIMED: the reclaim path retries this once the
		// staleness window passes. No notification went out yet.
		p.record(event, out, store.StateClaimed, nil, fmt.Sprintf("history lookup failed: %v", err))
		return out, &TransientStoreError{Op: "history", Err: err}
	}

	res := p.engine.Decide(event, prior)
	out.Decision = &res

	offense := store.Offense{
		UserUPN:     event.UserUPN,
		Title:       p.detector.Mask(event.Title),
		IncidentKey: key,
		Timestamp:   event.ReceivedAt,
	}
	appendCtx, cancel := context.WithTimeout(ctx, p.cfg.StoreTimeout)
	err = p.store.Append(appendCtx, offense)
	cancel()
	if err != nil && !errors.Is(err, store.ErrDuplicateOffense) {
		// ErrDuplicateOffense happens only on a reclaim that already
		// appended before crashing; the constraint absorbs it. Anything
		// else stays CLAIMED for a reclaim retry.
		p.record(event, out, store.StateClaimed, &res, fmt.Sprintf("offense append failed: %v", err))
		return out, &TransientStoreError{Op: "append", Err: err}
	}

	intent := notify.BuildNotification(p.detector, event, findings, res)
	if err := p.notifier.Notify(ctx, intent); err != nil {
		p.finalize(ctx, key, store.StateFailed)
		p.record(event, out, store.StateFailed, &res, fmt.Sprintf("notify failed: %v", err))
		return out, fmt.Errorf("notify: %w", err)
	}

	if res.Action == model.HardBlockAndRevoke {
		if err := p.enforcer.Enforce(ctx, notify.BuildEnforcement(event, res)); err != nil {
			out.EnforceErr = err
		}
	}

	if err := p.finalize(ctx, key, store.StateNotified); err != nil {
		p.record(event, out, store.StateClaimed, &res, fmt.Sprintf("finalize failed: %v", err))
		return out, &TransientStoreError{Op: "finalize", Err: err}
	}

	out.Status = StatusProcessed
	var errText string
	if out.EnforceErr != nil {
		errText = fmt.Sprintf("enforce failed: %v", out.EnforceErr)
	}
	p.record(event, out, store.StateNotified, &res, errText)
	p.dispatchWebhook(event, out, res, intent)
	return out, nil
}

// finalize moves the ledger entry to a terminal state. It runs on a
// detached context so request cancellation cannot strand a CLAIMED row.
func (p *Pipeline) finalize(ctx context.Context, key, state string) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.StoreTimeout)
	defer cancel()
	return p.store.Finalize(fctx, key, state)
}

func (p *Pipeline) historySince() time.Time {
	if p.cfg.HistoryLookback <= 0 {
		return time.Unix(0, 0)
	}
	return time.Now().UTC().Add(-p.cfg.HistoryLookback)
}

// record appends an audit entry; audit failures are not allowed to fail
// the pipeline.
func (p *Pipeline) record(event model.ViolationEvent, out Outcome, state string, res *model.DecisionResult, errText string) {
	if p.auditLog == nil {
		return
	}
	entry := audit.Entry{
		DeliveryID:  out.DeliveryID,
		IncidentKey: event.DedupKey(),
		Source:      string(event.Source),
		Recipient:   detect.MaskEmail(event.UserUPN),
		Claim:       out.Claim.String(),
		State:       state,
		Error:       errText,
		ConfigHash:  p.cfg.ConfigHash,
	}
	if res != nil {
		entry.Action = string(res.Action)
		entry.RiskLevel = string(res.Level)
		entry.Score = res.Score
		entry.Ordinal = res.Ordinal
		entry.Warnings = res.Warnings
	}
	_ = p.auditLog.Record(entry)
}

func (p *Pipeline) dispatchWebhook(event model.ViolationEvent, out Outcome, res model.DecisionResult, intent model.NotificationIntent) {
	if p.webhooks == nil {
		return
	}
	p.webhooks.Dispatch(notify.WebhookEvent{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		DeliveryID:  out.DeliveryID,
		IncidentKey: event.DedupKey(),
		Recipient:   detect.MaskEmail(event.UserUPN),
		Action:      string(res.Action),
		RiskLevel:   string(res.Level),
		Score:       res.Score,
		Ordinal:     res.Ordinal,
		Summary:     intent.MaskedSummary,
	})
}
