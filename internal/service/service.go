// Package service runs the engine as a long-lived process: it watches
// an inbox directory for event envelope files dropped by the transport
// adapters, pushes each through the pipeline, and hot-reloads the
// detector and scoring configuration when the config file changes.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rizkypratama/dlpguard/internal/audit"
	"github.com/rizkypratama/dlpguard/internal/config"
	"github.com/rizkypratama/dlpguard/internal/decision"
	"github.com/rizkypratama/dlpguard/internal/detect"
	"github.com/rizkypratama/dlpguard/internal/ingest"
	"github.com/rizkypratama/dlpguard/internal/model"
	"github.com/rizkypratama/dlpguard/internal/notify"
	"github.com/rizkypratama/dlpguard/internal/pipeline"
	"github.com/rizkypratama/dlpguard/internal/store"
)

// Envelope is the inbox file format: the upstream source name plus its
// raw payload, written by whatever adapter fronts the transport.
type Envelope struct {
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload"`
}

// Service owns the pipeline and its collaborators for watch mode.
type Service struct {
	configPath string

	mu       sync.RWMutex
	cfg      *config.Config
	pipe     *pipeline.Pipeline
	store    *store.Store
	auditLog *audit.Log
}

// New builds a Service from the config at configPath (empty means the
// default location).
func New(configPath string) (*Service, error) {
	cfg, hash, err := config.LoadWithHash(configPath)
	if err != nil {
		return nil, err
	}

	s := &Service{configPath: configPath, cfg: cfg}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	s.store, err = store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s.auditLog, err = audit.Open(cfg.AuditLog)
	if err != nil {
		s.store.Close()
		return nil, err
	}

	if err := s.buildPipeline(cfg, hash); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// buildPipeline assembles the detector, engine, and pipeline from cfg.
// Called at startup and again on hot-reload.
func (s *Service) buildPipeline(cfg *config.Config, hash string) error {
	detector, err := detect.New(&cfg.Detect)
	if err != nil {
		return fmt.Errorf("build detector: %w", err)
	}
	engine := decision.New(cfg.Scoring)

	outbox, err := notify.NewOutbox(filepath.Dir(cfg.DBPath))
	if err != nil {
		return err
	}

	pipe := pipeline.New(pipeline.Config{
		StaleAfter:      cfg.StaleAfter,
		StoreTimeout:    cfg.StoreTimeout,
		HistoryLookback: cfg.HistoryLookback,
		ConfigHash:      hash,
	}, detector, engine, s.store, outbox, outbox, s.auditLog, notify.NewDispatcher(cfg.Webhooks))

	s.mu.Lock()
	s.cfg = cfg
	s.pipe = pipe
	s.mu.Unlock()
	return nil
}

// Reload re-reads the config file and swaps in a fresh pipeline. The
// store and audit log are kept: only detector patterns, scoring
// weights, windows, and webhooks change at runtime.
func (s *Service) Reload() error {
	cfg, hash, err := config.LoadWithHash(s.configPath)
	if err != nil {
		return err
	}
	return s.buildPipeline(cfg, hash)
}

// Pipeline returns the current pipeline.
func (s *Service) Pipeline() *pipeline.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipe
}

// Config returns the current configuration.
func (s *Service) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Store exposes the underlying store for CLI queries.
func (s *Service) Store() *store.Store {
	return s.store
}

// Close releases the store and audit log.
func (s *Service) Close() {
	if s.auditLog != nil {
		s.auditLog.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// Run watches the inbox until ctx is cancelled. Files already present
// at startup are processed first, then fsnotify picks up new arrivals.
// A GC pass over the dispatch ledger runs periodically.
func (s *Service) Run(ctx context.Context) error {
	cfg := s.Config()
	if err := os.MkdirAll(cfg.InboxDir, 0750); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	handler := func(path string) {
		if err := s.HandleFile(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "inbox: %s: %v\n", filepath.Base(path), err)
		}
	}

	if err := ScanExisting(cfg.InboxDir, handler); err != nil {
		return err
	}

	reloader, err := NewReloader(s, s.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config watch disabled: %v\n", err)
	} else {
		go reloader.Run(ctx)
	}

	go s.gcLoop(ctx)

	watcher := NewInboxWatcher(cfg.InboxDir, handler)
	return watcher.Run(ctx)
}

// HandleFile processes one inbox envelope file. The file is removed on
// success or on a permanent failure (bad JSON, validation reject); it
// stays in place on transient store failures so the next scan retries.
func (s *Service) HandleFile(ctx context.Context, path string) error {
	// Reject symlinks before reading: an attacker-controlled inbox must
	// not read arbitrary filesystem paths as events.
	fi, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		_ = os.Remove(path)
		return fmt.Errorf("rejected symlink")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("invalid envelope: %w", err)
	}

	source, _ := model.NormalizeSource(env.Source)
	event, err := ingest.Normalize(source, env.Payload)
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("normalize: %w", err)
	}

	out, err := s.Pipeline().Process(ctx, event)
	if err != nil {
		if pipeline.IsTransient(err) {
			return err // keep the file; next scan retries
		}
		_ = os.Remove(path)
		return err
	}

	fmt.Fprintf(os.Stderr, "%s: %s (claim %s)\n", event.DedupKey(), out.Status, out.Claim)
	_ = os.Remove(path)
	return nil
}

// gcLoop removes expired dispatch records on an hourly cadence.
func (s *Service) gcLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cfg := s.Config()
			gctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
			n, err := s.store.GC(gctx, time.Now().UTC().Add(-cfg.Retention))
			cancel()
			if err != nil {
				fmt.Fprintf(os.Stderr, "dispatch gc: %v\n", err)
			} else if n > 0 {
				fmt.Fprintf(os.Stderr, "dispatch gc: removed %d records\n", n)
			}
		}
	}
}
