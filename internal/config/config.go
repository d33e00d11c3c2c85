// Package config loads the engine configuration: storage paths,
// dispatch-guard windows, detector customizations, scoring weights, and
// operator webhooks, all from one YAML file with built-in defaults.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rizkypratama/dlpguard/internal/decision"
	"github.com/rizkypratama/dlpguard/internal/detect"
	"github.com/rizkypratama/dlpguard/internal/notify"
)

// Config is the full engine configuration.
type Config struct {
	// DBPath is the sqlite database holding offenses and the dispatch
	// ledger.
	DBPath string `yaml:"db_path"`
	// AuditLog is the hash-chained JSONL decision log.
	AuditLog string `yaml:"audit_log"`
	// InboxDir is where watch mode picks up normalized event files.
	InboxDir string `yaml:"inbox_dir"`

	// StaleAfter bounds reclaim of stuck CLAIMED records.
	StaleAfter time.Duration `yaml:"stale_after"`
	// Retention is how long terminal dispatch records are kept; it must
	// cover the maximum plausible upstream retry window.
	Retention time.Duration `yaml:"retention"`
	// StoreTimeout caps individual store calls.
	StoreTimeout time.Duration `yaml:"store_timeout"`
	// HistoryLookback limits offense history counting; zero means all
	// time.
	HistoryLookback time.Duration `yaml:"history_lookback"`

	Detect   detect.Config          `yaml:"detect"`
	Scoring  decision.ScoringConfig `yaml:"scoring"`
	Webhooks []notify.WebhookConfig `yaml:"webhooks"`
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		DBPath:       filepath.Join(dir, "dlpguard.db"),
		AuditLog:     filepath.Join(dir, "decisions.jsonl"),
		InboxDir:     filepath.Join(dir, "inbox"),
		StaleAfter:   15 * time.Minute,
		Retention:    24 * time.Hour,
		StoreTimeout: 5 * time.Second,
		Scoring:      decision.DefaultScoringConfig(),
	}
}

// DefaultDir returns the default state directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "dlpguard")
	}
	return filepath.Join(home, ".dlpguard")
}

// LoadWithHash loads configuration from path and returns its SHA-256
// hash, computed over the raw YAML bytes on disk. When no file exists
// (defaults used), the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	dir := DefaultDir()
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return Default(dir), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("read config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	cfg := Default(dir)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("parse config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, "", err
	}

	return cfg, hash, nil
}

func validate(cfg *Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if cfg.StaleAfter <= 0 {
		return fmt.Errorf("config: stale_after must be positive")
	}
	if cfg.Retention < cfg.StaleAfter {
		return fmt.Errorf("config: retention must be at least stale_after")
	}
	if cfg.StoreTimeout <= 0 {
		return fmt.Errorf("config: store_timeout must be positive")
	}
	return nil
}

// WriteDefault writes a commented starter config to path. Refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	cfg := Default(DefaultDir())
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	header := "# dlpguard engine configuration.\n# Durations are integer nanoseconds as written by yaml.Marshal.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0600)
}
