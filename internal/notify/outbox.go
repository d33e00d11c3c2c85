package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/rizkypratama/dlpguard/internal/model"
)

// Outbox hands intents to the external mail and account-management
// relays through the filesystem: one JSON file per intent, written
// atomically so a relay never reads a partial file. The engine's
// exactly-once guarantee ends at the write; relay delivery retries are
// the relay's problem.
type Outbox struct {
	notifyDir  string
	enforceDir string
}

// NewOutbox creates an Outbox rooted at dir, with notifications under
// dir/notify and enforcement intents under dir/enforce.
func NewOutbox(dir string) (*Outbox, error) {
	o := &Outbox{
		notifyDir:  filepath.Join(dir, "notify"),
		enforceDir: filepath.Join(dir, "enforce"),
	}
	for _, d := range []string{o.notifyDir, o.enforceDir} {
		if err := os.MkdirAll(d, 0750); err != nil {
			return nil, fmt.Errorf("create outbox directory: %w", err)
		}
	}
	return o, nil
}

// Notify writes the notification intent to the notify outbox.
func (o *Outbox) Notify(_ context.Context, intent model.NotificationIntent) error {
	return writeIntent(o.notifyDir, intent)
}

// Enforce writes the enforcement intent to the enforce outbox.
func (o *Outbox) Enforce(_ context.Context, intent model.EnforcementIntent) error {
	return writeIntent(o.enforceDir, intent)
}

func writeIntent(dir string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}

	name := time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString() + ".json"
	dst := filepath.Join(dir, name)
	tmp := dst + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename to final: %w", err)
	}
	return nil
}
