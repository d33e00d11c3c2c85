package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rizkypratama/dlpguard/internal/config"
)

// Reloader watches the config file for changes and triggers hot-reload
// of detector patterns and scoring weights.
type Reloader struct {
	watcher *fsnotify.Watcher
	service *Service
	path    string
}

// NewReloader creates a file watcher for the config path. Watching the
// parent directory catches editors that replace the file by rename.
func NewReloader(service *Service, path string) (*Reloader, error) {
	if path == "" {
		path = filepath.Join(config.DefaultDir(), "config.yaml")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not watchable: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}

	return &Reloader{watcher: watcher, service: service, path: path}, nil
}

// Run watches for config changes and reloads. Blocks until ctx is
// cancelled. Writes are debounced so editors that write in chunks
// trigger one reload.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != r.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := r.service.Reload(); err != nil {
						fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
					} else {
						fmt.Fprintf(os.Stderr, "hot-reload: config reloaded\n")
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "file watcher error: %v\n", err)
		}
	}
}
