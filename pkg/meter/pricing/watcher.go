package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the pricing table when its backing file changes.
// Change events are debounced so editors that write in multiple steps
// trigger a single reload.
type Watcher struct {
	table    *Table
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher that reloads table from path on change.
func NewWatcher(table *Table, path string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default().With("component", "pricing.watcher")
	}
	return &Watcher{
		table:    table,
		path:     path,
		debounce: 100 * time.Millisecond,
		logger:   logger,
	}
}

// Watch blocks until the context is cancelled, reloading the pricing file
// whenever it is written or replaced. A failed reload keeps the previous
// table and is logged, never fatal.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory, not the file: atomic renames (the common safe
	// write pattern) replace the inode the file watch was attached to.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("pricing watcher started", "path", w.path)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("pricing watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.table.LoadFile(w.path); err != nil {
				w.logger.Error("pricing reload failed, keeping previous table", "error", err)
				continue
			}
			w.logger.Info("pricing table reloaded", "path", w.path, "providers", len(w.table.Providers()))

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("pricing watcher error", "error", err)
		}
	}
}
