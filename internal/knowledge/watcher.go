package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces editor write bursts into one reload.
const defaultDebounce = 250 * time.Millisecond

// Watcher follows the file store's snapshot on disk and pushes deltas to
// a consumer, typically Index.ApplyDelta. It watches the parent
// directory because most editors replace files by rename, which drops a
// watch held on the file itself.
type Watcher struct {
	store    *FileStore
	onDelta  func(EntityDelta)
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given file store.
func NewWatcher(store *FileStore, onDelta func(EntityDelta)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		store:    store,
		onDelta:  onDelta,
		debounce: defaultDebounce,
		fsw:      fsw,
	}, nil
}

// Run watches until the context is cancelled. Reload failures are logged
// and skipped; the previous snapshot stays active.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.store.Path())
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer func() { _ = w.fsw.Close() }()

	target := filepath.Clean(w.store.Path())

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
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
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	delta, err := w.store.Reload()
	if err != nil {
		slog.Warn("snapshot reload failed, keeping previous entities", "path", w.store.Path(), "err", err)
		return
	}
	if delta.Empty() {
		return
	}
	slog.Info("knowledge snapshot changed",
		"added", len(delta.Added), "updated", len(delta.Updated), "deleted", len(delta.DeletedIDs))
	if w.onDelta != nil {
		w.onDelta(delta)
	}
}
