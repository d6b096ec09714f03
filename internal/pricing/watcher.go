package pricing

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a Catalog whenever its YAML file changes.
type Watcher struct {
	path     string
	catalog  *Catalog
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a Watcher for path. debounce <= 0 uses DefaultDebounce.
func NewWatcher(path string, catalog *Catalog, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: filepath.Clean(path), catalog: catalog, debounce: debounce}
}

// Watch blocks until ctx is cancelled.
// The parent directory is watched so that editors replacing the file by
// rename are still seen.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pricing.Watcher.Watch: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("pricing.Watcher.Watch: add %s: %w", w.path, err)
	}
	log.Printf("pricing: watching %s", w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("pricing.Watcher.Watch: events channel closed")
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.trigger()

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("pricing.Watcher.Watch: errors channel closed")
			}
			log.Printf("pricing.Watcher.Watch: %v", err)
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	if err := w.catalog.Reload(w.path); err != nil {
		log.Printf("pricing: reload failed, keeping previous table: %v", err)
		return
	}
	log.Printf("pricing: reloaded %s", w.path)
}
