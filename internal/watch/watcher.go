// Package watch re-runs a callback when files under a documentation root change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"doclint/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// OnChange is called once per settled batch of changes with the
// slash-separated relative paths that changed.
type OnChange func(ctx context.Context, changed []string)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Runs          int
	Errors        int
	WatchedDirs   int
	LastEventTime time.Time
	LastEventPath string
}

// Options configures a Watcher.
type Options struct {
	Root     string
	Debounce time.Duration
	// Skip reports whether a directory (relative, slash-separated) should not be watched.
	Skip func(rel, name string) bool
}

// Watcher watches every directory under a root. fsnotify is not
// recursive, so directories created later are added as they appear.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	skip     func(rel, name string) bool
	onChange OnChange
	pending  map[string]time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

// New creates a watcher. Call Start to begin watching.
func New(opts Options, onChange OnChange) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	skip := opts.Skip
	if skip == nil {
		skip = func(string, string) bool { return false }
	}
	return &Watcher{
		watcher:  fw,
		root:     root,
		debounce: debounce,
		skip:     skip,
		onChange: onChange,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start registers the directory tree and begins the event loop.
// It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watch("Watching %s (%d directories, debounce %v)", w.root, w.Stats().WatchedDirs, w.debounce)

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.WatchError("error closing watcher: %v", err)
	}
	logging.Watch("Watcher stopped")
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel := w.rel(p)
		if rel != "." && w.skip(rel, d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			logging.WatchError("failed to watch %s: %v", p, err)
			return nil
		}
		w.mu.Lock()
		w.stats.WatchedDirs++
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) rel(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.WatchDebug("context cancelled")
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WatchError("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	rel := w.rel(event.Name)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return
	}
	name := filepath.Base(event.Name)
	if w.skip(rel, name) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logging.WatchError("failed to watch new directory %s: %v", event.Name, err)
			}
		}
	}

	logging.WatchDebug("%s %s", event.Op, rel)
	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = rel
	w.pending[rel] = time.Now()
	w.mu.Unlock()
}

// flush fires onChange once every pending path has been quiet for the
// debounce window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, t := range w.pending {
		if now.Sub(t) < w.debounce {
			w.mu.Unlock()
			return
		}
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]time.Time)
	w.stats.Runs++
	w.mu.Unlock()

	sort.Strings(changed)
	logging.Watch("%d paths settled, re-running", len(changed))
	if w.onChange != nil {
		w.onChange(ctx, changed)
	}
}
