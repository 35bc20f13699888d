// Package watch registers and ingests documents dropped into an inbox directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
)

// DefaultSettle is how long a file must go without writes before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// NotifyFunc reports the outcome of one inbox file. doc is nil when err is set.
type NotifyFunc func(path string, doc *domain.Document, err error)

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides the quiet period before a file is ingested.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithNotify sets a callback invoked after each file is handled.
func WithNotify(fn NotifyFunc) Option {
	return func(w *Watcher) {
		w.notify = fn
	}
}

// WithAsync starts ingestion in the background instead of waiting for it.
func WithAsync(async bool) Option {
	return func(w *Watcher) {
		w.async = async
	}
}

// Watcher turns new files in a directory into ingested documents.
type Watcher struct {
	registry driving.DocumentRegistry
	dir      string
	settle   time.Duration
	async    bool
	notify   NotifyFunc

	mu      sync.Mutex
	pending map[string]*settleTimer
	stopped bool
	wg      sync.WaitGroup
}

// New creates a watcher for dir.
func New(registry driving.DocumentRegistry, dir string, opts ...Option) *Watcher {
	w := &Watcher{
		registry: registry,
		dir:      dir,
		settle:   DefaultSettle,
		pending:  make(map[string]*settleTimer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. Files still settling when ctx ends are skipped;
// ingestions already running are waited for.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("inbox directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for new documents", w.dir)

	defer w.wg.Wait()
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleFsEvent(event); ok {
				w.schedule(ctx, path)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleFsEvent returns the path to ingest for a create or write of a
// supported, visible, regular file.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	if _, ok := domain.ClassForExtension(name); !ok {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

// settleTimer is one scheduled ingestion of a path. A newer write replaces
// it in the pending map, which turns its callback into a no-op.
type settleTimer struct {
	timer *time.Timer
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if prev, ok := w.pending[path]; ok {
		prev.timer.Stop()
	}

	entry := &settleTimer{}
	w.pending[path] = entry
	entry.timer = time.AfterFunc(w.settle, func() { w.fire(ctx, path, entry) })
}

// fire ingests path unless entry was superseded or the watcher stopped.
func (w *Watcher) fire(ctx context.Context, path string, entry *settleTimer) {
	w.mu.Lock()
	if w.stopped || w.pending[path] != entry {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	if ctx.Err() != nil {
		return
	}
	doc, err := w.ingest(ctx, path)
	if err != nil {
		logger.Warn("Inbox file %s: %v", path, err)
	}
	if w.notify != nil {
		w.notify(path, doc, err)
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for path, entry := range w.pending {
		entry.timer.Stop()
		delete(w.pending, path)
	}
}

// ingest registers the file and runs (or starts) its ingestion.
func (w *Watcher) ingest(ctx context.Context, path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	doc, err := w.registry.Register(ctx, data, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	logger.Info("Registered %s as %s", path, doc.ID)

	if w.async {
		return w.registry.StartIngest(ctx, doc.ID)
	}
	return w.registry.Ingest(ctx, doc.ID)
}
