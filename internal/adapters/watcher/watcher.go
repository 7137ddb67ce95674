// Package watcher implements recursive file system watching with debounced change batches.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

// shouldSkipDirectories are directories that should not be watched.
var shouldSkipDirectories = map[string]bool{
	".git":              true,
	".jj":               true,
	domain.WeaveDirName: true,
	"node_modules":      true,
}

const batchChannelBuffer = 64

// Watcher implements file system watching using fsnotify.
type Watcher struct {
	logger    ports.Logger
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	skip      map[string]struct{}
	batches   chan []domain.FileEvent
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher creates a new file system watcher that coalesces events within window.
func NewWatcher(logger ports.Logger, window time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWatcherFailed.Error())
	}
	w := &Watcher{
		logger:    logger,
		fsWatcher: fsWatcher,
		skip:      make(map[string]struct{}),
		batches:   make(chan []domain.FileEvent, batchChannelBuffer),
		done:      make(chan struct{}),
	}
	w.debouncer = NewDebouncer(window, w.emit)
	return w, nil
}

// Start begins watching root recursively. Directories in skip are ignored with all their
// contents.
func (w *Watcher) Start(ctx context.Context, root string, skip ...string) error {
	for _, dir := range skip {
		w.skip[filepath.Clean(dir)] = struct{}{}
	}

	for dir := range w.watchRecursively(root) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrWatcherFailed.Error()), "dir", dir)
		}
	}

	go w.processEvents(ctx)

	return nil
}

// Stop stops the watcher and releases all resources. Pending events are discarded.
func (w *Watcher) Stop() error {
	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	w.finish()
	return err
}

// Batches yields debounced change sets until the watcher stops.
func (w *Watcher) Batches() iter.Seq[[]domain.FileEvent] {
	return func(yield func([]domain.FileEvent) bool) {
		for {
			select {
			case batch := <-w.batches:
				if !yield(batch) {
					return
				}
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) emit(events []domain.FileEvent) {
	select {
	case w.batches <- events:
	case <-w.done:
	}
}

func (w *Watcher) finish() {
	w.closeOnce.Do(func() { close(w.done) })
}

// watchRecursively walks the directory tree and yields all directories.
func (w *Watcher) watchRecursively(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // skip directories that vanished or cannot be read
			}
			if d.IsDir() {
				if w.shouldSkip(path) {
					return fs.SkipDir
				}
				if !yield(path) {
					return filepath.SkipAll
				}
			}
			return nil
		})
	}
}

func (w *Watcher) shouldSkip(path string) bool {
	if shouldSkipDirectories[filepath.Base(path)] {
		return true
	}
	_, ok := w.skip[filepath.Clean(path)]
	return ok
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.finish()

	for {
		select {
		case <-ctx.Done():
			w.debouncer.Stop()
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(fmt.Sprintf("watcher: file system error: %v", err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name
	if w.inSkippedDir(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if !info.IsDir() {
			w.debouncer.Add(path, domain.EventAdd)
			return
		}
		if w.shouldSkip(path) {
			return
		}
		for dir := range w.watchRecursively(path) {
			if err := w.fsWatcher.Add(dir); err != nil {
				w.logger.Warn(fmt.Sprintf("watcher: cannot watch %s: %v", dir, err))
			}
		}
		w.debouncer.Add(path, domain.EventAddDir)
	case event.Has(fsnotify.Write):
		w.debouncer.Add(path, domain.EventChange)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.debouncer.Add(path, domain.EventUnlink)
	}
}

// inSkippedDir reports whether any parent of path is skipped.
func (w *Watcher) inSkippedDir(path string) bool {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if w.shouldSkip(dir) {
			return true
		}
		if parent := filepath.Dir(dir); parent == dir {
			return false
		}
	}
}
