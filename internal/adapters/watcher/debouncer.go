package watcher

import (
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/weave/internal/core/domain"
)

// Debouncer coalesces rapid file system events into batches. The latest event kind
// recorded for a path wins.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[string]domain.EventKind
	timer    *time.Timer
	window   time.Duration
	callback func(events []domain.FileEvent)
}

// NewDebouncer creates a new debouncer with the given time window and callback.
func NewDebouncer(window time.Duration, callback func(events []domain.FileEvent)) *Debouncer {
	return &Debouncer{
		pending:  make(map[string]domain.EventKind),
		window:   window,
		callback: callback,
	}
}

// Add records an event for path and restarts the window.
func (d *Debouncer) Add(path string, kind domain.EventKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = kind

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	events := d.drain()
	d.mu.Unlock()

	if len(events) > 0 && d.callback != nil {
		d.callback(events)
	}
}

// Flush immediately hands all pending events to the callback and blocks until it returns.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		if !d.timer.Stop() {
			// Timer already fired, let it complete rather than processing twice.
			d.mu.Unlock()
			return
		}
		d.timer = nil
	}
	events := d.drain()
	d.mu.Unlock()

	if len(events) > 0 && d.callback != nil {
		d.callback(events)
	}
}

// Stop discards pending events and cancels the timer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	clear(d.pending)
}

// drain must be called with mu held. Events are sorted by path.
func (d *Debouncer) drain() []domain.FileEvent {
	if len(d.pending) == 0 {
		return nil
	}
	events := make([]domain.FileEvent, 0, len(d.pending))
	for path, kind := range d.pending {
		events = append(events, domain.FileEvent{Path: path, Kind: kind})
	}
	d.pending = make(map[string]domain.EventKind)
	slices.SortFunc(events, func(a, b domain.FileEvent) int {
		return strings.Compare(a.Path, b.Path)
	})
	return events
}
