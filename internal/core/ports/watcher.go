package ports

import (
	"context"
	"iter"

	"go.trai.ch/weave/internal/core/domain"
)

// Watcher watches a source tree and reports debounced changes.
type Watcher interface {
	// Start begins watching root recursively, skipping the given directories.
	Start(ctx context.Context, root string, skip ...string) error
	// Stop stops the watcher and releases all resources.
	Stop() error
	// Batches yields coalesced change sets, one per debounce window.
	Batches() iter.Seq[[]domain.FileEvent]
}
