// Package dedup implements a probabilistic seen-set for external asset URLs.
package dedup

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"go.trai.ch/weave/internal/core/ports"
)

var _ ports.DedupFilter = (*Filter)(nil)

const (
	// DefaultCapacity is the expected number of distinct keys per build.
	DefaultCapacity = 10_000
	// DefaultFalsePositiveRate is the accepted false positive probability.
	DefaultFalsePositiveRate = 0.001
)

// Filter wraps a bloom filter. A false positive makes an asset look already processed,
// so the rate is kept low. Safe for concurrent use.
type Filter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// New creates a Filter sized for capacity keys at the given false positive rate.
func New(capacity uint, falsePositiveRate float64) *Filter {
	return &Filter{filter: bloom.NewWithEstimates(capacity, falsePositiveRate)}
}

// NewDefault creates a Filter with the default sizing.
func NewDefault() *Filter {
	return New(DefaultCapacity, DefaultFalsePositiveRate)
}

// Seen reports whether key was recorded before and records it.
func (f *Filter) Seen(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.TestAndAddString(key)
}

// Reset forgets every recorded key.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.ClearAll()
}
