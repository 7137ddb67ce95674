package processor

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of CPU-heavy transforms running at once.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter creates a Limiter admitting n concurrent jobs. n <= 0 means one per CPU.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n))}
}

// Do runs fn once a slot is free.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn()
}
