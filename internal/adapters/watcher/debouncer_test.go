package watcher_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/adapters/watcher"
	"go.trai.ch/weave/internal/core/domain"
)

func TestDebouncer_CoalescesWithinWindow(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var callCount int
		var received []domain.FileEvent

		d := watcher.NewDebouncer(100*time.Millisecond, func(events []domain.FileEvent) {
			callCount++
			received = events
		})

		d.Add("/site/src/b.css", domain.EventChange)
		d.Add("/site/src/a.html", domain.EventAdd)
		d.Add("/site/src/b.css", domain.EventChange)

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, callCount)
		assert.Equal(t, []domain.FileEvent{
			{Path: "/site/src/a.html", Kind: domain.EventAdd},
			{Path: "/site/src/b.css", Kind: domain.EventChange},
		}, received)
	})
}

func TestDebouncer_LatestKindWins(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var received []domain.FileEvent
		d := watcher.NewDebouncer(100*time.Millisecond, func(events []domain.FileEvent) {
			received = events
		})

		d.Add("/site/src/index.html", domain.EventChange)
		d.Add("/site/src/index.html", domain.EventUnlink)

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, []domain.FileEvent{{Path: "/site/src/index.html", Kind: domain.EventUnlink}}, received)
	})
}

func TestDebouncer_TimerReset(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var mu sync.Mutex
		var callCount int

		d := watcher.NewDebouncer(100*time.Millisecond, func([]domain.FileEvent) {
			mu.Lock()
			callCount++
			mu.Unlock()
		})

		d.Add("/site/src/a.css", domain.EventChange)
		time.Sleep(50 * time.Millisecond)
		d.Add("/site/src/b.css", domain.EventChange)
		time.Sleep(50 * time.Millisecond)
		synctest.Wait()

		mu.Lock()
		assert.Equal(t, 0, callCount)
		mu.Unlock()

		time.Sleep(60 * time.Millisecond)
		synctest.Wait()

		mu.Lock()
		assert.Equal(t, 1, callCount)
		mu.Unlock()
	})
}

func TestDebouncer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var callCount int
		var received []domain.FileEvent

		d := watcher.NewDebouncer(100*time.Millisecond, func(events []domain.FileEvent) {
			callCount++
			received = events
		})

		d.Add("/site/src/a.js", domain.EventChange)
		d.Flush()

		require.Equal(t, 1, callCount)
		assert.Len(t, received, 1)

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 1, callCount, "flushed events must not fire again")

		d.Flush()
		assert.Equal(t, 1, callCount, "empty flush is a no-op")
	})
}

func TestDebouncer_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var callCount int
		d := watcher.NewDebouncer(100*time.Millisecond, func([]domain.FileEvent) {
			callCount++
		})

		d.Add("/site/src/a.js", domain.EventChange)
		d.Stop()

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 0, callCount)
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(_ *testing.T) {
		d := watcher.NewDebouncer(50*time.Millisecond, nil)
		d.Add("/site/src/a.js", domain.EventAdd)

		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		d.Flush()
	})
}
