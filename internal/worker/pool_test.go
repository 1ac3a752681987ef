package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPool_GoReturnsImmediately(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	release := make(chan struct{})

	start := time.Now()
	require.True(t, p.Go("blocked", func(context.Context) { <-release }))
	require.True(t, p.Go("queued", func(context.Context) {}))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const size = 3
	p := NewPool(size, zap.NewNop())

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		p.Go("task", func(context.Context) {
			defer wg.Done()
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(size))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_RecoversPanics(t *testing.T) {
	p := NewPool(2, zap.NewNop())
	ran := make(chan struct{})

	p.Go("boom", func(context.Context) { panic("kaboom") })
	p.Go("after", func(context.Context) { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task after panic did not run")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_ShutdownRejectsAndTimesOut(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	release := make(chan struct{})
	p.Go("slow", func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
	assert.False(t, p.Go("late", func(context.Context) {}))

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}
