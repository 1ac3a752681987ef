// Package worker runs detached background tasks on a bounded pool.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Task is a unit of background work. Nothing waits for its result.
type Task func(ctx context.Context)

// Pool schedules fire-and-forget tasks. At most size tasks run at once;
// the rest wait for a slot without blocking the caller of Go.
type Pool struct {
	sem    *semaphore.Weighted
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(size int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		logger: logger,
	}
}

// Go schedules task and returns immediately. It returns false once the
// pool has been shut down. A panicking task is recovered and logged.
func (p *Pool) Go(name string, task Task) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		// Tasks are never cancelled once scheduled.
		ctx := context.Background()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.logger.Error("acquire worker slot", zap.String("task", name), zap.Error(err))
			return
		}
		defer p.sem.Release(1)

		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("background task panicked",
					zap.String("task", name),
					zap.String("panic", fmt.Sprint(r)),
					zap.ByteString("stack", debug.Stack()))
			}
		}()

		task(ctx)
	}()
	return true
}

// Shutdown stops accepting tasks and waits for in-flight ones until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
