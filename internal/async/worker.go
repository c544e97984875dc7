package async

import (
	"context"
	"os"
	"strconv"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the worker pool size used when UV_THREADPOOL_SIZE is
// unset or invalid.
const DefaultWorkers = 4

// WorkersFromEnv returns the worker pool size from UV_THREADPOOL_SIZE,
// defaulting to DefaultWorkers.
func WorkersFromEnv() int {
	if raw := os.Getenv("UV_THREADPOOL_SIZE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return DefaultWorkers
}

// workerPool bounds the number of concurrently executing blocking
// operations. Each submission runs on its own goroutine but waits for a
// pool slot, so at most size operations touch the OS at once.
type workerPool struct {
	sem *semaphore.Weighted
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = DefaultWorkers
	}
	return &workerPool{sem: semaphore.NewWeighted(int64(size))}
}

func (p *workerPool) submit(fn func()) {
	go func() {
		// The background context never expires; Acquire cannot fail.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		fn()
	}()
}

// Do runs fn on the worker pool while the calling fiber is suspended, and
// returns fn's error once the completion is delivered back to the loop.
// This is the single suspension primitive every facade call is built on:
// inputs to fn must be settled before the call and its outputs are visible
// to the fiber after resumption.
//
// A context that is already cancelled fails fast without submitting. Once
// submitted, the operation always runs to completion; cancellation is
// observed only at suspension points, per the cooperative model.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f := l.mustCurrent()
	var err error
	l.workers.submit(func() {
		err = fn()
		l.Wakeup(f)
	})
	l.park()
	return err
}
