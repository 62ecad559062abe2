package stores

import (
	"context"
	"runtime"
	"sync"
)

// taskTracker counts outstanding asynchronous operations for one context.
// The zero channel is closed whenever the counter sits at zero, letting
// AllTasks wait without polling.
type taskTracker struct {
	mu      sync.Mutex
	pending int
	zero    chan struct{}
}

func (t *taskTracker) init() {
	t.zero = closedChan()
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *taskTracker) start() {
	t.mu.Lock()
	t.pending++
	if t.pending == 1 {
		t.zero = make(chan struct{})
	}
	t.mu.Unlock()
}

// end decrements the counter, saturating at zero so a stray extra call can
// never corrupt the count for other tasks.
func (t *taskTracker) end() {
	t.mu.Lock()
	if t.pending > 0 {
		t.pending--
		if t.pending == 0 {
			close(t.zero)
		}
	}
	t.mu.Unlock()
}

func (t *taskTracker) reset() {
	t.mu.Lock()
	if t.pending > 0 {
		t.pending = 0
		close(t.zero)
	}
	t.mu.Unlock()
}

// StartTask increments the pending-task counter for ctx and returns the end
// func that decrements it. The end func is idempotent: calling it more than
// once has no effect beyond the first call. A nil ctx resolves the implicit
// default context.
func StartTask(ctx *Context) (func(), error) {
	rc, err := resolveContext(ctx)
	if err != nil {
		return nil, err
	}
	rc.tasks.start()
	var once sync.Once
	return func() {
		once.Do(rc.tasks.end)
	}, nil
}

// Task runs body bracketed by a tracked start/end pair. The end always
// executes, and body's outcome propagates unchanged, so a failing task still
// lets AllTasks drain.
func Task[T any](ctx *Context, body func() (T, error)) (T, error) {
	end, err := StartTask(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer end()
	return body()
}

// AllTasks blocks until the pending-task counter for ctx is zero and stays
// zero across a scheduling yield, so tasks started by other tasks during the
// drain window are still awaited. Unrelated contexts never influence the
// wait. stdctx bounds the wait; a task that never ends otherwise blocks
// forever, which is a caller bug, not a tracker failure.
func AllTasks(stdctx context.Context, ctx *Context) error {
	rc, err := resolveContext(ctx)
	if err != nil {
		return err
	}
	for {
		rc.tasks.mu.Lock()
		if rc.tasks.pending == 0 {
			rc.tasks.mu.Unlock()
			// Yield once so a task finishing this instant can hand off to a
			// successor before we conclude the drain.
			runtime.Gosched()
			rc.tasks.mu.Lock()
			settled := rc.tasks.pending == 0
			rc.tasks.mu.Unlock()
			if settled {
				return nil
			}
			continue
		}
		zero := rc.tasks.zero
		rc.tasks.mu.Unlock()

		select {
		case <-zero:
		case <-stdctx.Done():
			return stdctx.Err()
		}
	}
}
