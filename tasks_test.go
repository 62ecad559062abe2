package stores

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAllTasksReturnsWhenIdle(t *testing.T) {
	resetProcess(t)

	ctx := NewContext()
	if err := AllTasks(context.Background(), ctx); err != nil {
		t.Fatalf("expected idle context to drain immediately, got %v", err)
	}
}

func TestAllTasksWaitsForPendingTasks(t *testing.T) {
	resetProcess(t)

	ctx := NewContext()

	end, err := StartTask(ctx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = AllTasks(context.Background(), ctx)
	}()

	select {
	case <-done:
		t.Fatal("AllTasks returned while a task was pending")
	case <-time.After(20 * time.Millisecond):
	}

	end()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AllTasks did not return after the task ended")
	}
}

func TestAllTasksAwaitsNestedSpawn(t *testing.T) {
	resetProcess(t)

	ctx := NewContext()

	var mu sync.Mutex
	var order []string

	endOuter, err := StartTask(ctx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	go func() {
		endInner, err := StartTask(ctx)
		if err != nil {
			t.Errorf("unexpected nested start error: %v", err)
			endOuter()
			return
		}
		go func() {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			order = append(order, "inner")
			mu.Unlock()
			endInner()
		}()
		mu.Lock()
		order = append(order, "outer")
		mu.Unlock()
		endOuter()
	}()

	if err := AllTasks(context.Background(), ctx); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("expected drain to cover the nested task, got %v", order)
	}
}

func TestAllTasksIgnoresOtherContexts(t *testing.T) {
	resetProcess(t)

	ctxA := NewContext(WithLabel("a"))
	ctxB := NewContext(WithLabel("b"))

	end, err := StartTask(ctxB)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer end()

	drainCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := AllTasks(drainCtx, ctxA); err != nil {
		t.Fatalf("expected unrelated context to drain immediately, got %v", err)
	}
}

func TestAllTasksHonorsCancellation(t *testing.T) {
	resetProcess(t)

	ctx := NewContext()
	end, err := StartTask(ctx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer end()

	drainCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := AllTasks(drainCtx, ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestEndFuncIsIdempotent(t *testing.T) {
	resetProcess(t)

	ctx := NewContext()

	endOne, _ := StartTask(ctx)
	endTwo, _ := StartTask(ctx)

	endOne()
	endOne()
	endOne()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = AllTasks(context.Background(), ctx)
	}()

	select {
	case <-done:
		t.Fatal("expected the second task to still be pending")
	case <-time.After(20 * time.Millisecond):
	}

	endTwo()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AllTasks did not return after both tasks ended")
	}
}

func TestTaskPropagatesResultAndError(t *testing.T) {
	resetProcess(t)

	ctx := NewContext()

	value, err := Task(ctx, func() (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("unexpected task error: %v", err)
	}
	if value != 42 {
		t.Fatalf("expected 42, got %d", value)
	}

	sentinel := errors.New("boom")
	_, err = Task(ctx, func() (int, error) { return 0, sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	if err := AllTasks(context.Background(), ctx); err != nil {
		t.Fatalf("expected failed task to still release the counter, got %v", err)
	}
}

func TestStartTaskAmbiguousContext(t *testing.T) {
	resetProcess(t)

	_ = NewContext()

	if _, err := StartTask(nil); !errors.Is(err, ErrAmbiguousContext) {
		t.Fatalf("expected ErrAmbiguousContext, got %v", err)
	}
	if err := AllTasks(context.Background(), nil); !errors.Is(err, ErrAmbiguousContext) {
		t.Fatalf("expected ErrAmbiguousContext, got %v", err)
	}
}

func TestResetContextClearsPendingTasks(t *testing.T) {
	resetProcess(t)

	ctx := NewContext()
	_, err := StartTask(ctx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	if err := ResetContext(ctx); err != nil {
		t.Fatalf("unexpected reset error: %v", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := AllTasks(drainCtx, ctx); err != nil {
		t.Fatalf("expected reset to clear pending tasks, got %v", err)
	}
}
