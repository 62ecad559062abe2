package stores

import (
	"errors"
	"reflect"
	"testing"
)

func TestComputedDerivesFromSources(t *testing.T) {
	resetProcess(t)

	base := NewAtom(0)
	doubled := NewComputed([]Dependency{base}, func(values []any) int {
		return values[0].(int) * 2
	})

	ctx := NewContext()
	bindBase, _ := base.WithContext(ctx)
	bindDoubled, err := doubled.WithContext(ctx)
	if err != nil {
		t.Fatalf("unexpected bind error: %v", err)
	}

	var seen []int
	unbind := bindDoubled.Listen(func(v int) { seen = append(seen, v) })
	defer unbind()

	if got := bindDoubled.Get(); got != 0 {
		t.Fatalf("expected initial 0, got %d", got)
	}

	_ = bindBase.Set(5)
	if got := bindDoubled.Get(); got != 10 {
		t.Fatalf("expected 10 after source change, got %d", got)
	}

	want := []int{10}
	if !reflect.DeepEqual(want, seen) {
		t.Fatalf("expected broadcasts %v, got %v", want, seen)
	}
}

func TestComputedIndependentPerContext(t *testing.T) {
	resetProcess(t)

	base := NewAtom(0)
	doubled := NewComputed([]Dependency{base}, func(values []any) int {
		return values[0].(int) * 2
	})

	ctxA := NewContext(WithLabel("a"))
	ctxB := NewContext(WithLabel("b"))

	baseA, _ := base.WithContext(ctxA)
	baseB, _ := base.WithContext(ctxB)
	doubledA, _ := doubled.WithContext(ctxA)
	doubledB, _ := doubled.WithContext(ctxB)

	_ = baseA.Set(5)
	_ = baseB.Set(10)

	if got := doubledA.Get(); got != 10 {
		t.Fatalf("expected 10 in context a, got %d", got)
	}
	if got := doubledB.Get(); got != 20 {
		t.Fatalf("expected 20 in context b, got %d", got)
	}
}

func TestComputedLazyWithoutListeners(t *testing.T) {
	resetProcess(t)

	base := NewAtom(1)
	computes := 0
	derived := NewComputed([]Dependency{base}, func(values []any) int {
		computes++
		return values[0].(int) + 1
	})

	ctx := NewContext()
	bindBase, _ := base.WithContext(ctx)
	bindDerived, _ := derived.WithContext(ctx)

	_ = bindBase.Set(2)
	_ = bindBase.Set(3)
	if computes != 0 {
		t.Fatalf("expected no recompute without readers, got %d", computes)
	}

	if got := bindDerived.Get(); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestComputedMultipleSources(t *testing.T) {
	resetProcess(t)

	first := NewAtom(2)
	second := NewAtom(3)
	sum := NewComputed([]Dependency{first, second}, func(values []any) int {
		return values[0].(int) + values[1].(int)
	})

	ctx := NewContext()
	bindSum, _ := sum.WithContext(ctx)
	if got := bindSum.Get(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}

	bindSecond, _ := second.WithContext(ctx)
	_ = bindSecond.Set(8)
	if got := bindSum.Get(); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}

func TestComputedChain(t *testing.T) {
	resetProcess(t)

	base := NewAtom(1)
	doubled := NewComputed([]Dependency{base}, func(values []any) int {
		return values[0].(int) * 2
	})
	quadrupled := NewComputed([]Dependency{doubled}, func(values []any) int {
		return values[0].(int) * 2
	})

	ctx := NewContext()
	bindBase, _ := base.WithContext(ctx)
	bindQuad, _ := quadrupled.WithContext(ctx)

	var seen []int
	unbind := bindQuad.Listen(func(v int) { seen = append(seen, v) })
	defer unbind()

	_ = bindBase.Set(3)

	if got := bindQuad.Get(); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	want := []int{12}
	if !reflect.DeepEqual(want, seen) {
		t.Fatalf("expected broadcasts %v, got %v", want, seen)
	}
}

func TestComputedRefusesSet(t *testing.T) {
	resetProcess(t)

	base := NewAtom(0)
	derived := NewComputed([]Dependency{base}, func(values []any) int {
		return values[0].(int)
	})

	ctx := NewContext()
	b, _ := derived.WithContext(ctx)

	if err := b.Set(99); !errors.Is(err, ErrReadOnlyStore) {
		t.Fatalf("expected ErrReadOnlyStore, got %v", err)
	}
}

func TestComputedStopsRecomputingAfterUnmount(t *testing.T) {
	resetProcess(t)

	base := NewAtom(0)
	computes := 0
	derived := NewComputed([]Dependency{base}, func(values []any) int {
		computes++
		return values[0].(int)
	})

	ctx := NewContext()
	bindBase, _ := base.WithContext(ctx)
	bindDerived, _ := derived.WithContext(ctx)

	unbind := bindDerived.Listen(func(int) {})
	_ = bindBase.Set(1)
	pushed := computes
	unbind()

	_ = bindBase.Set(2)
	if computes != pushed {
		t.Fatalf("expected no push recompute after unmount, got %d extra", computes-pushed)
	}

	if got := bindDerived.Get(); got != 2 {
		t.Fatalf("expected lazy read to catch up, got %d", got)
	}
}
