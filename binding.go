package stores

import (
	"reflect"
	"sync"

	"github.com/goliatone/go-stores/pkg/activity"
)

// anyBinding is the type-erased view of a bound instance used by the
// serializer, the reset helpers, and computed source subscriptions.
type anyBinding interface {
	definition() Dependency
	boundContext() *Context
	valueAny() any
	loadValue(value any) error
	listenAny(fn func(any)) func()
	detach()
	clean()
}

type listenerEntry[T any] struct {
	id uint64
	fn func(T)
}

// Binding is the concrete, mutable state of one store definition under one
// context: current value, listener set, mount pin count, and the last-action
// tag. Bindings are created lazily through WithContext and are owned
// exclusively by their (definition, context) pair.
type Binding[T any] struct {
	store Dependency
	ctx   *Context

	mu          sync.Mutex
	value       T
	listeners   []listenerEntry[T]
	listenerSeq uint64
	pins        int
	mounted     bool
	lastAction  string
	mocked      bool

	// computed plumbing; nil for atoms
	compute       func(*Context, []any) (T, error)
	sources       []Dependency
	sourceUnbinds []func()
	dirty         bool
}

func newBinding[T any](store Dependency, ctx *Context, value T, compute func(*Context, []any) (T, error)) *Binding[T] {
	return &Binding[T]{
		store:   store,
		ctx:     ctx,
		value:   value,
		compute: compute,
		dirty:   compute != nil,
	}
}

func (b *Binding[T]) definition() Dependency { return b.store }

// Context returns the handle this binding is scoped to.
func (b *Binding[T]) Context() *Context { return b.ctx }

func (b *Binding[T]) boundContext() *Context { return b.ctx }

// Get returns the current value, recomputing first for computed bindings
// whose sources changed since the last read.
func (b *Binding[T]) Get() T {
	b.refresh()
	b.mu.Lock()
	v := b.value
	b.mu.Unlock()
	return v
}

// Value is an alias for Get, matching the definition's capability surface.
func (b *Binding[T]) Value() T { return b.Get() }

// LastAction returns the name of the action currently mutating this binding,
// or "" outside of an action dispatch.
func (b *Binding[T]) LastAction() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAction
}

// SetMocked flips the test-only mock marker. CleanStores removes it.
func (b *Binding[T]) SetMocked(mocked bool) {
	b.mu.Lock()
	b.mocked = mocked
	b.mu.Unlock()
}

// Mocked reports the test-only mock marker.
func (b *Binding[T]) Mocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mocked
}

// Set stores value, firing all set handlers, then all notify handlers, then
// the binding's own listeners, in registration order. Setting a value equal
// to the current one is a no-op. Computed bindings refuse Set.
func (b *Binding[T]) Set(value T) error {
	if b.compute != nil {
		return wrapBindingError(describeStore(b.store), describeContext(b.ctx), ErrReadOnlyStore)
	}
	b.apply(value)
	return nil
}

// apply runs the set -> assign -> notify -> listeners sequence. Hooks and
// listeners run outside the binding lock so handlers may re-enter the store.
func (b *Binding[T]) apply(value T) {
	b.mu.Lock()
	old := b.value
	if reflect.DeepEqual(old, value) {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	hooks := b.store.hooksRef()
	hooks.fireSet(b.ctx, value)

	b.mu.Lock()
	b.value = value
	listeners := append([]listenerEntry[T]{}, b.listeners...)
	b.mu.Unlock()

	hooks.fireNotify(b.ctx, value)
	for _, entry := range listeners {
		entry.fn(value)
	}

	b.ctx.emitActivity(activity.BuildStoreSetEvent(activity.EventInput{
		StoreName: b.store.Name(),
		StoreID:   b.store.ID(),
		OldValue:  old,
		NewValue:  value,
	}))
}

// Listen registers fn for future value changes without touching the current
// value. The returned func unregisters; the first listener (or pin) fires
// mount then start, losing the last one fires stop.
func (b *Binding[T]) Listen(fn func(T)) func() {
	b.mu.Lock()
	b.listenerSeq++
	id := b.listenerSeq
	b.listeners = append(b.listeners, listenerEntry[T]{id: id, fn: fn})
	activated := b.activateLocked()
	b.mu.Unlock()

	if activated {
		b.fireMount()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			for i, entry := range b.listeners {
				if entry.id == id {
					b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
					break
				}
			}
			deactivated := b.deactivateLocked()
			b.mu.Unlock()
			if deactivated {
				b.fireStop()
			}
		})
	}
}

// Subscribe is Listen plus an immediate invocation with the current value.
func (b *Binding[T]) Subscribe(fn func(T)) func() {
	unbind := b.Listen(fn)
	fn(b.Get())
	return unbind
}

// KeepMount pins the mount count above zero with no listener attached,
// forcing mount/start to fire and suppressing stop until released.
func (b *Binding[T]) KeepMount() func() {
	b.mu.Lock()
	b.pins++
	activated := b.activateLocked()
	b.mu.Unlock()

	if activated {
		b.fireMount()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.pins > 0 {
				b.pins--
			}
			deactivated := b.deactivateLocked()
			b.mu.Unlock()
			if deactivated {
				b.fireStop()
			}
		})
	}
}

func (b *Binding[T]) activateLocked() bool {
	if b.mounted {
		return false
	}
	if len(b.listeners)+b.pins == 0 {
		return false
	}
	b.mounted = true
	return true
}

func (b *Binding[T]) deactivateLocked() bool {
	if !b.mounted {
		return false
	}
	if len(b.listeners)+b.pins > 0 {
		return false
	}
	b.mounted = false
	return true
}

// fireMount runs every mount handler, then every start handler, in global
// registration order. For computed bindings it also attaches the source
// subscriptions that keep the value live.
func (b *Binding[T]) fireMount() {
	b.attachSources()
	hooks := b.store.hooksRef()
	hooks.fireMount(b.ctx)
	hooks.fireStart(b.ctx)
	b.ctx.emitActivity(activity.BuildStoreMountedEvent(activity.EventInput{
		StoreName: b.store.Name(),
		StoreID:   b.store.ID(),
	}))
}

func (b *Binding[T]) fireStop() {
	b.detachSources()
	b.store.hooksRef().fireStop(b.ctx)
	b.ctx.emitActivity(activity.BuildStoreStoppedEvent(activity.EventInput{
		StoreName: b.store.Name(),
		StoreID:   b.store.ID(),
	}))
}

// valueAny exposes the current value for serialization.
func (b *Binding[T]) valueAny() any { return b.Get() }

// loadValue assigns a restored snapshot value. The set/notify broadcast
// still fires (restoration is apply & broadcast) but no action event does.
func (b *Binding[T]) loadValue(value any) error {
	typed, err := coerceValue[T](value)
	if err != nil {
		return wrapBindingError(describeStore(b.store), describeContext(b.ctx), err)
	}
	b.mu.Lock()
	b.dirty = false
	b.mu.Unlock()
	b.apply(typed)
	return nil
}

func (b *Binding[T]) listenAny(fn func(any)) func() {
	return b.Listen(func(v T) { fn(v) })
}

func (b *Binding[T]) setLastAction(name string) {
	b.mu.Lock()
	b.lastAction = name
	b.mu.Unlock()
}

// detach severs the binding from its definition: listeners, pins, and source
// subscriptions are dropped without firing stop. Used by ResetContext, where
// the context is treated as never having existed.
func (b *Binding[T]) detach() {
	b.detachSources()
	b.mu.Lock()
	b.listeners = nil
	b.pins = 0
	b.mounted = false
	b.lastAction = ""
	b.mu.Unlock()
}

// clean resets the binding for test teardown: mock marker removed, value
// back to the default, then listeners unsubscribed (firing stop if mounted).
func (b *Binding[T]) clean() {
	b.mu.Lock()
	b.mocked = false
	wasMounted := b.mounted
	b.listeners = nil
	b.pins = 0
	b.mounted = false
	b.lastAction = ""
	b.mu.Unlock()
	if wasMounted {
		b.fireStop()
	}
}

func coerceValue[T any](value any) (T, error) {
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	return hydrateValue[T](value)
}
