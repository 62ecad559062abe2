package stores

import "reflect"

// Computed is a store definition derived from one or more source
// definitions. Its per-context binding is read-only: the value is produced by
// the compute function from the sources' bindings under the same context.
//
// While a computed binding is mounted it subscribes to its sources and
// re-broadcasts on every source change; unmounted bindings recompute lazily
// on each read instead.
type Computed[T any] struct {
	id      uint64
	name    string
	sources []Dependency
	compute func(*Context, []any) (T, error)
	hooks   lifecycleHooks
}

// NewComputed constructs a derived store definition. compute receives the
// sources' current values in declaration order.
func NewComputed[T any](sources []Dependency, compute func(values []any) T, opts ...StoreOption) *Computed[T] {
	cfg := applyStoreOptions(opts)
	c := &Computed[T]{
		id:      nextStoreID(),
		name:    cfg.name,
		sources: append([]Dependency{}, sources...),
		compute: func(_ *Context, values []any) (T, error) {
			return compute(values), nil
		},
	}
	registerName(c)
	return c
}

func newComputedDefinition[T any](sources []Dependency, name string, compute func(*Context, []any) (T, error)) *Computed[T] {
	c := &Computed[T]{
		id:      nextStoreID(),
		name:    name,
		sources: append([]Dependency{}, sources...),
		compute: compute,
	}
	registerName(c)
	return c
}

// ID returns the process-unique identity of the definition.
func (c *Computed[T]) ID() uint64 { return c.id }

// Name returns the serialization name, or "" for private stores.
func (c *Computed[T]) Name() string { return c.name }

// Sources returns the definitions this store derives from.
func (c *Computed[T]) Sources() []Dependency {
	return append([]Dependency{}, c.sources...)
}

func (c *Computed[T]) hooksRef() *lifecycleHooks { return &c.hooks }

// WithContext returns the binding of this definition under ctx, creating it
// on first access. Identity is stable per (definition, context).
func (c *Computed[T]) WithContext(ctx *Context) (*Binding[T], error) {
	rc, err := resolveContext(ctx)
	if err != nil {
		return nil, wrapBindingError(describeStore(c), describeContext(ctx), err)
	}
	b, err := rc.binding(c, func() anyBinding {
		var zero T
		nb := newBinding[T](c, rc, zero, c.compute)
		nb.sources = c.sources
		return nb
	})
	if err != nil {
		return nil, err
	}
	return b.(*Binding[T]), nil
}

func (c *Computed[T]) bindAny(ctx *Context) (anyBinding, error) {
	return c.WithContext(ctx)
}

// Get resolves the implicit default context and returns the derived value.
func (c *Computed[T]) Get() (T, error) {
	b, err := c.WithContext(nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return b.Get(), nil
}

// refresh recomputes a computed binding when its cached value may be stale:
// on first read, after a reset, or whenever the binding is unmounted and
// therefore not receiving source notifications.
func (b *Binding[T]) refresh() {
	if b.compute == nil {
		return
	}
	b.mu.Lock()
	stale := b.dirty || b.sourceUnbinds == nil
	b.mu.Unlock()
	if !stale {
		return
	}

	values, ok := b.sourceValues()
	if !ok {
		return
	}
	value, err := b.compute(b.ctx, values)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.dirty = false
	if !reflect.DeepEqual(b.value, value) {
		b.value = value
	}
	b.mu.Unlock()
}

// recomputeBroadcast re-derives the value and runs the full apply &
// broadcast sequence when it changed. Invoked from source subscriptions.
func (b *Binding[T]) recomputeBroadcast() {
	values, ok := b.sourceValues()
	if !ok {
		return
	}
	value, err := b.compute(b.ctx, values)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.dirty = false
	b.mu.Unlock()
	b.apply(value)
}

func (b *Binding[T]) sourceValues() ([]any, bool) {
	values := make([]any, len(b.sources))
	for i, source := range b.sources {
		sb, err := source.bindAny(b.ctx)
		if err != nil {
			return nil, false
		}
		values[i] = sb.valueAny()
	}
	return values, true
}

// attachSources subscribes the computed binding to its sources under the
// same context. No-op for atoms or when already attached.
func (b *Binding[T]) attachSources() {
	if b.compute == nil || len(b.sources) == 0 {
		return
	}
	b.mu.Lock()
	attached := b.sourceUnbinds != nil
	b.mu.Unlock()
	if attached {
		return
	}

	b.refresh()

	unbinds := make([]func(), 0, len(b.sources))
	for _, source := range b.sources {
		sb, err := source.bindAny(b.ctx)
		if err != nil {
			continue
		}
		unbinds = append(unbinds, sb.listenAny(func(any) {
			b.recomputeBroadcast()
		}))
	}
	b.mu.Lock()
	b.sourceUnbinds = unbinds
	b.mu.Unlock()
}

func (b *Binding[T]) detachSources() {
	b.mu.Lock()
	unbinds := b.sourceUnbinds
	b.sourceUnbinds = nil
	if b.compute != nil {
		b.dirty = true
	}
	b.mu.Unlock()
	for _, unbind := range unbinds {
		unbind()
	}
}
