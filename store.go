package stores

import (
	"sync"
	"sync/atomic"
)

// Dependency is the context-independent view of a store definition. Both
// Atom[T] and Computed[T] satisfy it, which lets lifecycle registration,
// computed sources, and the serializer treat definitions uniformly.
type Dependency interface {
	// ID returns the process-unique identity of the definition.
	ID() uint64
	// Name returns the serialization name, or "" for private stores.
	Name() string

	hooksRef() *lifecycleHooks
	bindAny(ctx *Context) (anyBinding, error)
}

// StoreOption configures a store definition on creation.
type StoreOption func(*storeConfig)

type storeConfig struct {
	name string
}

// WithName opts the store into serialization under name. Stores without a
// name are considered private and never appear in snapshots. Names must be
// unique within the process; a later definition with the same name replaces
// the earlier one in the restore index.
func WithName(name string) StoreOption {
	return func(cfg *storeConfig) {
		cfg.name = name
	}
}

var storeSeq atomic.Uint64

func nextStoreID() uint64 {
	return storeSeq.Add(1)
}

func applyStoreOptions(opts []StoreOption) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// nameIndex maps serialization names to definitions for snapshot restore.
var nameIndex = struct {
	mu   sync.RWMutex
	defs map[string]Dependency
}{defs: map[string]Dependency{}}

func registerName(d Dependency) {
	if d.Name() == "" {
		return
	}
	nameIndex.mu.Lock()
	nameIndex.defs[d.Name()] = d
	nameIndex.mu.Unlock()
}

func lookupName(name string) (Dependency, bool) {
	nameIndex.mu.RLock()
	d, ok := nameIndex.defs[name]
	nameIndex.mu.RUnlock()
	return d, ok
}

// Atom is an immutable store definition holding a plain mutable value per
// context. The definition itself never changes after creation; all mutable
// state lives on the per-context Binding.
type Atom[T any] struct {
	id           uint64
	name         string
	defaultValue T
	hooks        lifecycleHooks
}

// NewAtom constructs a store definition with the supplied default value.
func NewAtom[T any](defaultValue T, opts ...StoreOption) *Atom[T] {
	cfg := applyStoreOptions(opts)
	a := &Atom[T]{
		id:           nextStoreID(),
		name:         cfg.name,
		defaultValue: defaultValue,
	}
	registerName(a)
	return a
}

// ID returns the process-unique identity of the definition.
func (a *Atom[T]) ID() uint64 { return a.id }

// Name returns the serialization name, or "" for private stores.
func (a *Atom[T]) Name() string { return a.name }

func (a *Atom[T]) hooksRef() *lifecycleHooks { return &a.hooks }

// WithContext returns the binding of this definition under ctx, creating it
// on first access. The same (definition, context) pair always yields the
// same *Binding. A nil ctx resolves the implicit default context and fails
// with ErrAmbiguousContext once explicit contexts exist.
func (a *Atom[T]) WithContext(ctx *Context) (*Binding[T], error) {
	rc, err := resolveContext(ctx)
	if err != nil {
		return nil, wrapBindingError(describeStore(a), describeContext(ctx), err)
	}
	b, err := rc.binding(a, func() anyBinding {
		return newBinding[T](a, rc, a.defaultValue, nil)
	})
	if err != nil {
		return nil, err
	}
	return b.(*Binding[T]), nil
}

func (a *Atom[T]) bindAny(ctx *Context) (anyBinding, error) {
	return a.WithContext(ctx)
}

// Get resolves the implicit default context and returns the current value.
func (a *Atom[T]) Get() (T, error) {
	b, err := a.WithContext(nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return b.Get(), nil
}

// Set resolves the implicit default context and stores value.
func (a *Atom[T]) Set(value T) error {
	b, err := a.WithContext(nil)
	if err != nil {
		return err
	}
	return b.Set(value)
}

// Subscribe resolves the implicit default context and subscribes fn.
func (a *Atom[T]) Subscribe(fn func(T)) (func(), error) {
	b, err := a.WithContext(nil)
	if err != nil {
		return nil, err
	}
	return b.Subscribe(fn), nil
}

func describeStore(d Dependency) string {
	if d == nil {
		return "<nil>"
	}
	if name := d.Name(); name != "" {
		return name
	}
	return "<unnamed>"
}
