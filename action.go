package stores

import (
	"sync"

	"github.com/goliatone/go-stores/pkg/activity"
)

// Action wraps a named mutator so every invocation is attributable to a
// context and tagged with the action's name. Action handlers fire before the
// mutator body runs, and the binding's last-action tag carries the name while
// the mutation's set/notify handlers execute.
type Action[T any] struct {
	store *Atom[T]
	name  string
	fn    func(*Binding[T], ...any) (any, error)

	mu    sync.Mutex
	bound map[*Context]*BoundAction[T]
}

// NewAction constructs a dispatch-tagged mutator for store. fn receives the
// context-bound façade plus the caller's arguments and is expected to call
// Set on it, which triggers the usual set -> notify sequence.
func NewAction[T any](store *Atom[T], name string, fn func(b *Binding[T], args ...any) (any, error)) *Action[T] {
	return &Action[T]{
		store: store,
		name:  name,
		fn:    fn,
		bound: map[*Context]*BoundAction[T]{},
	}
}

// Name returns the action's dispatch tag.
func (a *Action[T]) Name() string { return a.name }

// Store returns the definition the action mutates.
func (a *Action[T]) Store() *Atom[T] { return a.store }

// Call dispatches the action under ctx. A nil ctx resolves the implicit
// default context, subject to the usual ambiguity rule.
func (a *Action[T]) Call(ctx *Context, args ...any) (any, error) {
	b, err := a.store.WithContext(ctx)
	if err != nil {
		return nil, err
	}
	return a.invoke(b, args)
}

func (a *Action[T]) invoke(b *Binding[T], args []any) (any, error) {
	hooks := a.store.hooksRef()
	hooks.fireAction(b.ctx, a.name)
	b.setLastAction(a.name)
	defer b.setLastAction("")

	b.ctx.emitActivity(activity.BuildStoreActionEvent(activity.EventInput{
		StoreName: a.store.Name(),
		StoreID:   a.store.ID(),
		Action:    a.name,
	}))

	return a.fn(b, args...)
}

// WithContext returns the context-bound callable for this action. Identity is
// stable: the same (action, context) pair always yields the same
// *BoundAction.
func (a *Action[T]) WithContext(ctx *Context) (*BoundAction[T], error) {
	rc, err := resolveContext(ctx)
	if err != nil {
		return nil, wrapBindingError(describeStore(a.store), describeContext(ctx), err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if bound, ok := a.bound[rc]; ok {
		return bound, nil
	}
	bound := &BoundAction[T]{action: a, ctx: rc}
	a.bound[rc] = bound
	return bound, nil
}

// BoundAction is an action pre-bound to one context.
type BoundAction[T any] struct {
	action *Action[T]
	ctx    *Context
}

// Name returns the underlying action's dispatch tag.
func (b *BoundAction[T]) Name() string { return b.action.name }

// Context returns the handle the callable is bound to.
func (b *BoundAction[T]) Context() *Context { return b.ctx }

// Call dispatches the underlying action under the bound context.
func (b *BoundAction[T]) Call(args ...any) (any, error) {
	return b.action.Call(b.ctx, args...)
}
