package stores

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/goliatone/go-stores/pkg/activity"
)

// RuntimeMode gates development-only entry points such as ResetContext and
// CleanStores. The process starts in ModeDevelopment.
type RuntimeMode int32

const (
	// ModeDevelopment permits reset helpers; intended for tests and tooling.
	ModeDevelopment RuntimeMode = iota
	// ModeProduction makes every reset entry point fail with ErrProductionReset.
	ModeProduction
)

func (m RuntimeMode) String() string {
	switch m {
	case ModeDevelopment:
		return "development"
	case ModeProduction:
		return "production"
	default:
		return "unknown"
	}
}

var runtimeMode atomic.Int32

// SetRuntimeMode switches the process runtime mode.
func SetRuntimeMode(mode RuntimeMode) {
	runtimeMode.Store(int32(mode))
}

// CurrentRuntimeMode reports the active runtime mode.
func CurrentRuntimeMode() RuntimeMode {
	return RuntimeMode(runtimeMode.Load())
}

func guardReset() error {
	if CurrentRuntimeMode() == ModeProduction {
		return ErrProductionReset
	}
	return nil
}

// Context is an opaque handle identifying one isolated instantiation of the
// store graph. Bindings, lifecycle events, and pending tasks are all scoped
// to a handle; nothing is ever shared between two handles.
type Context struct {
	id    string
	label string

	mu       sync.Mutex
	bindings map[uint64]anyBinding

	tasks   taskTracker
	emitter *activity.Emitter
}

// ContextOption configures a Context on creation.
type ContextOption func(*Context)

// WithLabel attaches a debug label used in errors and activity events.
func WithLabel(label string) ContextOption {
	return func(c *Context) {
		c.label = label
	}
}

// NewContext allocates a fresh, empty context handle. No bindings exist until
// stores are resolved through it. After the first NewContext call, resolving
// a store with a nil context fails with ErrAmbiguousContext.
func NewContext(opts ...ContextOption) *Context {
	c := newContext(opts)
	process.mu.Lock()
	process.contexts[c] = struct{}{}
	process.explicit = true
	process.mu.Unlock()
	return c
}

func newContext(opts []ContextOption) *Context {
	c := &Context{
		id:       uuid.NewString(),
		bindings: map[uint64]anyBinding{},
	}
	c.tasks.init()
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ID returns the unique identifier of the handle.
func (c *Context) ID() string { return c.id }

// Label returns the debug label, or "" when none was supplied.
func (c *Context) Label() string { return c.label }

func (c *Context) String() string {
	if c.label != "" {
		return c.label
	}
	return c.id
}

// binding returns the memoized bound instance for the definition id, invoking
// make on first access. Construction happens under the context lock so a
// half-built binding is never observable.
func (c *Context) binding(d Dependency, construct func() anyBinding) (anyBinding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.bindings[d.ID()]; ok {
		return b, nil
	}
	b := construct()
	c.bindings[d.ID()] = b
	return b, nil
}

func (c *Context) snapshotBindings() []anyBinding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]anyBinding, 0, len(c.bindings))
	for _, b := range c.bindings {
		out = append(out, b)
	}
	return out
}

func (c *Context) dropBinding(id uint64) {
	c.mu.Lock()
	delete(c.bindings, id)
	c.mu.Unlock()
}

func (c *Context) emitActivity(event activity.Event) {
	if c == nil || !c.emitter.Enabled() {
		return
	}
	event.ContextID = c.id
	if event.ContextLabel == "" {
		event.ContextLabel = c.label
	}
	_ = c.emitter.Emit(context.Background(), event)
}

// process tracks every live context plus the implicit default handle.
var process = struct {
	mu       sync.Mutex
	contexts map[*Context]struct{}
	def      *Context
	explicit bool
}{contexts: map[*Context]struct{}{}}

// DefaultContext returns the implicit process-wide context, creating it on
// first access. It is recreated automatically when accessed after a full
// reset.
func DefaultContext() *Context {
	process.mu.Lock()
	defer process.mu.Unlock()
	return defaultContextLocked()
}

func defaultContextLocked() *Context {
	if process.def == nil {
		process.def = newContext(nil)
		process.def.label = "default"
		process.contexts[process.def] = struct{}{}
	}
	return process.def
}

// resolveContext maps a nil handle onto the implicit default. Once any
// explicit context exists the implicit fallback is ambiguous and refused.
func resolveContext(ctx *Context) (*Context, error) {
	if ctx != nil {
		return ctx, nil
	}
	process.mu.Lock()
	defer process.mu.Unlock()
	if process.explicit {
		return nil, ErrAmbiguousContext
	}
	return defaultContextLocked(), nil
}

// ResetContext discards every bound instance and pending task entry scoped to
// ctx, detaching all listeners, as if the context had never been used. A nil
// ctx resets the implicit default context. Development-only.
func ResetContext(ctx *Context) error {
	if err := guardReset(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = DefaultContext()
	}
	ctx.emitActivity(activity.BuildContextResetEvent(activity.EventInput{}))
	resetContextState(ctx)
	return nil
}

func resetContextState(ctx *Context) {
	ctx.mu.Lock()
	bindings := ctx.bindings
	ctx.bindings = map[uint64]anyBinding{}
	ctx.mu.Unlock()
	for _, b := range bindings {
		b.detach()
	}
	ctx.tasks.reset()
}

// ResetAllContexts performs ResetContext for every context tracked by the
// process, including the implicit default, and returns the process to its
// pristine state: the default handle is recreated on next access and the
// implicit fallback becomes unambiguous again. Development-only, intended
// strictly for teardown between test cases.
func ResetAllContexts() error {
	if err := guardReset(); err != nil {
		return err
	}
	process.mu.Lock()
	contexts := make([]*Context, 0, len(process.contexts))
	for c := range process.contexts {
		contexts = append(contexts, c)
	}
	process.contexts = map[*Context]struct{}{}
	process.def = nil
	process.explicit = false
	process.mu.Unlock()

	for _, c := range contexts {
		c.emitActivity(activity.BuildContextResetEvent(activity.EventInput{}))
		resetContextState(c)
	}
	return nil
}

// CleanStores resets the bindings of the given definitions across every
// tracked context: the value returns to the default, mock markers are
// removed, and all listeners are dropped. Development-only, mirroring the
// per-store reset capability used between test cases.
func CleanStores(defs ...Dependency) error {
	if err := guardReset(); err != nil {
		return err
	}
	process.mu.Lock()
	contexts := make([]*Context, 0, len(process.contexts))
	for c := range process.contexts {
		contexts = append(contexts, c)
	}
	process.mu.Unlock()

	for _, c := range contexts {
		for _, d := range defs {
			if d == nil {
				continue
			}
			c.mu.Lock()
			b, ok := c.bindings[d.ID()]
			c.mu.Unlock()
			if !ok {
				continue
			}
			b.clean()
			c.dropBinding(d.ID())
		}
	}
	return nil
}

func describeContext(ctx *Context) string {
	if ctx == nil {
		return "default"
	}
	return ctx.String()
}
