package stores

import "sync"

// LifecycleEvent is delivered to mount, start, and stop handlers. Ctx is the
// context the transition fired for; handlers re-derive the bound instance via
// the definition's WithContext.
type LifecycleEvent struct {
	Ctx *Context
}

// ActionEvent is delivered to action handlers before the mutator body runs.
type ActionEvent struct {
	Ctx    *Context
	Action string
}

// ValueEvent is delivered to set and notify handlers with the value being
// applied.
type ValueEvent struct {
	Ctx      *Context
	NewValue any
}

type hookEntry[F any] struct {
	id uint64
	fn F
}

// lifecycleHooks holds the six per-definition handler lists. Registration
// order is global across contexts: a handler registered once fires once per
// qualifying transition, per context, in the order it was registered.
type lifecycleHooks struct {
	mu     sync.Mutex
	seq    uint64
	mount  []hookEntry[func(LifecycleEvent)]
	start  []hookEntry[func(LifecycleEvent)]
	stop   []hookEntry[func(LifecycleEvent)]
	action []hookEntry[func(ActionEvent)]
	set    []hookEntry[func(ValueEvent)]
	notify []hookEntry[func(ValueEvent)]
}

func addHook[F any](h *lifecycleHooks, list *[]hookEntry[F], fn F) func() {
	h.mu.Lock()
	h.seq++
	id := h.seq
	*list = append(*list, hookEntry[F]{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			for i, entry := range *list {
				if entry.id == id {
					*list = append((*list)[:i], (*list)[i+1:]...)
					break
				}
			}
			h.mu.Unlock()
		})
	}
}

func snapshotHooks[F any](h *lifecycleHooks, list []hookEntry[F]) []F {
	h.mu.Lock()
	out := make([]F, len(list))
	for i, entry := range list {
		out[i] = entry.fn
	}
	h.mu.Unlock()
	return out
}

func (h *lifecycleHooks) fireMount(ctx *Context) {
	for _, fn := range snapshotHooks(h, h.mount) {
		fn(LifecycleEvent{Ctx: ctx})
	}
}

func (h *lifecycleHooks) fireStart(ctx *Context) {
	for _, fn := range snapshotHooks(h, h.start) {
		fn(LifecycleEvent{Ctx: ctx})
	}
}

func (h *lifecycleHooks) fireStop(ctx *Context) {
	for _, fn := range snapshotHooks(h, h.stop) {
		fn(LifecycleEvent{Ctx: ctx})
	}
}

func (h *lifecycleHooks) fireAction(ctx *Context, name string) {
	for _, fn := range snapshotHooks(h, h.action) {
		fn(ActionEvent{Ctx: ctx, Action: name})
	}
}

func (h *lifecycleHooks) fireSet(ctx *Context, value any) {
	for _, fn := range snapshotHooks(h, h.set) {
		fn(ValueEvent{Ctx: ctx, NewValue: value})
	}
}

func (h *lifecycleHooks) fireNotify(ctx *Context, value any) {
	for _, fn := range snapshotHooks(h, h.notify) {
		fn(ValueEvent{Ctx: ctx, NewValue: value})
	}
}

// OnMount registers fn to run when a binding of d gains its first listener or
// pin, before any start handler. Returns an unregister func.
func OnMount(d Dependency, fn func(LifecycleEvent)) func() {
	h := d.hooksRef()
	return addHook(h, &h.mount, fn)
}

// OnStart registers fn to run after every mount handler on the same
// transition. Returns an unregister func.
func OnStart(d Dependency, fn func(LifecycleEvent)) func() {
	h := d.hooksRef()
	return addHook(h, &h.start, fn)
}

// OnStop registers fn to run when a binding of d loses its last listener and
// holds no pin. Returns an unregister func.
func OnStop(d Dependency, fn func(LifecycleEvent)) func() {
	h := d.hooksRef()
	return addHook(h, &h.stop, fn)
}

// OnAction registers fn to run before an action's mutator body executes.
// Returns an unregister func.
func OnAction(d Dependency, fn func(ActionEvent)) func() {
	h := d.hooksRef()
	return addHook(h, &h.action, fn)
}

// OnSet registers fn to run before a new value is assigned to a binding of
// d. Returns an unregister func.
func OnSet(d Dependency, fn func(ValueEvent)) func() {
	h := d.hooksRef()
	return addHook(h, &h.set, fn)
}

// OnNotify registers fn to run after assignment, before the binding's own
// listeners observe the value. Returns an unregister func.
func OnNotify(d Dependency, fn func(ValueEvent)) func() {
	h := d.hooksRef()
	return addHook(h, &h.notify, fn)
}
