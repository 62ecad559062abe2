package stores

import "github.com/goliatone/go-stores/pkg/activity"

// WithActivityHooks attaches activity hooks to a context. Every set, action,
// mount, stop, reset, and restore on the context is fanned out to the hooks
// as a normalized activity event. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks, cfg activity.Config) ContextOption {
	emitter := activity.NewEmitter(hooks, cfg)
	return func(c *Context) {
		c.emitter = emitter
	}
}

// WithActivityEmitter attaches a pre-built emitter to a context, letting
// several contexts share one emitter configuration.
func WithActivityEmitter(emitter *activity.Emitter) ContextOption {
	return func(c *Context) {
		c.emitter = emitter
	}
}

// ActivityEmitter returns the emitter configured on the context, or nil.
func (c *Context) ActivityEmitter() *activity.Emitter {
	if c == nil {
		return nil
	}
	return c.emitter
}
