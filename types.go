package stores

import "time"

// ComputeContext carries the inputs an evaluator sees when deriving a value
// for one context: the named source values, the firing context's label, and
// optional caller-supplied arguments and metadata.
type ComputeContext struct {
	Values       map[string]any
	Now          *time.Time
	Args         map[string]any
	Metadata     map[string]any
	ContextLabel string
}

func (ctx ComputeContext) withDefaultNow() ComputeContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx ComputeContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx ComputeContext) withDefaultMaps() ComputeContext {
	if ctx.Values == nil {
		ctx.Values = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx ComputeContext) withDefaults() ComputeContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx ComputeContext) contextLabel() string {
	if ctx.ContextLabel != "" {
		return ctx.ContextLabel
	}
	return "unknown"
}

// Evaluator executes expressions against a compute context.
type Evaluator interface {
	Evaluate(ctx ComputeContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx ComputeContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}
