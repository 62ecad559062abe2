package stores

import (
	"fmt"
	"time"
)

// EvaluatedOption configures an expression-backed computed store.
type EvaluatedOption func(*evaluatedConfig)

type evaluatedConfig struct {
	evaluator Evaluator
	cache     ProgramCache
	registry  *FunctionRegistry
	logger    EvaluatorLogger
	name      string
}

// EvaluatedWithEvaluator selects the expression engine. The default is the
// expr evaluator; NewCELEvaluator and NewJSEvaluator are drop-in choices.
func EvaluatedWithEvaluator(e Evaluator) EvaluatedOption {
	return func(cfg *evaluatedConfig) {
		cfg.evaluator = e
	}
}

// EvaluatedWithProgramCache shares compiled programs across definitions.
func EvaluatedWithProgramCache(cache ProgramCache) EvaluatedOption {
	return func(cfg *evaluatedConfig) {
		cfg.cache = cache
	}
}

// EvaluatedWithFunctionRegistry exposes registered functions to the
// expression.
func EvaluatedWithFunctionRegistry(registry *FunctionRegistry) EvaluatedOption {
	return func(cfg *evaluatedConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// EvaluatedWithLogger records every evaluation attempt, including failures.
func EvaluatedWithLogger(logger EvaluatorLogger) EvaluatedOption {
	return func(cfg *evaluatedConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// EvaluatedWithName opts the evaluated store into serialization under name.
func EvaluatedWithName(name string) EvaluatedOption {
	return func(cfg *evaluatedConfig) {
		cfg.name = name
	}
}

// NewEvaluated constructs a computed store whose value is produced by
// evaluating expression against an environment of the named sources' current
// values for the firing context. Every source must carry a name, since the
// expression refers to sources by name. The expression is compiled eagerly so
// a malformed expression fails at definition time, not first read.
//
// A failed evaluation leaves the binding's value unchanged and reports the
// failure through the configured EvaluatorLogger.
func NewEvaluated(expression string, sources []Dependency, opts ...EvaluatedOption) (*Computed[any], error) {
	cfg := evaluatedConfig{logger: noopEvaluatorLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	for _, source := range sources {
		if source == nil {
			return nil, fmt.Errorf("stores: evaluated store source is nil")
		}
		if source.Name() == "" {
			return nil, fmt.Errorf("stores: evaluated store requires named sources")
		}
	}

	evaluator := cfg.evaluator
	if evaluator == nil {
		var exprOpts []ExprEvaluatorOption
		if cfg.cache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(cfg.cache))
		}
		if cfg.registry != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.registry))
		}
		evaluator = NewExprEvaluator(exprOpts...)
	}

	rule, err := evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	engine := evaluatorEngineName(evaluator)
	logger := cfg.logger

	compute := func(ctx *Context, values []any) (any, error) {
		env := make(map[string]any, len(sources))
		for i, source := range sources {
			env[source.Name()] = values[i]
		}
		computeCtx := ComputeContext{
			Values:       env,
			ContextLabel: describeContext(ctx),
		}
		start := time.Now()
		value, evalErr := rule.Evaluate(computeCtx)
		duration := time.Since(start)
		evalErr = wrapEvaluationError(engine, expression, computeCtx.contextLabel(), evalErr)
		logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   engine,
			Expr:     expression,
			Context:  computeCtx.contextLabel(),
			Duration: duration,
			Err:      evalErr,
		})
		if evalErr != nil {
			return nil, evalErr
		}
		return value, nil
	}

	return newComputedDefinition[any](sources, cfg.name, compute), nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*stores.exprEvaluator":
		return "expr"
	case "*stores.celEvaluator":
		return "cel"
	case "*stores.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
