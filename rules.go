package props

import (
	"context"
	"fmt"
	"time"
)

// RuleHandler compiles expression once and returns a store-stage handler that
// evaluates it for every assignment and persists the result with SetRaw.
// A nil evaluator selects the default expr engine, wired with the program
// cache and function registry supplied at construction.
func (p *Properties) RuleHandler(evaluator Evaluator, expression string) (Handler, error) {
	rule, engine, err := p.compileRule(evaluator, expression)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, value any, msg Message, name string) error {
		result, err := p.evaluateRule(rule, engine, expression, value, msg, name)
		if err != nil {
			return err
		}
		return p.SetRaw(ctx, name, result)
	}, nil
}

// GuardHandler compiles a boolean expression and returns a pre-stage handler
// that stops the assignment with ErrRejected when it evaluates to false.
func (p *Properties) GuardHandler(evaluator Evaluator, expression string) (Handler, error) {
	rule, engine, err := p.compileRule(evaluator, expression)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, value any, msg Message, name string) error {
		result, err := p.evaluateRule(rule, engine, expression, value, msg, name)
		if err != nil {
			return err
		}
		allowed, ok := result.(bool)
		if !ok {
			return wrapEvaluationError(engine, expression, name, fmt.Errorf("guard must return bool, got %T", result))
		}
		if !allowed {
			return ErrRejected
		}
		return nil
	}, nil
}

func (p *Properties) compileRule(evaluator Evaluator, expression string) (CompiledRule, string, error) {
	if expression == "" {
		return nil, "", fmt.Errorf("props: expression must not be empty")
	}
	if evaluator == nil {
		evaluator = p.defaultEvaluator()
	}
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(expression)
	if err != nil {
		return nil, engine, wrapEvaluationError(engine, expression, "", err)
	}
	return rule, engine, nil
}

func (p *Properties) evaluateRule(rule CompiledRule, engine, expression string, value any, msg Message, name string) (any, error) {
	ctx := RuleContext{
		Value:    value,
		Message:  msg,
		Property: name,
		Scope:    p.ScopeOf(name),
	}.withDefaults()
	start := time.Now()
	result, err := rule.Evaluate(ctx)
	err = wrapEvaluationError(engine, expression, name, err)
	p.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expression,
		Property: name,
		Scope:    ctx.scopeLabel(),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Properties) defaultEvaluator() Evaluator {
	var opts []ExprEvaluatorOption
	if p.cfg.programCache != nil {
		opts = append(opts, ExprWithProgramCache(p.cfg.programCache))
	}
	if p.cfg.functions != nil {
		opts = append(opts, ExprWithFunctionRegistry(p.cfg.functions))
	}
	return NewExprEvaluator(opts...)
}

// namedEngine is implemented by the built-in evaluators.
type namedEngine interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if named, ok := e.(namedEngine); ok {
		return named.engine()
	}
	return "custom"
}
