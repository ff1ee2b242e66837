package props

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "value > missing", "threshold", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "value > missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Property != "threshold" {
		t.Fatalf("expected property metadata, got %q", evalErr.Property)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "value * 2", "count", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "value * 2" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Property != "count" {
		t.Fatalf("property should be filled, got %q", existing.Property)
	}
}

func TestWrapEvaluatorErrorKeepsPrefixedErrors(t *testing.T) {
	prefixed := errors.New("props: already wrapped")
	if got := wrapEvaluatorError("lua", prefixed); got != prefixed {
		t.Fatalf("expected prefixed error returned as-is, got %v", got)
	}
	got := wrapEvaluatorError("lua", errors.New("syntax"))
	if !strings.HasPrefix(got.Error(), "props: lua evaluator:") {
		t.Fatalf("expected engine prefix, got %q", got.Error())
	}
	if wrapEvaluatorError("lua", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
