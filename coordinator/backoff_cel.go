package coordinator

import (
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
)

// CELBackoffStrategy evaluates a CEL expression to determine the error
// cool-off delay, in seconds, for a key. The expression sees two variables:
//
//	errors int   - consecutive transient error count for the key
//	asap   bool  - whether the query that triggered the check has ASAP set
//
// and must evaluate to a number. This exists so an operator can express an
// alternative back-off curve (for instance the quadratic one spec.md §9
// suspects the original author intended) through configuration rather than
// a code change, without disturbing DefaultBackoff's bug-for-bug
// compatible behavior.
type CELBackoffStrategy struct {
	program cel.Program
	source  string
}

// NewCELBackoffStrategy compiles expression against an environment exposing
// errors (int) and asap (bool), requiring a numeric result.
func NewCELBackoffStrategy(expression string) (*CELBackoffStrategy, error) {
	env, err := cel.NewEnv(
		cel.Variable("errors", cel.IntType),
		cel.Variable("asap", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("coordinator: build backoff cel env: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("coordinator: compile backoff expression %q: %w", expression, issues.Err())
	}
	switch ast.OutputType() {
	case cel.IntType, cel.DoubleType, cel.DynType:
	default:
		return nil, fmt.Errorf("coordinator: backoff expression %q must return a number, got %s", expression, cel.FormatCELType(ast.OutputType()))
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("coordinator: build backoff program %q: %w", expression, err)
	}
	return &CELBackoffStrategy{program: program, source: expression}, nil
}

// Delay implements BackoffStrategy.
func (s *CELBackoffStrategy) Delay(errors int, asap bool) time.Duration {
	out, _, err := s.program.Eval(map[string]any{
		"errors": errors,
		"asap":   asap,
	})
	if err != nil {
		// Evaluation failure falls back to never holding the key back, so a
		// misbehaving expression fails open toward re-requesting rather than
		// silently wedging the key forever.
		return 0
	}
	var seconds float64
	switch v := out.Value().(type) {
	case int64:
		seconds = float64(v)
	case float64:
		seconds = v
	default:
		return 0
	}
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// Source returns the original CEL expression, primarily for logging.
func (s *CELBackoffStrategy) Source() string { return s.source }
