package attributes

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunEnv is what trace and parent ID expressions can see.
type RunEnv struct {
	// Env holds the converter's environment variables.
	Env map[string]string
	// Input is the trace log path.
	Input string
}

var runTypeEnv = map[string]interface{}{
	"env":   map[string]string{},
	"input": "",
}

func (r RunEnv) env() map[string]interface{} {
	env := r.Env
	if env == nil {
		env = map[string]string{}
	}
	return map[string]interface{}{
		"env":   env,
		"input": r.Input,
	}
}

// EnvironMap turns os.Environ output into a map.
func EnvironMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

// runExpr is an optional compiled expression over a RunEnv.
type runExpr struct {
	program *vm.Program
}

func compileRunExpr(kind, exprStr string) (runExpr, error) {
	if exprStr == "" {
		return runExpr{}, nil
	}
	program, err := expr.Compile(exprStr, expr.Env(runTypeEnv))
	if err != nil {
		return runExpr{}, fmt.Errorf("failed to compile %s expression: %w", kind, err)
	}
	return runExpr{program: program}, nil
}

// eval returns the expression result as a string, and false when no
// expression is configured.
func (r runExpr) eval(kind string, run RunEnv) (string, bool, error) {
	if r.program == nil {
		return "", false, nil
	}
	output, err := expr.Run(r.program, run.env())
	if err != nil {
		return "", false, fmt.Errorf("failed to evaluate %s expression: %w", kind, err)
	}
	return fmt.Sprint(output), true, nil
}

// TraceIDEvaluator picks the trace ID of an OTLP export.
type TraceIDEvaluator struct {
	runExpr
}

// NewTraceIDEvaluator compiles a trace-id expression. With an empty
// expression the exporter generates a random trace ID.
func NewTraceIDEvaluator(exprStr string) (*TraceIDEvaluator, error) {
	r, err := compileRunExpr("trace-id", exprStr)
	if err != nil {
		return nil, err
	}
	return &TraceIDEvaluator{runExpr: r}, nil
}

// EvaluateAndValidate returns the trace ID and any warnings to attach to the
// root span. A result that is not 32 hex chars is hashed with SHA-256.
// Without an expression it returns a zero trace ID.
func (e *TraceIDEvaluator) EvaluateAndValidate(run RunEnv) (trace.TraceID, []attribute.KeyValue, error) {
	result, ok, err := e.eval("trace-id", run)
	if !ok || err != nil {
		return trace.TraceID{}, nil, err
	}

	if len(result) == 32 {
		if traceID, err := trace.TraceIDFromHex(result); err == nil {
			return traceID, nil, nil
		}
	}

	var traceID trace.TraceID
	hash := sha256.Sum256([]byte(result))
	copy(traceID[:], hash[:16])

	return traceID, []attribute.KeyValue{
		attribute.String("_trace_id_expr_result", result),
		attribute.String("_trace_id_invalid_warning", fmt.Sprintf("Expression result %q is not a valid 32-char hex trace ID, used SHA-256 hash instead", result)),
	}, nil
}

// ParentIDEvaluator picks the parent span of the export's root span.
type ParentIDEvaluator struct {
	runExpr
}

// NewParentIDEvaluator compiles a parent-id expression. With an empty
// expression the root span has no parent.
func NewParentIDEvaluator(exprStr string) (*ParentIDEvaluator, error) {
	r, err := compileRunExpr("parent-id", exprStr)
	if err != nil {
		return nil, err
	}
	return &ParentIDEvaluator{runExpr: r}, nil
}

// EvaluateAndValidate returns the parent span ID and any warnings. A result
// that is not 16 hex chars yields a zero span ID.
func (e *ParentIDEvaluator) EvaluateAndValidate(run RunEnv) (trace.SpanID, []attribute.KeyValue, error) {
	result, ok, err := e.eval("parent-id", run)
	if !ok || err != nil {
		return trace.SpanID{}, nil, err
	}

	if len(result) == 16 {
		if spanID, err := trace.SpanIDFromHex(result); err == nil {
			return spanID, nil, nil
		}
	}

	return trace.SpanID{}, []attribute.KeyValue{
		attribute.String("_parent_id_expr_result", result),
		attribute.String("_parent_id_invalid_warning", fmt.Sprintf("Expression result %q is not a valid 16-char hex span ID, using null parent ID instead", result)),
	}, nil
}
