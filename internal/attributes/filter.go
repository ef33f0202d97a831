package attributes

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mrzor/gpu-timeline/internal/traceevent"
)

// Filter is a compiled boolean expression over events.
type Filter struct {
	program *vm.Program
	warn    func(error)
}

// NewFilter compiles expression, which must evaluate to a bool. An empty
// expression yields a nil Filter, which matches everything.
func NewFilter(expression string, warn func(error)) (*Filter, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(eventTypeEnv), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", err)
	}
	return &Filter{program: program, warn: warn}, nil
}

// Match reports whether ev passes the filter. Events the expression fails on
// do not match.
func (f *Filter) Match(ev *traceevent.Event) bool {
	if f == nil {
		return true
	}
	output, err := expr.Run(f.program, eventEnv(ev))
	if err != nil {
		if f.warn != nil {
			f.warn(fmt.Errorf("filter failed on %s at %d: %w", ev.Name, ev.Timestamp, err))
		}
		return false
	}
	ok, _ := output.(bool)
	return ok
}
