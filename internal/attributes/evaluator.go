package attributes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/hashicorp/go-multierror"
	"github.com/mrzor/gpu-timeline/internal/config"
	"github.com/mrzor/gpu-timeline/internal/traceevent"
)

// eventTypeEnv is the environment expressions are type-checked against.
var eventTypeEnv = map[string]interface{}{
	"name":    "",
	"process": "",
	"pid":     "",
	"cpu":     "",
	"ts":      int64(0),
	"tags":    map[string]string{},
}

func eventEnv(e *traceevent.Event) map[string]interface{} {
	return map[string]interface{}{
		"name":    e.Name,
		"process": e.ProcessLabel,
		"pid":     e.PID,
		"cpu":     e.CPU,
		"ts":      e.Timestamp,
		"tags":    e.Tags,
	}
}

// Evaluator computes custom span args.
type Evaluator struct {
	customArgs    []config.CustomArg
	compiledExprs []*vm.Program
}

// NewEvaluator pre-compiles all custom arg expressions.
func NewEvaluator(customArgs []config.CustomArg) (*Evaluator, error) {
	compiledExprs := make([]*vm.Program, len(customArgs))
	for i, arg := range customArgs {
		program, err := expr.Compile(arg.Expression, expr.Env(eventTypeEnv))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression for arg %q: %w", arg.Name, err)
		}
		compiledExprs[i] = program
	}

	return &Evaluator{
		customArgs:    customArgs,
		compiledExprs: compiledExprs,
	}, nil
}

// Empty reports whether there are no custom args.
func (e *Evaluator) Empty() bool {
	return len(e.customArgs) == 0
}

// Evaluate runs every custom arg expression against an event. A map result is
// expanded into one arg per key, named "<arg>.<key>". Failing expressions are
// skipped and reported in the returned error.
func (e *Evaluator) Evaluate(ev *traceevent.Event) (map[string]string, error) {
	if len(e.customArgs) == 0 || ev == nil {
		return nil, nil
	}

	env := eventEnv(ev)
	out := make(map[string]string, len(e.customArgs))
	var errs *multierror.Error
	for i, arg := range e.customArgs {
		output, err := expr.Run(e.compiledExprs[i], env)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to evaluate expression for arg %q: %w", arg.Name, err))
			continue
		}

		outputValue := reflect.ValueOf(output)
		if outputValue.Kind() != reflect.Map {
			out[arg.Name] = fmt.Sprint(output)
			continue
		}
		for _, key := range outputValue.MapKeys() {
			name := arg.Name + "." + sanitizeArgName(fmt.Sprintf("%v", key.Interface()))
			out[name] = fmt.Sprintf("%v", outputValue.MapIndex(key).Interface())
		}
	}
	return out, errs.ErrorOrNil()
}

// ArgsFunc returns a span args builder that merges the event's metadata with
// the custom args. Custom args override metadata keys of the same name.
// Evaluation failures are passed to warn and the failing arg is left out.
func (e *Evaluator) ArgsFunc(warn func(error)) func(*traceevent.Event) json.RawMessage {
	if e.Empty() {
		return (*traceevent.Event).Metadata
	}
	return func(ev *traceevent.Event) json.RawMessage {
		custom, err := e.Evaluate(ev)
		if err != nil && warn != nil {
			warn(fmt.Errorf("event %s at %d: %w", ev.Name, ev.Timestamp, err))
		}
		if len(custom) == 0 {
			return ev.Metadata()
		}

		merged := make(map[string]string, len(custom)+8)
		if err := json.Unmarshal(ev.Metadata(), &merged); err != nil {
			merged = make(map[string]string, len(custom))
		}
		for k, v := range custom {
			merged[k] = v
		}

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(merged); err != nil {
			return ev.Metadata()
		}
		return bytes.TrimRight(buf.Bytes(), "\n")
	}
}

// sanitizeArgName replaces non-alphanumeric characters with underscores.
func sanitizeArgName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
