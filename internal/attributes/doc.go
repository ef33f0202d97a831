// Package attributes evaluates user expressions over trace events and runs.
//
// Expressions use the expr language. Event expressions see:
//
//	name     event name ("i915_request_in")
//	process  process label ("gnome-shell-1234")
//	pid, cpu strings
//	ts       timestamp as an integer
//	tags     map of every key=value pair on the line
//
// Evaluator adds custom span args, Filter selects events for the per-process
// track, and TraceIDEvaluator/ParentIDEvaluator pick the OTLP trace identity
// from the run environment. Invalid trace IDs are hashed with SHA-256 to
// produce valid IDs; invalid parent IDs result in no parent.
package attributes
