// Package traceindex holds every parsed event of a trace log and the lookup
// structures the correlators query.
//
// All query results are in original log order. Distinct-value accessors
// (Processes, Contexts, Engines, ...) return values in order of first
// occurrence. The index is built once by Ingest or Load and is read-only
// afterwards.
package traceindex
