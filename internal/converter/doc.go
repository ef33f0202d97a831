// Package converter turns an indexed trace log into a trace-viewer file.
//
// It runs the tracks in a fixed order (process, engine, context, memory,
// frequency, request queue, request submit, and with All the remaining request
// states) and appends each track's records as one contiguous group. A track
// that fails keeps its partial records; the failure is collected and returned
// once every track has been written.
package converter
