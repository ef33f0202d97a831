// Package output mirrors timeline tracks into OpenTelemetry spans.
//
// The Exporter receives the same records as the trace file, track by track.
// Each track becomes a span under one root span covering the whole trace log.
// Within a track:
//   - every Span record becomes a child span
//   - every Sample record becomes a span event carrying the counter value
//   - process_labels metadata marks the track span as failed
//
// Timestamps are converted to wall-clock time through timesync, using the
// boot time of the machine that recorded the trace.
package output
