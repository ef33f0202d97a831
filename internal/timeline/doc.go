// Package timeline models the records of a Chrome trace-viewer JSON file and
// writes them out.
//
// Four record kinds exist: Metadata (ph "M") declares lane names and sort
// order, Span (ph "X") is a duration, Sample (ph "C") is a counter value and
// Async carries an async marker. pid, tid and ts are written as JSON strings;
// dur and counter values are bare numbers.
//
// The file is a JSON array that is opened and never closed. Trace viewers
// accept the dangling array, and it lets records be appended in one pass.
package timeline
