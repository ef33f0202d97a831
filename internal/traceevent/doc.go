// Package traceevent parses single lines of a trace-cmd text report into Events.
//
// Expected line shape:
//
//	<process>-<pid> [<cpu>] <seconds>.<fraction>: <eventname>: key=value, key=value, ...
//
// The timestamp keeps every digit: "1000.000050" becomes the integer 1000000050,
// so ordering and subtraction are exact.
//
// Tags are read from the payload that follows the event name. A tag starts at a
// field boundary (payload start, whitespace or comma) and its value runs up to the
// next comma. Every pair is kept in Event.Tags; the ones the correlators read are
// also exposed as typed fields.
package traceevent
