// Package correlate rebuilds GPU timelines from an indexed trace.
//
// Each track is computed independently from the read-only index and returned as
// a contiguous group of timeline records, lane declarations first:
//
//	Process   one marker span per event, one lane per process
//	Engine    request_in/request_out paired by seqno per context, on engine lanes
//	Context   request_queue markers per (process, context)
//	Memory    running GEM object size total (create adds, destroy subtracts)
//	Frequency GPU frequency changes
//	Request   request_<tag> markers grouped by context on a reserved lane
//
// Tracks with no source events emit nothing, not even lane declarations.
package correlate
