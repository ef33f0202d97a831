package correlate

import (
	"encoding/json"

	"github.com/mrzor/gpu-timeline/internal/traceevent"
	"github.com/mrzor/gpu-timeline/internal/traceindex"
	"github.com/mrzor/gpu-timeline/internal/timeline"
)

// Fixed durations, in timestamp units.
const (
	// EventMarkerDur is the width of a per-process event marker.
	EventMarkerDur = 1
	// RequestMarkerDur is the width of request markers and of unterminated requests.
	RequestMarkerDur = 10
)

// Options tunes a Correlator. The zero value is usable.
type Options struct {
	// Vocabulary defaults to DefaultVocabulary when RequestPrefix is empty.
	Vocabulary Vocabulary
	// Lenient makes counter tracks read unparsable values as 0 instead of
	// stopping the track.
	Lenient bool
	// Args returns the span args of an event. Defaults to Event.Metadata.
	Args func(*traceevent.Event) json.RawMessage
	// Filter drops events from the process track when it returns false.
	Filter func(*traceevent.Event) bool
	// Warn receives recoverable problems, such as values read as 0 in lenient mode.
	Warn func(error)
}

// Correlator computes timeline tracks from an index.
type Correlator struct {
	idx   *traceindex.Index
	vocab Vocabulary
	opts  Options
}

// New creates a Correlator over a fully ingested index.
func New(idx *traceindex.Index, opts Options) *Correlator {
	if opts.Vocabulary.RequestPrefix == "" {
		opts.Vocabulary = DefaultVocabulary()
	}
	if opts.Args == nil {
		opts.Args = (*traceevent.Event).Metadata
	}
	if opts.Filter == nil {
		opts.Filter = func(*traceevent.Event) bool { return true }
	}
	if opts.Warn == nil {
		opts.Warn = func(error) {}
	}
	return &Correlator{idx: idx, vocab: opts.Vocabulary, opts: opts}
}

// declareFixedLane emits the three declarations of a reserved counter lane.
func declareFixedLane(lane timeline.Lane, name string) []timeline.Record {
	return []timeline.Record{
		timeline.ProcessName(lane, name),
		timeline.ThreadName(lane, name),
		timeline.ProcessSortIndex(lane, lane.PID),
	}
}
