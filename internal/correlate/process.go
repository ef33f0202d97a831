package correlate

import (
	"github.com/mrzor/gpu-timeline/internal/timeline"
)

// Process builds one lane per process label with a marker span per event.
// Processes whose events are all rejected by the filter are left out.
func (c *Correlator) Process() []timeline.Record {
	var records []timeline.Record
	for _, label := range c.idx.Processes() {
		events := c.idx.ByProcess(label)
		if len(events) == 0 {
			continue
		}

		lane := timeline.Lane{PID: processPID(events[0].PID), TID: "0"}
		var spans []timeline.Record
		for _, e := range events {
			if !c.opts.Filter(e) {
				continue
			}
			spans = append(spans, timeline.Span{
				Name: e.Name,
				Lane: lane,
				TS:   e.Timestamp,
				Dur:  EventMarkerDur,
				Args: c.opts.Args(e),
			})
		}
		if len(spans) == 0 {
			continue
		}

		records = append(records,
			timeline.ProcessName(lane, label),
			timeline.ThreadName(lane, label),
			timeline.ProcessSortIndex(lane, lane.PID),
		)
		records = append(records, spans...)
	}
	return records
}
