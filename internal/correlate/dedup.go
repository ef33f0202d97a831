package correlate

import "github.com/mrzor/gpu-timeline/internal/traceevent"

// DedupAdjacentSeqno returns a new slice without the events whose seqno equals
// that of the event right before them in the input. Repeated emissions of the
// same request collapse to the first one. The input is not modified.
func DedupAdjacentSeqno(events []*traceevent.Event) []*traceevent.Event {
	out := make([]*traceevent.Event, 0, len(events))
	for i, e := range events {
		if i > 0 && e.Seqno == events[i-1].Seqno {
			continue
		}
		out = append(out, e)
	}
	return out
}
