package correlate

import (
	"github.com/mrzor/gpu-timeline/internal/timeline"
)

// Request builds the global timeline of one request state: every
// request_<tag> event becomes a marker span on the tag's reserved lane, with
// one thread per context in order of first appearance. Unknown tags yield no
// records.
func (c *Correlator) Request(tag string) []timeline.Record {
	pid, err := RequestLane(tag)
	if err != nil {
		return nil
	}
	events := c.idx.ByName(c.vocab.Request(tag))
	if len(events) == 0 {
		return nil
	}

	lane := timeline.Lane{PID: pid, TID: "0"}
	records := []timeline.Record{
		timeline.ProcessName(lane, "request "+tag),
		timeline.ProcessSortIndex(lane, pid),
	}

	seen := make(map[string]struct{})
	for _, e := range events {
		ctxLane := timeline.Lane{PID: pid, TID: e.Ctx}
		if _, ok := seen[e.Ctx]; !ok {
			seen[e.Ctx] = struct{}{}
			records = append(records,
				timeline.ThreadName(ctxLane, "ctx="+e.Ctx),
				timeline.ThreadSortIndex(ctxLane, e.Ctx),
			)
		}
		records = append(records, timeline.Span{
			Name: e.Seqno,
			Lane: ctxLane,
			TS:   e.Timestamp,
			Dur:  RequestMarkerDur,
			Args: c.opts.Args(e),
		})
	}
	return records
}
