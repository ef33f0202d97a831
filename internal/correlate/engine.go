package correlate

import (
	"fmt"

	"github.com/mrzor/gpu-timeline/internal/traceevent"
	"github.com/mrzor/gpu-timeline/internal/timeline"
)

// Engine builds the execution spans of every engine.
//
// Every engine lane is declared first. Then, context by context, request_in and
// request_out events are deduplicated (adjacent equal seqnos) and each in is
// paired with the first unused out of the same seqno. A paired request spans
// in.ts to out.ts; an unpaired one gets RequestMarkerDur. Each out is used at
// most once.
//
// Requests without a ctx tag are correlated together after the named contexts.
// An in event with neither an engine nor a ring tag has no lane; it is skipped
// with a warning.
func (c *Correlator) Engine() []timeline.Record {
	var records []timeline.Record
	for _, engine := range c.idx.Engines() {
		lane := EngineLane(engine)
		class := EngineClassName(lane.PID)
		records = append(records,
			timeline.ProcessName(lane, class),
			timeline.ThreadName(lane, class+"-"+lane.TID),
			timeline.ProcessSortIndex(lane, lane.PID),
		)
	}

	inName := c.vocab.Request("in")
	outName := c.vocab.Request("out")

	contexts := c.idx.Contexts()
	if len(c.idx.ByNameAndContext(inName, "")) > 0 {
		contexts = append(contexts, "")
	}

	for _, ctx := range contexts {
		ins := DedupAdjacentSeqno(c.idx.ByNameAndContext(inName, ctx))
		outs := DedupAdjacentSeqno(c.idx.ByNameAndContext(outName, ctx))
		records = append(records, c.pairRequests(ins, outs)...)
	}
	return records
}

// pairRequests matches ins against outs by seqno, consuming outs in log order.
func (c *Correlator) pairRequests(ins, outs []*traceevent.Event) []timeline.Record {
	pending := make(map[string][]*traceevent.Event, len(outs))
	for _, o := range outs {
		pending[o.Seqno] = append(pending[o.Seqno], o)
	}

	records := make([]timeline.Record, 0, len(ins))
	for _, in := range ins {
		if in.Engine == "" {
			c.opts.Warn(fmt.Errorf("%w: seqno %q at ts %d", ErrMissingEngine, in.Seqno, in.Timestamp))
			continue
		}
		dur := int64(RequestMarkerDur)
		if queue := pending[in.Seqno]; len(queue) > 0 {
			dur = queue[0].Timestamp - in.Timestamp
			pending[in.Seqno] = queue[1:]
		}
		records = append(records, timeline.Span{
			Name: in.Seqno,
			Lane: EngineLane(in.Engine),
			TS:   in.Timestamp,
			Dur:  dur,
			Args: c.opts.Args(in),
		})
	}
	return records
}
