package correlate

import (
	"github.com/mrzor/gpu-timeline/internal/timeline"
)

// Context builds, under each process that queued requests, one lane per GPU
// context with a marker span per request_queue event of that context.
func (c *Correlator) Context() []timeline.Record {
	queueName := c.vocab.Request("queue")

	var records []timeline.Record
	for _, label := range c.idx.Processes() {
		queued := c.idx.ByNameAndProcess(queueName, label)
		if len(queued) == 0 {
			continue
		}
		pid := processPID(queued[0].PID)

		for _, ctx := range c.idx.ContextsOfProcess(label) {
			lane := timeline.Lane{PID: pid, TID: ctx}
			records = append(records, timeline.ThreadName(lane, "GPU Context "+ctx))
			for _, e := range queued {
				if e.Ctx != ctx {
					continue
				}
				records = append(records, timeline.Span{
					Name: e.Seqno,
					Lane: lane,
					TS:   e.Timestamp,
					Dur:  RequestMarkerDur,
					Args: c.opts.Args(e),
				})
			}
		}
	}
	return records
}
