package traceindex

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mrzor/gpu-timeline/internal/traceevent"
)

// maxLineSize bounds a single trace line. trace-cmd lines are short; this only
// guards against binary garbage.
const maxLineSize = 1 << 20

type pairKey struct {
	name  string
	other string
}

// Index stores parsed events and their secondary indices.
type Index struct {
	events  []*traceevent.Event
	skipped int

	byProcess     map[string][]*traceevent.Event
	byName        map[string][]*traceevent.Event
	byNameProcess map[pairKey][]*traceevent.Event // (name, process label)
	byNameContext map[pairKey][]*traceevent.Event // (name, ctx)
	processCtxs   map[string]*orderedSet          // process label -> contexts

	processes *orderedSet
	names     *orderedSet
	devices   *orderedSet
	engines   *orderedSet
	hwIDs     *orderedSet
	contexts  *orderedSet
	seqnos    *orderedSet
}

// New creates an empty index.
func New() *Index {
	return &Index{
		byProcess:     make(map[string][]*traceevent.Event),
		byName:        make(map[string][]*traceevent.Event),
		byNameProcess: make(map[pairKey][]*traceevent.Event),
		byNameContext: make(map[pairKey][]*traceevent.Event),
		processCtxs:   make(map[string]*orderedSet),
		processes:     newOrderedSet(),
		names:         newOrderedSet(),
		devices:       newOrderedSet(),
		engines:       newOrderedSet(),
		hwIDs:         newOrderedSet(),
		contexts:      newOrderedSet(),
		seqnos:        newOrderedSet(),
	}
}

// Ingest reads lines from r and indexes every one that parses.
// Lines that do not qualify are ignored; malformed qualifying lines are counted
// in Skipped. It returns the number of events added.
func (x *Index) Ingest(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	added := 0
	for scanner.Scan() {
		if x.add(scanner.Text()) {
			added++
		}
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("scanning trace lines: %w", err)
	}
	return added, nil
}

// IngestLines indexes already-split lines. It returns the number of events added.
func (x *Index) IngestLines(lines []string) int {
	added := 0
	for _, line := range lines {
		if x.add(line) {
			added++
		}
	}
	return added
}

func (x *Index) add(line string) bool {
	if !traceevent.Qualifies(line) {
		return false
	}
	e, err := traceevent.Parse(line)
	if err != nil {
		x.skipped++
		return false
	}

	x.events = append(x.events, e)
	x.byProcess[e.ProcessLabel] = append(x.byProcess[e.ProcessLabel], e)
	x.byName[e.Name] = append(x.byName[e.Name], e)
	np := pairKey{e.Name, e.ProcessLabel}
	x.byNameProcess[np] = append(x.byNameProcess[np], e)
	nc := pairKey{e.Name, e.Ctx}
	x.byNameContext[nc] = append(x.byNameContext[nc], e)

	x.processes.add(e.ProcessLabel)
	x.names.add(e.Name)
	x.devices.add(e.Dev)
	x.engines.add(e.Engine)
	x.hwIDs.add(e.HWID)
	x.contexts.add(e.Ctx)
	x.seqnos.add(e.Seqno)

	if e.Ctx != "" {
		set := x.processCtxs[e.ProcessLabel]
		if set == nil {
			set = newOrderedSet()
			x.processCtxs[e.ProcessLabel] = set
		}
		set.add(e.Ctx)
	}
	return true
}

// Len returns the number of indexed events.
func (x *Index) Len() int { return len(x.events) }

// Skipped returns the number of qualifying lines that failed to parse.
func (x *Index) Skipped() int { return x.skipped }

// Events returns all events in log order.
func (x *Index) Events() []*traceevent.Event { return clone(x.events) }

// ByProcess returns the events emitted by a process label ("name-pid").
func (x *Index) ByProcess(label string) []*traceevent.Event {
	return clone(x.byProcess[label])
}

// ByName returns the events with the given event name.
func (x *Index) ByName(name string) []*traceevent.Event {
	return clone(x.byName[name])
}

// ByNameAndProcess returns the events with the given name emitted by a process label.
func (x *Index) ByNameAndProcess(name, label string) []*traceevent.Event {
	return clone(x.byNameProcess[pairKey{name, label}])
}

// ByNameAndContext returns the events with the given name and ctx tag. An empty
// ctx selects the events that carry no ctx tag.
func (x *Index) ByNameAndContext(name, ctx string) []*traceevent.Event {
	return clone(x.byNameContext[pairKey{name, ctx}])
}

// ContextsOfProcess returns the distinct non-empty contexts used by a process label.
func (x *Index) ContextsOfProcess(label string) []string {
	set := x.processCtxs[label]
	if set == nil {
		return nil
	}
	return set.list()
}

// Processes returns the distinct process labels.
func (x *Index) Processes() []string { return x.processes.list() }

// Names returns the distinct event names.
func (x *Index) Names() []string { return x.names.list() }

// Devices returns the distinct dev tag values.
func (x *Index) Devices() []string { return x.devices.list() }

// Engines returns the distinct engine lanes ("class:instance").
func (x *Index) Engines() []string { return x.engines.list() }

// HWIDs returns the distinct hw_id tag values.
func (x *Index) HWIDs() []string { return x.hwIDs.list() }

// Contexts returns the distinct ctx tag values.
func (x *Index) Contexts() []string { return x.contexts.list() }

// Seqnos returns the distinct seqno tag values.
func (x *Index) Seqnos() []string { return x.seqnos.list() }

// clone gives callers their own slice header so that filtering a query result
// never touches the index.
func clone(events []*traceevent.Event) []*traceevent.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]*traceevent.Event, len(events))
	copy(out, events)
	return out
}
