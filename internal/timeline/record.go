package timeline

import (
	"encoding/json"
	"strconv"
)

// Phase is the "ph" discriminator of a record.
type Phase string

// Phases produced by this package.
const (
	PhaseMetadata   Phase = "M"
	PhaseComplete   Phase = "X"
	PhaseCounter    Phase = "C"
	PhaseAsyncBegin Phase = "b"
	PhaseAsyncEnd   Phase = "e"
)

// Metadata record names understood by trace viewers.
const (
	ProcessNameKind      = "process_name"
	ThreadNameKind       = "thread_name"
	ProcessSortIndexKind = "process_sort_index"
	ThreadSortIndexKind  = "thread_sort_index"
	ProcessLabelsKind    = "process_labels"
)

// Lane identifies one horizontal track of the viewer.
type Lane struct {
	PID string
	TID string
}

// Record is one entry of the output array. The set of implementations is closed.
type Record interface {
	Phase() Phase
	wire() any
}

// Metadata declares a display property of a lane.
type Metadata struct {
	Kind string
	Lane Lane
	Args map[string]string
}

// Span is a duration starting at TS. Args, when set, must be a JSON object.
type Span struct {
	Name string
	Lane Lane
	TS   int64
	Dur  int64
	Args json.RawMessage
}

// Sample is a counter value at TS. Value must be a JSON number literal.
type Sample struct {
	Name  string
	Lane  Lane
	TS    int64
	Value string
}

// Async is an async begin/end marker.
type Async struct {
	Ph   Phase
	Cat  string
	ID   string
	Name string
	Lane Lane
	TS   int64
}

// Phase implements Record.
func (Metadata) Phase() Phase { return PhaseMetadata }

// Phase implements Record.
func (Span) Phase() Phase { return PhaseComplete }

// Phase implements Record.
func (Sample) Phase() Phase { return PhaseCounter }

// Phase implements Record.
func (a Async) Phase() Phase { return a.Ph }

// Field order of the wire structs is the order written to the file.

type metadataWire struct {
	Ph   Phase             `json:"ph"`
	Name string            `json:"name"`
	PID  string            `json:"pid"`
	TID  string            `json:"tid"`
	Args map[string]string `json:"args"`
}

type spanWire struct {
	Ph   Phase           `json:"ph"`
	Name string          `json:"name"`
	PID  string          `json:"pid"`
	TID  string          `json:"tid"`
	TS   string          `json:"ts"`
	Dur  int64           `json:"dur"`
	Args json.RawMessage `json:"args,omitempty"`
}

type sampleWire struct {
	Ph   Phase                  `json:"ph"`
	Name string                 `json:"name"`
	PID  string                 `json:"pid"`
	TID  string                 `json:"tid"`
	TS   string                 `json:"ts"`
	Args map[string]json.Number `json:"args"`
}

type asyncWire struct {
	Ph   Phase  `json:"ph"`
	Cat  string `json:"cat"`
	ID   string `json:"id"`
	Name string `json:"name"`
	PID  string `json:"pid"`
	TID  string `json:"tid"`
	TS   string `json:"ts"`
}

func (m Metadata) wire() any {
	args := m.Args
	if args == nil {
		args = map[string]string{}
	}
	return metadataWire{Ph: PhaseMetadata, Name: m.Kind, PID: m.Lane.PID, TID: m.Lane.TID, Args: args}
}

func (s Span) wire() any {
	return spanWire{
		Ph:   PhaseComplete,
		Name: s.Name,
		PID:  s.Lane.PID,
		TID:  s.Lane.TID,
		TS:   strconv.FormatInt(s.TS, 10),
		Dur:  s.Dur,
		Args: s.Args,
	}
}

func (s Sample) wire() any {
	return sampleWire{
		Ph:   PhaseCounter,
		Name: s.Name,
		PID:  s.Lane.PID,
		TID:  s.Lane.TID,
		TS:   strconv.FormatInt(s.TS, 10),
		Args: map[string]json.Number{"name": json.Number(s.Value)},
	}
}

func (a Async) wire() any {
	return asyncWire{
		Ph:   a.Ph,
		Cat:  a.Cat,
		ID:   a.ID,
		Name: a.Name,
		PID:  a.Lane.PID,
		TID:  a.Lane.TID,
		TS:   strconv.FormatInt(a.TS, 10),
	}
}

// ProcessName names the process row of a lane.
func ProcessName(lane Lane, name string) Metadata {
	return Metadata{Kind: ProcessNameKind, Lane: lane, Args: map[string]string{"name": name}}
}

// ThreadName names the thread row of a lane.
func ThreadName(lane Lane, name string) Metadata {
	return Metadata{Kind: ThreadNameKind, Lane: lane, Args: map[string]string{"name": name}}
}

// ProcessSortIndex orders process rows.
func ProcessSortIndex(lane Lane, index string) Metadata {
	return Metadata{Kind: ProcessSortIndexKind, Lane: lane, Args: map[string]string{"sort_index": index}}
}

// ThreadSortIndex orders thread rows within a process.
func ThreadSortIndex(lane Lane, index string) Metadata {
	return Metadata{Kind: ThreadSortIndexKind, Lane: lane, Args: map[string]string{"sort_index": index}}
}

// ProcessLabels attaches a free-text label to a process row.
func ProcessLabels(lane Lane, labels string) Metadata {
	return Metadata{Kind: ProcessLabelsKind, Lane: lane, Args: map[string]string{"labels": labels}}
}
