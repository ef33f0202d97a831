package traceevent

import (
	"bytes"
	"encoding/json"
)

// Tag names read by the correlators.
const (
	TagDev       = "dev"
	TagEngine    = "engine"
	TagRing      = "ring"
	TagHWID      = "hw_id"
	TagCtx       = "ctx"
	TagSeqno     = "seqno"
	TagPort      = "port"
	TagCompleted = "completed?"
	TagObj       = "obj"
	TagSize      = "size"
	TagNewFreq   = "new_freq"
)

// Event is one parsed trace line. It is never modified after Parse returns.
type Event struct {
	ProcessLabel string // raw "name-pid"
	ProcessName  string
	PID          string
	CPU          string
	Timestamp    int64
	Name         string

	// FracDigits is the number of digits after the timestamp's decimal point,
	// 6 for trace-cmd's default microsecond clock output.
	FracDigits int

	// Known tags. Missing tags are empty strings.
	Dev       string
	Engine    string // "class:instance", synthesized from Ring when absent
	Ring      string
	HWID      string
	Ctx       string
	Seqno     string
	Port      string
	Completed string
	Obj       string
	Size      string
	NewFreq   string

	// Tags holds every key=value pair of the payload, known or not.
	Tags map[string]string

	metadata json.RawMessage
}

// Tag returns the raw value of a payload tag, or "" if the line did not carry it.
func (e *Event) Tag(key string) string {
	return e.Tags[key]
}

// Metadata returns the JSON object echoed into timeline span args: the process
// label, the event name and every non-empty tag.
func (e *Event) Metadata() json.RawMessage {
	return e.metadata
}

func (e *Event) buildMetadata() {
	m := make(map[string]string, len(e.Tags)+3)
	for k, v := range e.Tags {
		if v != "" {
			m[k] = v
		}
	}
	if e.Engine != "" {
		m[TagEngine] = e.Engine
	}
	if e.ProcessLabel != "" {
		m["process"] = e.ProcessLabel
	}
	if e.Name != "" {
		m["eventname"] = e.Name
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // keep "<idle>-0" readable
	_ = enc.Encode(m)        //nolint:errcheck // string maps always encode
	e.metadata = bytes.TrimRight(buf.Bytes(), "\n")
}
