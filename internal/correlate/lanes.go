package correlate

import (
	"fmt"
	"strings"

	"github.com/mrzor/gpu-timeline/internal/timeline"
)

// Reserved lane pids. Engine lanes use the engine class (0-4) as pid.
const (
	MemoryPID    = "5"
	FrequencyPID = "6"
)

// RequestTags lists the request states in pipeline order.
var RequestTags = []string{"queue", "add", "submit", "execute", "in", "out", "retire"}

var requestPIDs = map[string]string{
	"queue":   "10",
	"add":     "11",
	"submit":  "12",
	"execute": "13",
	"in":      "14",
	"out":     "15",
	"retire":  "16",
}

var engineClassNames = map[string]string{
	"0": "Render",
	"1": "BLT",
	"2": "VDBOX",
	"3": "VEBOX",
	"4": "CCS",
}

// RequestLane returns the reserved lane pid of a request state tag.
func RequestLane(tag string) (string, error) {
	pid, ok := requestPIDs[tag]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRequestTag, tag)
	}
	return pid, nil
}

// EngineLane maps "class:instance" to its lane. A missing instance reads as "0".
func EngineLane(engine string) timeline.Lane {
	class, instance, found := strings.Cut(engine, ":")
	if !found || instance == "" {
		instance = "0"
	}
	return timeline.Lane{PID: class, TID: instance}
}

// EngineClassName returns the display name of an engine class.
func EngineClassName(class string) string {
	if name, ok := engineClassNames[class]; ok {
		return name
	}
	return "Engine" + class
}

// processPID remaps pids 0 and 1 (idle, init) to 20 and 21 so they do not
// land on the Render and BLT rows.
func processPID(pid string) string {
	if pid == "0" || pid == "1" {
		return "2" + pid
	}
	return pid
}
