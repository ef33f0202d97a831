package correlate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mrzor/gpu-timeline/internal/traceevent"
	"github.com/mrzor/gpu-timeline/internal/timeline"
)

// Counter track names.
const (
	MemoryCounter    = "GEM memory usage"
	FrequencyCounter = "GPU frequency"
)

// Memory builds the GEM memory usage counter.
//
// All creates are applied first, in log order, then all destroys. A destroy
// subtracts the size of the first create with the same obj, or nothing when no
// create matches. Samples therefore follow pass order, not time order.
func (c *Correlator) Memory() ([]timeline.Record, error) {
	creates := c.idx.ByName(c.vocab.ObjectCreate)
	destroys := c.idx.ByName(c.vocab.ObjectDestroy)
	if len(creates) == 0 && len(destroys) == 0 {
		return nil, nil
	}

	lane := timeline.Lane{PID: MemoryPID, TID: "0"}
	records := declareFixedLane(lane, "Memory")

	sizes := make(map[string]int64, len(creates)) // obj -> size of its first create
	var total int64
	for _, e := range creates {
		size, err := c.readInt("memory", traceevent.TagSize, e.Size, e)
		if err != nil {
			return abortTrack(records, lane, err), err
		}
		if _, ok := sizes[e.Obj]; !ok {
			sizes[e.Obj] = size
		}
		total += size
		records = append(records, timeline.Sample{
			Name:  MemoryCounter,
			Lane:  lane,
			TS:    e.Timestamp,
			Value: strconv.FormatInt(total, 10),
		})
	}

	for _, e := range destroys {
		total -= sizes[e.Obj]
		records = append(records, timeline.Sample{
			Name:  MemoryCounter,
			Lane:  lane,
			TS:    e.Timestamp,
			Value: strconv.FormatInt(total, 10),
		})
	}
	return records, nil
}

var (
	errNotJSONNumber = errors.New("not a JSON number")
	errLeadingZero   = errors.New("decimal with leading zero")
)

// Frequency builds the GPU frequency counter, one sample per change event with
// the new_freq value copied verbatim. Values must be JSON numbers since they are
// written unquoted.
func (c *Correlator) Frequency() ([]timeline.Record, error) {
	events := c.idx.ByName(c.vocab.FreqChange)
	if len(events) == 0 {
		return nil, nil
	}

	lane := timeline.Lane{PID: FrequencyPID, TID: "0"}
	records := declareFixedLane(lane, "GpuFreq")

	for _, e := range events {
		value := e.NewFreq
		if err := checkJSONNumber(value); err != nil {
			numErr := &NumericFormatError{Track: "frequency", Tag: traceevent.TagNewFreq, Value: value, Timestamp: e.Timestamp, Err: err}
			if !c.opts.Lenient {
				return abortTrack(records, lane, numErr), numErr
			}
			c.opts.Warn(numErr)
			value = "0"
		}
		records = append(records, timeline.Sample{
			Name:  FrequencyCounter,
			Lane:  lane,
			TS:    e.Timestamp,
			Value: value,
		})
	}
	return records, nil
}

// readInt parses an integer tag. In lenient mode an unparsable value reads as 0.
func (c *Correlator) readInt(track, tag, value string, e *traceevent.Event) (int64, error) {
	n, err := parseSize(value)
	if err == nil {
		return n, nil
	}
	numErr := &NumericFormatError{Track: track, Tag: tag, Value: value, Timestamp: e.Timestamp, Err: err}
	if !c.opts.Lenient {
		return 0, numErr
	}
	c.opts.Warn(numErr)
	return 0, nil
}

// abortTrack keeps what a track produced so far and labels its lane as incomplete.
func abortTrack(records []timeline.Record, lane timeline.Lane, err error) []timeline.Record {
	return append(records, timeline.ProcessLabels(lane, "incomplete: "+err.Error()))
}

// checkJSONNumber reports whether s can be emitted as a bare JSON number.
// "+450", ".5", "Inf" and "0x1p4" are rejected.
func checkJSONNumber(s string) error {
	if s == "" || !(s[0] == '-' || isDigit(s[0])) || !isDigit(s[len(s)-1]) || !json.Valid([]byte(s)) {
		return errNotJSONNumber
	}
	return nil
}

// parseSize reads an unsigned size honouring base prefixes ("0x1000" is 4096,
// "0o17" and "0b101" also work). A decimal with a leading zero such as "010"
// is rejected rather than read as octal. Sizes must fit in an int64.
func parseSize(s string) (int64, error) {
	if len(s) > 1 && s[0] == '0' && isDigit(s[1]) && strings.Trim(s, "0") != "" {
		return 0, errLeadingZero
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%d: %w", n, strconv.ErrRange)
	}
	return int64(n), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
