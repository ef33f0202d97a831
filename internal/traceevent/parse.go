package traceevent

import (
	"strconv"
	"strings"
)

// Qualifies reports whether a line is worth parsing at all. Lines that fail
// this check (headers, blank lines, "CPU 0 is empty") are skipped silently.
func Qualifies(line string) bool {
	return strings.Contains(line, "[") && strings.Contains(line, "]") && strings.Contains(line, ":")
}

// Parse converts one trace line into an Event.
// Process names may contain spaces: every token before the bracketed cpu token
// belongs to the process label.
func Parse(line string) (*Event, error) {
	line = strings.TrimRight(line, "\r\n")

	var head []string
	pos := 0
	cpuAt := -1
	for {
		tok, end := nextField(line, pos)
		if tok == "" {
			break
		}
		head = append(head, tok)
		pos = end
		if cpuAt < 0 && len(head) > 1 && isBracketed(tok) {
			cpuAt = len(head) - 1
		}
		if cpuAt >= 0 && len(head) == cpuAt+3 {
			break
		}
	}

	if len(head) < 4 {
		return nil, &MalformedLineError{Line: line, Reason: "fewer than 4 fields"}
	}
	if cpuAt < 0 {
		return nil, &MalformedLineError{Line: line, Reason: "no bracketed cpu field"}
	}
	if len(head) < cpuAt+3 {
		return nil, &MalformedLineError{Line: line, Reason: "missing timestamp or event name"}
	}

	e := &Event{
		ProcessLabel: strings.Join(head[:cpuAt], " "),
		CPU:          strings.TrimSuffix(strings.TrimPrefix(head[cpuAt], "["), "]"),
		Name:         strings.TrimSuffix(head[cpuAt+2], ":"),
	}
	e.ProcessName, e.PID = splitProcess(e.ProcessLabel)

	ts, err := parseTimestamp(head[cpuAt+1])
	if err != nil {
		return nil, &MalformedLineError{Line: line, Reason: "bad timestamp: " + err.Error()}
	}
	e.Timestamp = ts
	e.FracDigits = fracDigits(head[cpuAt+1])

	e.Tags = scanTags(line[pos:])
	e.Dev = e.Tags[TagDev]
	e.Engine = e.Tags[TagEngine]
	e.Ring = e.Tags[TagRing]
	e.HWID = e.Tags[TagHWID]
	e.Ctx = e.Tags[TagCtx]
	e.Seqno = e.Tags[TagSeqno]
	e.Port = e.Tags[TagPort]
	e.Completed = e.Tags[TagCompleted]
	e.Obj = e.Tags[TagObj]
	e.Size = e.Tags[TagSize]
	e.NewFreq = e.Tags[TagNewFreq]

	// Older kernels report only the ring.
	if e.Engine == "" && e.Ring != "" {
		e.Engine = e.Ring + ":0"
	}

	e.buildMetadata()
	return e, nil
}

// splitProcess splits "name-pid" at the last dash. A label without a dash is
// used for both parts.
func splitProcess(label string) (name, pid string) {
	i := strings.LastIndex(label, "-")
	if i < 0 {
		return label, label
	}
	return label[:i], label[i+1:]
}

// parseTimestamp turns "1000.000050:" into 1000000050.
func parseTimestamp(tok string) (int64, error) {
	digits := strings.ReplaceAll(strings.TrimSuffix(tok, ":"), ".", "")
	return strconv.ParseInt(digits, 10, 64)
}

func fracDigits(tok string) int {
	tok = strings.TrimSuffix(tok, ":")
	if i := strings.LastIndexByte(tok, '.'); i >= 0 {
		return len(tok) - i - 1
	}
	return 0
}

func isBracketed(tok string) bool {
	return len(tok) >= 2 && tok[0] == '[' && tok[len(tok)-1] == ']'
}

// nextField returns the next whitespace-delimited token starting at or after
// from, and the offset just past it. It returns "" at end of input.
func nextField(s string, from int) (string, int) {
	i := from
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	j := i
	for j < len(s) && !isSpace(s[j]) {
		j++
	}
	return s[i:j], j
}

// scanTags collects key=value pairs from the payload. A key starts at a field
// boundary; the value runs to the next comma with trailing whitespace trimmed.
// The first occurrence of a key wins.
func scanTags(payload string) map[string]string {
	tags := make(map[string]string)
	for i := 0; i < len(payload); i++ {
		if isSpace(payload[i]) || payload[i] == ',' {
			continue
		}
		if i > 0 && !isSpace(payload[i-1]) && payload[i-1] != ',' {
			continue
		}

		j := i
		for j < len(payload) && payload[j] != '=' && payload[j] != ',' && !isSpace(payload[j]) {
			j++
		}
		if j == i || j >= len(payload) || payload[j] != '=' {
			continue
		}

		key := payload[i:j]
		rest := payload[j+1:]
		if k := strings.IndexByte(rest, ','); k >= 0 {
			rest = rest[:k]
		}
		if _, seen := tags[key]; !seen {
			tags[key] = strings.TrimRight(rest, " \t\r\n")
		}
	}
	return tags
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
