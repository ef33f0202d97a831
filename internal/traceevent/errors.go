package traceevent

import "fmt"

// MalformedLineError reports a line that passed Qualifies but lacks the
// process/cpu/timestamp/eventname prefix. Ingestion skips such lines.
type MalformedLineError struct {
	Line   string
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed trace line %q: %s", e.Line, e.Reason)
}
