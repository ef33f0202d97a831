package correlate

import (
	"errors"
	"fmt"
)

// ErrUnknownRequestTag is returned by RequestLane for tags outside RequestTags.
var ErrUnknownRequestTag = errors.New("unknown request tag")

// ErrMissingEngine is passed to Options.Warn for a request_in event that names
// no engine.
var ErrMissingEngine = errors.New("request has no engine")

// NumericFormatError reports a tag value a counter track could not read as a number.
type NumericFormatError struct {
	Track     string
	Tag       string
	Value     string
	Timestamp int64
	Err       error
}

func (e *NumericFormatError) Error() string {
	return fmt.Sprintf("%s track: %s=%q at ts %d is not a number: %v", e.Track, e.Tag, e.Value, e.Timestamp, e.Err)
}

func (e *NumericFormatError) Unwrap() error {
	return e.Err
}
