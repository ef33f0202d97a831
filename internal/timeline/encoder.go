package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Encoder writes records to the dangling-array trace format in append order.
// It never reorders or deduplicates; declaring a lane before using it is the
// producer's job.
type Encoder struct {
	w       io.Writer
	buf     bytes.Buffer
	enc     *json.Encoder
	started bool
	written int
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	e.enc = json.NewEncoder(&e.buf)
	e.enc.SetEscapeHTML(false)
	return e
}

// Begin writes the opening bracket. Encode calls it implicitly.
func (e *Encoder) Begin() error {
	if e.started {
		return nil
	}
	e.started = true
	if _, err := io.WriteString(e.w, "[\n"); err != nil {
		return fmt.Errorf("writing array start: %w", err)
	}
	return nil
}

// Encode writes each record as one JSON object followed by ",\n".
func (e *Encoder) Encode(records ...Record) error {
	if err := e.Begin(); err != nil {
		return err
	}
	for _, r := range records {
		e.buf.Reset()
		if err := e.enc.Encode(r.wire()); err != nil {
			return fmt.Errorf("encoding %s record: %w", r.Phase(), err)
		}
		line := bytes.TrimRight(e.buf.Bytes(), "\n")
		line = append(line, ',', '\n')
		if _, err := e.w.Write(line); err != nil {
			return fmt.Errorf("writing %s record: %w", r.Phase(), err)
		}
		e.written++
	}
	return nil
}

// Written returns the number of records written so far.
func (e *Encoder) Written() int {
	return e.written
}
