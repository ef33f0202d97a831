package timeline

// Buffer collects records in memory, in append order.
type Buffer struct {
	Records []Record
}

// Begin implements the same contract as Encoder.Begin; it does nothing.
func (b *Buffer) Begin() error { return nil }

// Encode appends records.
func (b *Buffer) Encode(records ...Record) error {
	b.Records = append(b.Records, records...)
	return nil
}

// Written returns the number of records collected.
func (b *Buffer) Written() int { return len(b.Records) }
