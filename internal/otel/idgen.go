package otel

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// FixedTraceIDGenerator puts every new root span in one trace and draws span
// IDs at random.
type FixedTraceIDGenerator struct {
	traceID trace.TraceID

	mu   sync.Mutex
	rand *rand.Rand
}

var _ sdktrace.IDGenerator = (*FixedTraceIDGenerator)(nil)

// NewFixedTraceIDGenerator creates a generator for traceID.
func NewFixedTraceIDGenerator(traceID trace.TraceID) *FixedTraceIDGenerator {
	var seed int64
	_ = binary.Read(crand.Reader, binary.LittleEndian, &seed) //nolint:errcheck // zero seed still works
	return &FixedTraceIDGenerator{
		traceID: traceID,
		rand:    rand.New(rand.NewSource(seed)), //nolint:gosec // span IDs need not be cryptographic
	}
}

// NewIDs returns the fixed trace ID and a fresh span ID.
func (g *FixedTraceIDGenerator) NewIDs(context.Context) (trace.TraceID, trace.SpanID) {
	return g.traceID, g.newSpanID()
}

// NewSpanID returns a fresh span ID.
func (g *FixedTraceIDGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	return g.newSpanID()
}

func (g *FixedTraceIDGenerator) newSpanID() trace.SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sid trace.SpanID
	for !sid.IsValid() {
		_, _ = g.rand.Read(sid[:]) //nolint:errcheck // math/rand never fails
	}
	return sid
}
