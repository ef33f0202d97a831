package otel

import (
	"context"
	"testing"

	"github.com/mrzor/gpu-timeline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestFixedTraceIDGenerator(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(recorder),
		sdktrace.WithIDGenerator(NewFixedTraceIDGenerator(traceID)),
	)
	tracer := tp.Tracer("test")

	_, a := tracer.Start(context.Background(), "a")
	a.End()
	_, b := tracer.Start(context.Background(), "b")
	b.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, traceID, spans[0].SpanContext().TraceID())
	assert.Equal(t, traceID, spans[1].SpanContext().TraceID())
	assert.NotEqual(t, spans[0].SpanContext().SpanID(), spans[1].SpanContext().SpanID())
	assert.True(t, spans[0].SpanContext().SpanID().IsValid())
}

func TestInitProvider(t *testing.T) {
	cfg := &config.OTELConfig{ServiceName: "gpu-timeline", ResourceAttributes: "host=box"}

	tp, err := InitProvider(cfg, "test", trace.TraceID{}, zap.NewNop().Sugar())
	require.NoError(t, err)

	assert.NotNil(t, tp.Tracer("x"))
	require.NoError(t, ShutdownProvider(tp, context.Background()))
}

func TestShutdownProvider_Nil(t *testing.T) {
	require.NoError(t, ShutdownProvider(nil, context.Background()))
}
