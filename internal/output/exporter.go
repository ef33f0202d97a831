package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrzor/gpu-timeline/internal/timeline"
	"github.com/mrzor/gpu-timeline/internal/timesync"
	"github.com/mrzor/gpu-timeline/internal/traceindex"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExporterOptions tunes an Exporter. The zero value exports every track.
type ExporterOptions struct {
	// Tracks restricts the export to the named tracks.
	Tracks []string
	// BootTime anchors trace timestamps. When zero it is read from /proc/stat,
	// which is only right when converting on the traced machine.
	BootTime time.Time
	// RootName names the root span. Defaults to "gpu-timeline".
	RootName string
	// TraceID and ParentID attach the root span to a remote parent when both are valid.
	TraceID  trace.TraceID
	ParentID trace.SpanID
	// Attributes are set on the root span.
	Attributes []attribute.KeyValue
}

// Exporter turns timeline tracks into OpenTelemetry spans.
type Exporter struct {
	tracer trace.Tracer
	opts   ExporterOptions
	tracks map[string]bool

	clock   *timesync.Converter
	rootCtx context.Context
	root    trace.Span
	last    int64

	processNames map[string]string
	threadNames  map[timeline.Lane]string
	exported     int
}

// NewExporter creates an Exporter using tracer.
func NewExporter(tracer trace.Tracer, opts ExporterOptions) *Exporter {
	if opts.RootName == "" {
		opts.RootName = "gpu-timeline"
	}
	var tracks map[string]bool
	if len(opts.Tracks) > 0 {
		tracks = make(map[string]bool, len(opts.Tracks))
		for _, t := range opts.Tracks {
			tracks[t] = true
		}
	}
	return &Exporter{
		tracer:       tracer,
		opts:         opts,
		tracks:       tracks,
		processNames: make(map[string]string),
		threadNames:  make(map[timeline.Lane]string),
	}
}

// Begin starts the root span over the time range of the indexed events.
func (x *Exporter) Begin(ctx context.Context, idx *traceindex.Index) error {
	events := idx.Events()
	fracDigits := 6
	var first, last int64
	for i, e := range events {
		if i == 0 {
			fracDigits = e.FracDigits
			first, last = e.Timestamp, e.Timestamp
			continue
		}
		first = min(first, e.Timestamp)
		last = max(last, e.Timestamp)
	}

	var err error
	if x.opts.BootTime.IsZero() {
		x.clock, err = timesync.NewConverter(fracDigits)
	} else {
		x.clock, err = timesync.NewConverterAt(x.opts.BootTime, fracDigits)
	}
	if err != nil {
		return fmt.Errorf("failed to set up time conversion: %w", err)
	}

	if x.opts.TraceID.IsValid() && x.opts.ParentID.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    x.opts.TraceID,
			SpanID:     x.opts.ParentID,
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		}))
	}

	attrs := append([]attribute.KeyValue{
		attribute.Int("gpu.trace.events", idx.Len()),
		attribute.Int("gpu.trace.skipped_lines", idx.Skipped()),
		attribute.Int("gpu.trace.engines", len(idx.Engines())),
		attribute.Int("gpu.trace.contexts", len(idx.Contexts())),
	}, x.opts.Attributes...)

	x.rootCtx, x.root = x.tracer.Start(ctx, x.opts.RootName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(x.clock.ToWallClock(first)),
		trace.WithAttributes(attrs...),
	)
	x.last = last
	return nil
}

// Consume exports one track.
func (x *Exporter) Consume(_ context.Context, track string, records []timeline.Record) error {
	if x.root == nil {
		return fmt.Errorf("exporter not started")
	}
	if x.tracks != nil && !x.tracks[track] {
		return nil
	}

	var (
		start, end int64
		timed      bool
		labels     []string
	)
	for _, r := range records {
		switch r := r.(type) {
		case timeline.Metadata:
			x.learnLane(r)
			if r.Kind == timeline.ProcessLabelsKind {
				labels = append(labels, r.Args["labels"])
			}
		case timeline.Span:
			s, e := r.TS, r.TS+max(r.Dur, 0)
			if !timed {
				start, end, timed = s, e, true
			}
			start, end = min(start, s), max(end, e)
		case timeline.Sample:
			if !timed {
				start, end, timed = r.TS, r.TS, true
			}
			start, end = min(start, r.TS), max(end, r.TS)
		}
	}
	if !timed {
		return nil
	}

	trackCtx, trackSpan := x.tracer.Start(x.rootCtx, "track "+track,
		trace.WithTimestamp(x.clock.ToWallClock(start)),
		trace.WithAttributes(attribute.String("gpu.track", track)),
	)
	for _, r := range records {
		switch r := r.(type) {
		case timeline.Span:
			x.exportSpan(trackCtx, r)
		case timeline.Sample:
			trackSpan.AddEvent(r.Name,
				trace.WithTimestamp(x.clock.ToWallClock(r.TS)),
				trace.WithAttributes(
					attribute.String("gpu.counter.value", r.Value),
					attribute.String("gpu.lane.pid", r.Lane.PID),
				),
			)
		}
	}
	if len(labels) > 0 {
		trackSpan.SetStatus(codes.Error, labels[0])
	}
	trackSpan.End(trace.WithTimestamp(x.clock.ToWallClock(end)))
	x.last = max(x.last, end)
	return nil
}

func (x *Exporter) exportSpan(ctx context.Context, s timeline.Span) {
	name := s.Name
	if proc, ok := x.processNames[s.Lane.PID]; ok {
		name = proc + " " + s.Name
	}

	attrs := []attribute.KeyValue{
		attribute.String("gpu.lane.pid", s.Lane.PID),
		attribute.String("gpu.lane.tid", s.Lane.TID),
		attribute.Int64("gpu.span.ts", s.TS),
		attribute.Int64("gpu.span.dur", s.Dur),
	}
	if thread, ok := x.threadNames[s.Lane]; ok {
		attrs = append(attrs, attribute.String("gpu.lane.thread", thread))
	}
	attrs = append(attrs, argAttributes(s.Args)...)

	_, span := x.tracer.Start(ctx, name,
		trace.WithTimestamp(x.clock.ToWallClock(s.TS)),
		trace.WithAttributes(attrs...),
	)
	if s.Dur < 0 {
		span.SetStatus(codes.Error, "request ended before it started")
	}
	span.End(trace.WithTimestamp(x.clock.ToWallClock(s.TS + max(s.Dur, 0))))
	x.exported++
}

func (x *Exporter) learnLane(m timeline.Metadata) {
	switch m.Kind {
	case timeline.ProcessNameKind:
		x.processNames[m.Lane.PID] = m.Args["name"]
	case timeline.ThreadNameKind:
		x.threadNames[m.Lane] = m.Args["name"]
	}
}

// argAttributes maps span args to "gpu.arg.<key>" attributes.
func argAttributes(raw json.RawMessage) []attribute.KeyValue {
	if len(raw) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(args))
	for k, v := range args {
		attrs = append(attrs, attribute.String("gpu.arg."+k, fmt.Sprint(v)))
	}
	return attrs
}

// End closes the root span at the last exported timestamp.
func (x *Exporter) End(context.Context) error {
	if x.root == nil {
		return nil
	}
	x.root.SetAttributes(attribute.Int("gpu.trace.exported_spans", x.exported))
	x.root.End(trace.WithTimestamp(x.clock.ToWallClock(x.last)))
	x.root = nil
	return nil
}

// Exported returns the number of timeline spans exported so far.
func (x *Exporter) Exported() int {
	return x.exported
}
