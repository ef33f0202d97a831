package converter

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/mrzor/gpu-timeline/internal/correlate"
	"github.com/mrzor/gpu-timeline/internal/timeline"
	"github.com/mrzor/gpu-timeline/internal/traceindex"
	"go.uber.org/zap"
)

// Track names, in pipeline order.
const (
	TrackProcess   = "process"
	TrackEngine    = "engine"
	TrackContext   = "context"
	TrackMemory    = "memory"
	TrackFrequency = "frequency"
)

// defaultRequestTags are always converted; the rest only with All.
var defaultRequestTags = []string{"queue", "submit"}

var extraRequestTags = []string{"add", "execute", "in", "out", "retire"}

// RequestTrack names the global timeline of one request state.
func RequestTrack(tag string) string {
	return "request " + tag
}

// Tracks returns the track names in the order they are written.
func Tracks(all bool) []string {
	tracks := []string{TrackProcess, TrackEngine, TrackContext, TrackMemory, TrackFrequency}
	for _, tag := range defaultRequestTags {
		tracks = append(tracks, RequestTrack(tag))
	}
	if all {
		for _, tag := range extraRequestTags {
			tracks = append(tracks, RequestTrack(tag))
		}
	}
	return tracks
}

// RecordWriter receives the records of every track. timeline.Encoder and
// timeline.Buffer implement it.
type RecordWriter interface {
	Begin() error
	Encode(records ...timeline.Record) error
	Written() int
}

// Sink gets a copy of every track after it is written, such as an OTLP exporter.
type Sink interface {
	Begin(ctx context.Context, idx *traceindex.Index) error
	Consume(ctx context.Context, track string, records []timeline.Record) error
	End(ctx context.Context) error
}

// Options tunes a Converter.
type Options struct {
	// All adds the add/execute/in/out/retire request timelines.
	All bool
	// Correlate is passed to the correlator. A nil Warn logs a warning.
	Correlate correlate.Options
	// Sink, when set, receives every track.
	Sink Sink
}

// TrackResult summarizes one track.
type TrackResult struct {
	Name    string
	Records int
	Err     error
}

// Result summarizes a conversion.
type Result struct {
	Events  int
	Skipped int
	Records int
	Tracks  []TrackResult
	// MemoryPeak is the highest GEM memory usage sample, in bytes.
	MemoryPeak int64
}

// Converter runs the tracks over an index.
type Converter struct {
	log  *zap.SugaredLogger
	opts Options
}

// New creates a Converter.
func New(log *zap.SugaredLogger, opts Options) *Converter {
	if opts.Correlate.Warn == nil {
		opts.Correlate.Warn = func(err error) {
			log.Warnf("Reading value as 0: %v", err)
		}
	}
	return &Converter{log: log, opts: opts}
}

// ConvertFile reads input and writes the trace-viewer file to output. An
// unreadable input aborts before output is created. Track failures are
// returned after the whole file is written.
func (c *Converter) ConvertFile(ctx context.Context, input, output string) (*Result, error) {
	idx, err := traceindex.Load(input)
	if err != nil {
		return nil, err
	}
	c.log.Infof("Indexed %d events from %s (%d lines skipped)", idx.Len(), input, idx.Skipped())

	f, err := os.Create(output) //nolint:gosec // output path is user-supplied
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	bw := bufio.NewWriter(f)

	res, convErr := c.Convert(ctx, idx, timeline.NewEncoder(bw))

	var errs *multierror.Error
	if convErr != nil {
		errs = multierror.Append(errs, convErr)
	}
	if err := bw.Flush(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to flush output: %w", err))
	}
	if err := f.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to close output: %w", err))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return res, err
	}
	c.log.Infof("Wrote %s", output)
	return res, nil
}

// Convert writes every track of idx to w. A write error stops the conversion
// immediately; track errors are aggregated and returned at the end.
func (c *Converter) Convert(ctx context.Context, idx *traceindex.Index, w RecordWriter) (*Result, error) {
	res := &Result{Events: idx.Len(), Skipped: idx.Skipped()}
	if err := w.Begin(); err != nil {
		return res, err
	}

	sink := c.opts.Sink
	if sink != nil {
		if err := sink.Begin(ctx, idx); err != nil {
			c.log.Warnf("Export disabled: %v", err)
			sink = nil
		}
	}

	corr := correlate.New(idx, c.opts.Correlate)
	var errs *multierror.Error
	for _, track := range Tracks(c.opts.All) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		records, trackErr := c.build(corr, track)
		if err := w.Encode(records...); err != nil {
			return res, fmt.Errorf("failed to write %s track: %w", track, err)
		}
		res.Records += len(records)
		res.Tracks = append(res.Tracks, TrackResult{Name: track, Records: len(records), Err: trackErr})

		if trackErr != nil {
			c.log.Warnf("Track %s is incomplete: %v", track, trackErr)
			errs = multierror.Append(errs, fmt.Errorf("%s track: %w", track, trackErr))
		} else {
			c.log.Debugf("Built %s track: %d records", track, len(records))
		}
		if track == TrackMemory {
			res.MemoryPeak = peakSample(records)
		}

		if sink != nil {
			if err := sink.Consume(ctx, track, records); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("failed to export %s track: %w", track, err))
			}
		}
	}

	if sink != nil {
		if err := sink.End(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to finish export: %w", err))
		}
	}

	c.log.Infof("Converted %d events into %d records (GEM memory peak %s)",
		res.Events, res.Records, humanize.IBytes(uint64(max(res.MemoryPeak, 0))))
	return res, errs.ErrorOrNil()
}

func (c *Converter) build(corr *correlate.Correlator, track string) ([]timeline.Record, error) {
	switch track {
	case TrackProcess:
		return corr.Process(), nil
	case TrackEngine:
		return corr.Engine(), nil
	case TrackContext:
		return corr.Context(), nil
	case TrackMemory:
		return corr.Memory()
	case TrackFrequency:
		return corr.Frequency()
	}
	for _, tag := range correlate.RequestTags {
		if track == RequestTrack(tag) {
			return corr.Request(tag), nil
		}
	}
	return nil, fmt.Errorf("unknown track %q", track)
}

func peakSample(records []timeline.Record) int64 {
	var peak int64
	for _, r := range records {
		s, ok := r.(timeline.Sample)
		if !ok {
			continue
		}
		if v, err := strconv.ParseInt(s.Value, 10, 64); err == nil && v > peak {
			peak = v
		}
	}
	return peak
}
