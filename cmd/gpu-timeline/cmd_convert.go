package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mrzor/gpu-timeline/internal/attributes"
	"github.com/mrzor/gpu-timeline/internal/config"
	"github.com/mrzor/gpu-timeline/internal/converter"
	"github.com/mrzor/gpu-timeline/internal/correlate"
	"github.com/mrzor/gpu-timeline/internal/otel"
	"github.com/mrzor/gpu-timeline/internal/output"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

// convertFlags are the conversion flags shared by convert and capture.
type convertFlags struct {
	cfg        *config.Config
	customArgs []string
	otlpTracks []string
	traceID    string
	parentID   string
}

// newConvertFlags seeds the flag defaults from the environment.
func newConvertFlags() (*convertFlags, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return &convertFlags{cfg: cfg}, nil
}

func (f *convertFlags) register(cmd *cobra.Command) {
	cfg := f.cfg

	flags := cmd.Flags()
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output JSON path (default: input path with a .json extension)")
	flags.BoolVarP(&cfg.All, "all", "a", cfg.All, "Also build the add, execute, in, out and retire request timelines")
	flags.BoolVar(&cfg.Lenient, "lenient", cfg.Lenient, "Read unparsable counter values as 0 instead of stopping the track")
	flags.StringVar(&cfg.Filter, "filter", cfg.Filter, `Keep only matching events on process lanes, e.g. 'tags["ctx"] == "7"'`)
	flags.StringArrayVar(&f.customArgs, "arg", nil, `Add a span arg computed per event, as name=expression (repeatable)`)
	flags.BoolVar(&cfg.OTLP, "otlp", cfg.OTLP, "Also export spans to the OTLP/HTTP collector named by OTEL_* variables")
	flags.StringSliceVar(&f.otlpTracks, "otlp-tracks", []string{converter.TrackEngine, converter.RequestTrack("queue"), converter.RequestTrack("submit")}, "Tracks to export with --otlp")
	flags.StringVar(&f.traceID, "trace-id", "", "Expression for the exported trace ID, e.g. 'env[\"TRACE_ID\"]'")
	flags.StringVar(&f.parentID, "parent-id", "", "Expression for the parent span ID of the exported root span")
}

func newConvertCmd(root *rootEnv) (*cobra.Command, error) {
	flags, err := newConvertFlags()
	if err != nil {
		return nil, err
	}
	cmd := &cobra.Command{
		Use:   "convert <trace.log>",
		Short: "Convert a trace-cmd report into a trace-viewer JSON file",
		Long: `
Reads the text output of "trace-cmd report" (plain, gzip or zstd) and writes a
JSON array loadable by chrome://tracing or Perfetto.

The array is left open, as trace viewers accept.
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.cfg.Input = args[0]
			return flags.convert(cmd.Context(), root)
		},
	}
	flags.register(cmd)
	return cmd, nil
}

func (f *convertFlags) convert(ctx context.Context, root *rootEnv) error {
	cfg := f.cfg
	customArgs, err := config.ParseCustomArgs(f.customArgs)
	if err != nil {
		return err
	}
	cfg.CustomArgs = customArgs
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := root.log
	warn := func(err error) { log.Warnf("%v", err) }

	evaluator, err := attributes.NewEvaluator(cfg.CustomArgs)
	if err != nil {
		return err
	}
	filter, err := attributes.NewFilter(cfg.Filter, warn)
	if err != nil {
		return err
	}

	opts := converter.Options{
		All: cfg.All,
		Correlate: correlate.Options{
			Vocabulary: correlate.Vocabulary(cfg.Vocabulary),
			Lenient:    cfg.Lenient,
			Args:       evaluator.ArgsFunc(warn),
			Filter:     filter.Match,
		},
	}

	if cfg.OTLP {
		exporter, shutdown, err := f.setupExport(root)
		if err != nil {
			return err
		}
		defer shutdown()
		opts.Sink = exporter
	}

	outPath := cfg.OutputPath()
	log.Infof("Converting %s into %s", cfg.Input, outPath)
	res, err := converter.New(log, opts).ConvertFile(ctx, cfg.Input, outPath)
	if res != nil {
		log.Infof("Done: %d events, %d records, %d skipped lines", res.Events, res.Records, res.Skipped)
	}
	return err
}

// setupExport initializes the OTEL provider and returns an exporter and its
// cleanup function.
func (f *convertFlags) setupExport(root *rootEnv) (*output.Exporter, func(), error) {
	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return nil, nil, err
	}

	traceIDEval, err := attributes.NewTraceIDEvaluator(f.traceID)
	if err != nil {
		return nil, nil, err
	}
	parentIDEval, err := attributes.NewParentIDEvaluator(f.parentID)
	if err != nil {
		return nil, nil, err
	}

	run := attributes.RunEnv{Env: attributes.EnvironMap(os.Environ()), Input: f.cfg.Input}
	traceID, traceWarnings, err := traceIDEval.EvaluateAndValidate(run)
	if err != nil {
		return nil, nil, err
	}
	parentID, parentWarnings, err := parentIDEval.EvaluateAndValidate(run)
	if err != nil {
		return nil, nil, err
	}

	tp, err := otel.InitProvider(otelCfg, version, traceID, root.log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(tp, shutdownCtx); err != nil {
			root.log.Errorf("Error shutting down OTEL provider: %v", err)
		}
	}

	attrs := []attribute.KeyValue{attribute.String("gpu.trace.input", f.cfg.Input)}
	attrs = append(attrs, traceWarnings...)
	attrs = append(attrs, parentWarnings...)

	exporter := output.NewExporter(tp.Tracer("gpu-timeline"), output.ExporterOptions{
		Tracks:     f.otlpTracks,
		TraceID:    traceID,
		ParentID:   parentID,
		Attributes: attrs,
	})
	return exporter, cleanup, nil
}
