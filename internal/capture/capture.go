package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Options tunes a capture.
type Options struct {
	// Short enables only the i915_request_* tracepoints.
	Short bool
	// Sudo runs trace-cmd control commands through sudo.
	Sudo bool
	// WorkDir receives trace.dat and the report. Defaults to ".".
	WorkDir string
	// TraceCmd is the trace-cmd binary. Defaults to "trace-cmd".
	TraceCmd string
	// Now is the clock used to name the report. Defaults to time.Now.
	Now func() time.Time
}

// Capturer drives trace-cmd.
type Capturer struct {
	runner Runner
	log    *zap.SugaredLogger
	opts   Options
}

// New creates a Capturer.
func New(runner Runner, log *zap.SugaredLogger, opts Options) *Capturer {
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if opts.TraceCmd == "" {
		opts.TraceCmd = "trace-cmd"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Capturer{runner: runner, log: log, opts: opts}
}

// SelectEvents picks the i915 tracepoints out of `trace-cmd list` output.
// With short only i915_request_* events are kept.
func SelectEvents(list []byte, short bool) []string {
	var events []string
	scanner := bufio.NewScanner(bytes.NewReader(list))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.Contains(line, "i915") {
			continue
		}
		if short && !strings.Contains(line, "i915_request") {
			continue
		}
		events = append(events, line)
	}
	return events
}

// LogFileName names the report of a capture started at t.
func LogFileName(t time.Time) string {
	return fmt.Sprintf("drm_%s_%06d.log", t.Format("2006-01-02_15-04-05"), t.Nanosecond()/1000)
}

// Capture traces the i915 driver while command runs and returns the path of
// the text report. A failing application is logged, not fatal: the trace up
// to its exit is still collected. Once tracing started, cleanup runs even when
// ctx is cancelled.
func (c *Capturer) Capture(ctx context.Context, command []string) (string, error) {
	if len(command) == 0 {
		return "", fmt.Errorf("no application command given")
	}

	var list bytes.Buffer
	if err := c.traceCmd(ctx, &list, "list"); err != nil {
		return "", fmt.Errorf("failed to list tracepoints: %w", err)
	}
	events := SelectEvents(list.Bytes(), c.opts.Short)
	if len(events) == 0 {
		return "", fmt.Errorf("no i915 tracepoints available")
	}
	c.log.Infof("Enabling %d i915 tracepoints", len(events))

	if err := c.traceCmd(ctx, nil, "reset"); err != nil {
		return "", fmt.Errorf("failed to reset tracing: %w", err)
	}
	start := []string{"start"}
	for _, e := range events {
		start = append(start, "-e", e)
	}
	if err := c.traceCmd(ctx, nil, start...); err != nil {
		return "", fmt.Errorf("failed to start tracing: %w", err)
	}

	c.log.Infof("Running %s", strings.Join(command, " "))
	if err := c.runner.Run(ctx, os.Stdout, command[0], command[1:]...); err != nil {
		c.log.Warnf("Application exited with error: %v", err)
	}

	cleanup := context.WithoutCancel(ctx)
	tracePath := filepath.Join(c.opts.WorkDir, "trace.dat")
	var errs *multierror.Error
	if err := c.traceCmd(cleanup, nil, "stop"); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to stop tracing: %w", err))
	}
	if err := c.traceCmd(cleanup, nil, "extract", "-o", tracePath); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to extract trace: %w", err))
	}
	if err := c.traceCmd(cleanup, nil, "reset"); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to reset tracing: %w", err))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return "", err
	}

	logPath := filepath.Join(c.opts.WorkDir, LogFileName(c.opts.Now()))
	if err := c.report(cleanup, tracePath, logPath); err != nil {
		return "", err
	}
	c.log.Infof("Trace report written to %s", logPath)
	return logPath, nil
}

func (c *Capturer) report(ctx context.Context, tracePath, logPath string) (err error) {
	f, err := os.Create(logPath) //nolint:gosec // path built from the work dir
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report: %w", cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := c.runner.Run(ctx, bw, c.opts.TraceCmd, "report", tracePath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return bw.Flush()
}

// traceCmd runs a trace-cmd subcommand, through sudo when configured.
func (c *Capturer) traceCmd(ctx context.Context, stdout io.Writer, args ...string) error {
	name := c.opts.TraceCmd
	if c.opts.Sudo {
		args = append([]string{name}, args...)
		name = "sudo"
	}
	if stdout == nil {
		stdout = io.Discard
	}
	c.log.Debugf("Running %s %s", name, strings.Join(args, " "))
	return c.runner.Run(ctx, stdout, name, args...)
}
