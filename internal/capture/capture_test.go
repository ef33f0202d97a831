package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const listOutput = `sched:sched_switch
i915:i915_request_queue
i915:i915_request_in
i915:i915_gem_object_create
i915:intel_gpu_freq_change
drm:drm_vblank_event
`

type call struct {
	name string
	args []string
}

func (c call) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

type fakeRunner struct {
	calls   []call
	fail    map[string]error // keyed by call string prefix
	report  string
	appErr  error
	appName string
}

func (f *fakeRunner) Run(_ context.Context, stdout io.Writer, name string, args ...string) error {
	c := call{name: name, args: args}
	f.calls = append(f.calls, c)
	for prefix, err := range f.fail {
		if strings.HasPrefix(c.String(), prefix) {
			return err
		}
	}
	switch {
	case name == f.appName:
		return f.appErr
	case strings.HasSuffix(c.String(), " list") || c.String() == "trace-cmd list":
		_, err := io.WriteString(stdout, listOutput)
		return err
	case len(args) > 0 && args[0] == "report":
		_, err := io.WriteString(stdout, f.report)
		return err
	}
	return nil
}

func (f *fakeRunner) commands() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.String()
	}
	return out
}

var fixedNow = time.Date(2024, 3, 5, 14, 7, 9, 123456000, time.UTC)

func newCapturer(t *testing.T, runner Runner, opts Options) *Capturer {
	t.Helper()
	opts.Now = func() time.Time { return fixedNow }
	if opts.WorkDir == "" {
		opts.WorkDir = t.TempDir()
	}
	return New(runner, zaptest.NewLogger(t).Sugar(), opts)
}

func TestSelectEvents(t *testing.T) {
	assert.Equal(t, []string{
		"i915:i915_request_queue",
		"i915:i915_request_in",
		"i915:i915_gem_object_create",
		"i915:intel_gpu_freq_change",
	}, SelectEvents([]byte(listOutput), false))

	assert.Equal(t, []string{
		"i915:i915_request_queue",
		"i915:i915_request_in",
	}, SelectEvents([]byte(listOutput), true))

	assert.Empty(t, SelectEvents(nil, false))
}

func TestLogFileName(t *testing.T) {
	assert.Equal(t, "drm_2024-03-05_14-07-09_123456.log", LogFileName(fixedNow))
}

func TestCapture_Sequence(t *testing.T) {
	runner := &fakeRunner{appName: "./app", report: "app-1 [000] 1.000000: i915_request_in: ctx=1\n"}
	dir := t.TempDir()
	c := newCapturer(t, runner, Options{Short: true, WorkDir: dir})

	logPath, err := c.Capture(context.Background(), []string{"./app", "--frames", "10"})
	require.NoError(t, err)

	tracePath := filepath.Join(dir, "trace.dat")
	assert.Equal(t, []string{
		"trace-cmd list",
		"trace-cmd reset",
		"trace-cmd start -e i915:i915_request_queue -e i915:i915_request_in",
		"./app --frames 10",
		"trace-cmd stop",
		"trace-cmd extract -o " + tracePath,
		"trace-cmd reset",
		"trace-cmd report " + tracePath,
	}, runner.commands())

	assert.Equal(t, filepath.Join(dir, "drm_2024-03-05_14-07-09_123456.log"), logPath)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, runner.report, string(data))
}

func TestCapture_Sudo(t *testing.T) {
	runner := &fakeRunner{appName: "app"}
	c := newCapturer(t, runner, Options{Sudo: true})

	_, err := c.Capture(context.Background(), []string{"app"})
	require.NoError(t, err)

	cmds := runner.commands()
	assert.Equal(t, "sudo trace-cmd list", cmds[0])
	assert.Equal(t, "app", cmds[3], "the application never runs under sudo")
	assert.True(t, strings.HasPrefix(cmds[len(cmds)-1], "trace-cmd report"), "report reads trace.dat unprivileged")
}

func TestCapture_AppFailureStillCollects(t *testing.T) {
	runner := &fakeRunner{appName: "app", appErr: errors.New("exit status 3")}
	c := newCapturer(t, runner, Options{})

	logPath, err := c.Capture(context.Background(), []string{"app"})
	require.NoError(t, err)
	assert.NotEmpty(t, logPath)
	assert.Contains(t, runner.commands(), "trace-cmd stop")
}

func TestCapture_NoTracepoints(t *testing.T) {
	c := newCapturer(t, &emptyListRunner{&fakeRunner{appName: "app"}}, Options{})

	_, err := c.Capture(context.Background(), []string{"app"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no i915 tracepoints")
}

type emptyListRunner struct{ *fakeRunner }

func (r *emptyListRunner) Run(ctx context.Context, stdout io.Writer, name string, args ...string) error {
	if len(args) == 1 && args[0] == "list" {
		r.calls = append(r.calls, call{name: name, args: args})
		_, err := io.WriteString(stdout, "sched:sched_switch\n")
		return err
	}
	return r.fakeRunner.Run(ctx, stdout, name, args...)
}

func TestCapture_StartFailure(t *testing.T) {
	runner := &fakeRunner{appName: "app", fail: map[string]error{"trace-cmd start": fmt.Errorf("permission denied")}}
	c := newCapturer(t, runner, Options{})

	_, err := c.Capture(context.Background(), []string{"app"})
	require.Error(t, err)
	assert.NotContains(t, runner.commands(), "app", "the application is not run without tracing")
}

func TestCapture_TeardownErrorsAggregated(t *testing.T) {
	runner := &fakeRunner{appName: "app", fail: map[string]error{
		"trace-cmd stop":    errors.New("stop failed"),
		"trace-cmd extract": errors.New("extract failed"),
	}}
	c := newCapturer(t, runner, Options{})

	_, err := c.Capture(context.Background(), []string{"app"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop failed")
	assert.Contains(t, err.Error(), "extract failed")
	assert.NotContains(t, strings.Join(runner.commands(), "\n"), "report", "no report without trace.dat")
}

func TestCapture_NoCommand(t *testing.T) {
	c := newCapturer(t, &fakeRunner{}, Options{})
	_, err := c.Capture(context.Background(), nil)
	require.Error(t, err)
}

func TestExecRunner(t *testing.T) {
	var out strings.Builder
	err := ExecRunner{}.Run(context.Background(), &out, "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())

	err = ExecRunner{}.Run(context.Background(), io.Discard, "sh", "-c", "exit 2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sh:")
}
