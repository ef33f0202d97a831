package traceindex

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `# tracer: nop
#
cpus=4
   gfx-app-300   [001]   10.000100: i915_request_queue: dev=0, engine=0:0, hw_id=1, ctx=7, seqno=1
   gfx-app-300   [001]   10.000200: i915_request_in: dev=0, engine=0:0, hw_id=1, ctx=7, seqno=1, port=0
    <idle>-0     [000]   10.000300: i915_request_out: dev=0, engine=0:0, hw_id=1, ctx=7, seqno=1, completed?=1
   gfx-app-300   [001]   10.000400: i915_request_queue: dev=0, engine=1:0, hw_id=2, ctx=9, seqno=4
   other-301     [002]   10.000500: i915_gem_object_create: obj=0xffff0001, size=0x2000
   gfx-app-300   [001]   10.000600: i915_request_queue: dev=0, engine=0:0, hw_id=1, ctx=7, seqno=2
CPU 3 is empty
   broken-1      [001]   ten: i915_request_in: ctx=1
`

func loadSample(t *testing.T) *Index {
	t.Helper()
	x := New()
	n, err := x.Ingest(strings.NewReader(sampleLog))
	require.NoError(t, err)
	require.Equal(t, 6, n)
	return x
}

func TestIngest_CountsAndSkips(t *testing.T) {
	x := loadSample(t)

	assert.Equal(t, 6, x.Len())
	assert.Equal(t, 1, x.Skipped(), "the broken timestamp line is skipped, not fatal")
}

func TestIngest_DistinctSets(t *testing.T) {
	x := loadSample(t)

	assert.Equal(t, []string{"gfx-app-300", "<idle>-0", "other-301"}, x.Processes())
	assert.Equal(t, []string{"i915_request_queue", "i915_request_in", "i915_request_out", "i915_gem_object_create"}, x.Names())
	assert.Equal(t, []string{"0"}, x.Devices())
	assert.Equal(t, []string{"0:0", "1:0"}, x.Engines())
	assert.Equal(t, []string{"1", "2"}, x.HWIDs())
	assert.Equal(t, []string{"7", "9"}, x.Contexts())
	assert.Equal(t, []string{"1", "4", "2"}, x.Seqnos())
}

func TestQueries_LogOrder(t *testing.T) {
	x := loadSample(t)

	queue := x.ByName("i915_request_queue")
	require.Len(t, queue, 3)
	assert.Equal(t, []string{"1", "4", "2"}, []string{queue[0].Seqno, queue[1].Seqno, queue[2].Seqno})

	assert.Len(t, x.ByProcess("gfx-app-300"), 4)
	assert.Len(t, x.ByNameAndProcess("i915_request_queue", "gfx-app-300"), 3)
	assert.Empty(t, x.ByNameAndProcess("i915_request_queue", "other-301"))

	ctx7 := x.ByNameAndContext("i915_request_queue", "7")
	require.Len(t, ctx7, 2)
	assert.Equal(t, "1", ctx7[0].Seqno)
	assert.Equal(t, "2", ctx7[1].Seqno)

	assert.Equal(t, []string{"7", "9"}, x.ContextsOfProcess("gfx-app-300"))
	assert.Nil(t, x.ContextsOfProcess("other-301"))
}

func TestQueries_ResultsAreCopies(t *testing.T) {
	x := loadSample(t)

	got := x.ByName("i915_request_queue")
	got[0] = nil

	assert.NotNil(t, x.ByName("i915_request_queue")[0])
}

func TestIngest_Empty(t *testing.T) {
	x := New()
	n, err := x.Ingest(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, 0, n)
	assert.Equal(t, 0, x.Len())
	assert.Empty(t, x.Processes())
	assert.Empty(t, x.Engines())
	assert.Nil(t, x.Events())
}

func TestIngestLines(t *testing.T) {
	x := New()
	n := x.IngestLines([]string{
		"A-100 [000] 1000.000000: request_in: ring=0, seqno=5",
		"not a trace line",
		"B-200 [000] 1000.000050: request_out: ring=0, seqno=5",
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"0:0"}, x.Engines())
	assert.Len(t, x.ByNameAndContext("request_in", ""), 1)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoad_Plain(t *testing.T) {
	x, err := Load(writeFile(t, "drm.log", []byte(sampleLog)))
	require.NoError(t, err)
	assert.Equal(t, 6, x.Len())
}

func TestLoad_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(sampleLog))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	x, err := Load(writeFile(t, "drm.log.gz", buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 6, x.Len())
}

func TestLoad_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(sampleLog), nil)
	require.NoError(t, enc.Close())

	// The extension is irrelevant, detection uses magic bytes.
	x, err := Load(writeFile(t, "drm.bin", compressed))
	require.NoError(t, err)
	assert.Equal(t, 6, x.Len())
}

func TestLoad_Unreadable(t *testing.T) {
	x, err := Load(filepath.Join(t.TempDir(), "missing.log"))

	require.NotNil(t, x)
	assert.Equal(t, 0, x.Len())

	var unreadable *UnreadableSourceError
	require.True(t, errors.As(err, &unreadable))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_EmptyFile(t *testing.T) {
	x, err := Load(writeFile(t, "empty.log", nil))
	require.NoError(t, err)
	assert.Equal(t, 0, x.Len())
}
