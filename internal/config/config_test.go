package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "i915_request_", cfg.Vocabulary.RequestPrefix)
	assert.Equal(t, "i915_gem_object_create", cfg.Vocabulary.ObjectCreate)
	assert.Equal(t, "i915_gem_object_destroy", cfg.Vocabulary.ObjectDestroy)
	assert.Equal(t, "intel_gpu_freq_change", cfg.Vocabulary.FreqChange)
	assert.False(t, cfg.All)
	assert.False(t, cfg.Lenient)
	assert.Empty(t, cfg.Output)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GPU_TIMELINE_ALL", "true")
	t.Setenv("GPU_TIMELINE_LENIENT", "1")
	t.Setenv("GPU_TIMELINE_OUTPUT", "/tmp/out.json")
	t.Setenv("GPU_TIMELINE_VOCAB_REQUEST_PREFIX", "request_")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.All)
	assert.True(t, cfg.Lenient)
	assert.Equal(t, "/tmp/out.json", cfg.Output)
	assert.Equal(t, "request_", cfg.Vocabulary.RequestPrefix)
	assert.Equal(t, "i915_gem_object_create", cfg.Vocabulary.ObjectCreate)
}

func TestFromEnv_BadBool(t *testing.T) {
	t.Setenv("GPU_TIMELINE_ALL", "maybe")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestCaptureFromEnv(t *testing.T) {
	cfg, err := CaptureFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Short)
	assert.Equal(t, ".", cfg.WorkDir)

	t.Setenv("GPU_TIMELINE_SHORT", "true")
	t.Setenv("GPU_TIMELINE_WORKDIR", "/var/tmp")
	cfg, err = CaptureFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Short)
	assert.Equal(t, "/var/tmp", cfg.WorkDir)
}

func TestValidate(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Error(t, cfg.Validate(), "input is required")

	cfg.Input = "drm.log"
	require.NoError(t, cfg.Validate())

	cfg.Vocabulary.RequestPrefix = ""
	require.Error(t, cfg.Validate())
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"drm_2024.log", "drm_2024.json"},
		{"drm_2024.log.gz", "drm_2024.json"},
		{"traces/run1/drm.log", "traces/run1/drm.json"},
		{"./drm.log", "drm.json"},
		{"noext", "noext.json"},
		{".hidden", ".hidden.json"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultOutputPath(tt.input))
		})
	}
}

func TestOutputPath_ExplicitWins(t *testing.T) {
	cfg := &Config{Input: "drm.log", Output: "custom.json"}
	assert.Equal(t, "custom.json", cfg.OutputPath())

	cfg.Output = ""
	assert.Equal(t, "drm.json", cfg.OutputPath())
}

func TestParseCustomArgs(t *testing.T) {
	args, err := ParseCustomArgs([]string{"cpu=cpu", `tag=tags["hw_id"] + "/" + pid`, "eq=a==b"})
	require.NoError(t, err)

	require.Len(t, args, 3)
	assert.Equal(t, CustomArg{Name: "cpu", Expression: "cpu"}, args[0])
	assert.Equal(t, `tags["hw_id"] + "/" + pid`, args[1].Expression)
	assert.Equal(t, "a==b", args[2].Expression, "only the first = separates the name")
}

func TestParseCustomArgs_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values []string
	}{
		{"no equals", []string{"cpu"}},
		{"empty name", []string{"=cpu"}},
		{"empty expression", []string{"cpu= "}},
		{"duplicate", []string{"a=1", "a=2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCustomArgs(tt.values)
			require.Error(t, err)
		})
	}
}

func TestOTELConfig(t *testing.T) {
	cfg, err := ParseOTELConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpu-timeline", cfg.ServiceName)
	assert.Equal(t, "localhost:4318", cfg.GetEndpoint())

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "traces:4318")
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "host=gpu-box, team = graphics,bogus")
	cfg, err = ParseOTELConfig()
	require.NoError(t, err)
	assert.Equal(t, "traces:4318", cfg.GetEndpoint())

	attrs := cfg.ParseResourceAttributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "host", string(attrs[0].Key))
	assert.Equal(t, "graphics", attrs[1].Value.AsString())
}
