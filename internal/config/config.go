// Package config holds the converter and capture configuration.
//
// Defaults come from GPU_TIMELINE_* environment variables; command-line flags
// override them.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// CustomArg is a span arg computed by an expression over each event.
type CustomArg struct {
	Name       string
	Expression string
}

// Vocabulary holds the trace event names the tracks read.
type Vocabulary struct {
	RequestPrefix string `env:"REQUEST_PREFIX" envDefault:"i915_request_"`
	ObjectCreate  string `env:"OBJECT_CREATE" envDefault:"i915_gem_object_create"`
	ObjectDestroy string `env:"OBJECT_DESTROY" envDefault:"i915_gem_object_destroy"`
	FreqChange    string `env:"FREQ_CHANGE" envDefault:"intel_gpu_freq_change"`
}

// Config holds the conversion settings.
type Config struct {
	// Input is the trace-cmd report text file (optionally gzip or zstd compressed).
	Input string
	// Output is the JSON path; empty means derived from Input.
	Output string `env:"OUTPUT"`
	// All adds the add/execute/in/out/retire request timelines to queue/submit.
	All bool `env:"ALL" envDefault:"false"`
	// Lenient reads unparsable counter values as 0 instead of stopping the track.
	Lenient bool `env:"LENIENT" envDefault:"false"`
	// Verbose switches to development logging.
	Verbose bool `env:"VERBOSE" envDefault:"false"`
	// OTLP also exports engine and request spans to an OTLP/HTTP collector.
	OTLP bool `env:"OTLP" envDefault:"false"`
	// Filter is an expression; events for which it is false are left out of the
	// per-process track.
	Filter string `env:"FILTER"`
	// CustomArgs are added to the args of every span.
	CustomArgs []CustomArg

	Vocabulary Vocabulary `envPrefix:"VOCAB_"`
}

// CaptureConfig holds the trace-cmd capture settings.
type CaptureConfig struct {
	// Short restricts the captured tracepoints to i915_request_*.
	Short bool `env:"SHORT" envDefault:"false"`
	// WorkDir receives trace.dat and the drm_<time>.log report.
	WorkDir string `env:"WORKDIR" envDefault:"."`
	// Command is the application to trace.
	Command []string
}

const envPrefix = "GPU_TIMELINE_"

// FromEnv returns a Config seeded with defaults and GPU_TIMELINE_* variables.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// CaptureFromEnv returns a CaptureConfig seeded with defaults and GPU_TIMELINE_* variables.
func CaptureFromEnv() (*CaptureConfig, error) {
	var cfg CaptureConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration can drive a conversion.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("no input trace log given")
	}
	if c.Vocabulary.RequestPrefix == "" {
		return fmt.Errorf("request event prefix must not be empty")
	}
	return nil
}

// OutputPath returns Output, or the input path with its extensions replaced by .json.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return DefaultOutputPath(c.Input)
}

// DefaultOutputPath maps "dir/drm_x.log.gz" to "dir/drm_x.json".
func DefaultOutputPath(input string) string {
	dir, base := filepath.Split(input)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return filepath.Join(dir, base+".json")
}

// ParseCustomArg parses a "name=expression" flag value.
func ParseCustomArg(s string) (CustomArg, error) {
	name, expression, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return CustomArg{}, fmt.Errorf("custom arg must be name=expression, got %q", s)
	}
	if strings.TrimSpace(expression) == "" {
		return CustomArg{}, fmt.Errorf("custom arg %q has an empty expression", name)
	}
	return CustomArg{Name: name, Expression: expression}, nil
}

// ParseCustomArgs parses repeated "name=expression" flag values.
func ParseCustomArgs(values []string) ([]CustomArg, error) {
	args := make([]CustomArg, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		arg, err := ParseCustomArg(v)
		if err != nil {
			return nil, err
		}
		if seen[arg.Name] {
			return nil, fmt.Errorf("custom arg %q given twice", arg.Name)
		}
		seen[arg.Name] = true
		args = append(args, arg)
	}
	return args, nil
}
