package main

import (
	"github.com/mrzor/gpu-timeline/internal/capture"
	"github.com/mrzor/gpu-timeline/internal/config"
	"github.com/spf13/cobra"
)

func newCaptureCmd(root *rootEnv) (*cobra.Command, error) {
	flags, err := newConvertFlags()
	if err != nil {
		return nil, err
	}
	captureCfg, err := config.CaptureFromEnv()
	if err != nil {
		return nil, err
	}

	cmd := &cobra.Command{
		Use:   "capture [flags] -- <app> [args...]",
		Short: "Trace the i915 driver while an application runs, then convert the trace",
		Long: `
Enables the i915 tracepoints with trace-cmd, runs the application, collects the
trace into drm_<time>.log and converts it. trace-cmd runs through sudo unless
gpu-timeline already runs as root.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			captureCfg.Command = args
			c := capture.New(capture.ExecRunner{}, root.log, capture.Options{
				Short:   captureCfg.Short,
				Sudo:    capture.NeedsSudo(),
				WorkDir: captureCfg.WorkDir,
			})
			logPath, err := c.Capture(cmd.Context(), captureCfg.Command)
			if err != nil {
				return err
			}
			flags.cfg.Input = logPath
			return flags.convert(cmd.Context(), root)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&captureCfg.Short, "short", captureCfg.Short, "Trace only the i915_request_* tracepoints")
	cmd.Flags().StringVar(&captureCfg.WorkDir, "workdir", captureCfg.WorkDir, "Directory receiving trace.dat and the report")
	return cmd, nil
}
