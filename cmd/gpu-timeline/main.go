// gpu-timeline converts i915 kernel traces recorded with trace-cmd into
// Chrome trace-viewer timelines.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/mrzor/gpu-timeline/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information injected by GoReleaser at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, err := newRootCmd()
	if err != nil {
		return err
	}
	return root.ExecuteContext(ctx)
}

// rootEnv holds what every subcommand shares.
type rootEnv struct {
	verbose bool
	log     *zap.SugaredLogger
}

func newRootCmd() (*cobra.Command, error) {
	env := &rootEnv{}
	root := &cobra.Command{
		Use:           "gpu-timeline",
		Short:         "Turn i915 trace-cmd logs into trace-viewer timelines",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return env.setupLogger()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if env.log != nil {
				_ = env.log.Sync() //nolint:errcheck // stderr sync fails on terminals
			}
		},
	}
	defaults, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", defaults.Verbose, "Log every step")

	convertCmd, err := newConvertCmd(env)
	if err != nil {
		return nil, err
	}
	captureCmd, err := newCaptureCmd(env)
	if err != nil {
		return nil, err
	}
	root.AddCommand(convertCmd, captureCmd)
	return root, nil
}

func (e *rootEnv) setupLogger() error {
	var (
		logger *zap.Logger
		err    error
	)
	if e.verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	e.log = logger.Sugar()
	return nil
}
