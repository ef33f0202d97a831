package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Runner runs external commands.
type Runner interface {
	// Run runs name with args, writing its standard output to stdout.
	Run(ctx context.Context, stdout io.Writer, name string, args ...string) error
}

// ExecRunner runs commands with os/exec. Standard error and input are the
// process's own.
type ExecRunner struct{}

// Run implements Runner. Cancelling ctx sends SIGTERM, then SIGKILL after a
// short grace period.
func (ExecRunner) Run(ctx context.Context, stdout io.Writer, name string, args ...string) error {
	//nolint:gosec // running trace-cmd and the traced application is the point
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 100 * time.Millisecond

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// NeedsSudo reports whether trace-cmd must be run through sudo.
func NeedsSudo() bool {
	return unix.Geteuid() != 0
}
