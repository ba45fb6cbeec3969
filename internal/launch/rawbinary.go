// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"bringup/internal/execx"
	"bringup/internal/issue"
	"bringup/internal/method"
)

// RawBinary runs the built server binary in the foreground, wired to the
// operator's terminal. bringup stays alive as the parent until the server
// exits and then relays its exit status.
type RawBinary struct {
	runner *execx.Runner
	logger *log.Logger
}

// NewRawBinary creates the foreground launcher.
func NewRawBinary(runner *execx.Runner, logger *log.Logger) *RawBinary {
	return &RawBinary{runner: runner, logger: logger}
}

// Method implements Launcher.
func (r *RawBinary) Method() method.Method { return method.RawBinary }

// Launch execs the binary and blocks until it exits. The child's exit
// status is reported in the Result rather than as an error: once the
// server has started, its exit code belongs to the server, and bringup
// merely passes it through.
func (r *RawBinary) Launch(ctx context.Context, opts Options) (Result, error) {
	binary := resolve(opts.ProjectDir, opts.Binary)
	if !fileExists(binary) {
		return Result{}, issue.NewErrorContext().
			WithOperation("launch server binary").
			WithResource(binary).
			WithSuggestion("Re-run bringup without --no-build to compile it").
			Wrap(fmt.Errorf("%w: server binary missing", ErrLaunchPrecondition)).
			BuildError()
	}

	r.logger.Info("running server in the foreground", "binary", binary)
	res := r.runner.InDir(opts.ProjectDir).ExtendEnv(opts.Env...).Run(ctx, binary)
	if res.ExitCode < 0 {
		return Result{}, issue.NewErrorContext().
			WithOperation("launch server binary").
			WithResource(binary).
			WithSuggestion("Check that the binary is executable for the current user").
			Wrap(fmt.Errorf("%w: %v", ErrLaunchFailed, res.Err)).
			BuildError()
	}
	return Result{
		Action:   "ran server in the foreground",
		ExitCode: res.ExitCode,
	}, nil
}
