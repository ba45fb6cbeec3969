// SPDX-License-Identifier: MPL-2.0

// Package execx is the narrow seam between bringup and the external tools it
// drives (package manager, compiler, container engine, compose, supervisor,
// database CLI). Every component that shells out goes through a Runner so
// tests can substitute a fake command factory instead of real binaries.
package execx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// LookPathFunc is the function signature for resolving a binary on PATH.
	// This allows injection of mock implementations for testing.
	LookPathFunc func(file string) (string, error)

	// RunnerOption configures a Runner.
	RunnerOption func(*Runner)

	// Runner executes external commands with a fixed working directory,
	// environment, and stdio wiring. The zero configuration inherits the
	// current process environment and terminal.
	Runner struct {
		execCommand ExecCommandFunc
		lookPath    LookPathFunc
		dir         string
		env         []string
		extraEnv    []string
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
	}

	// Result captures the outcome of one external command invocation.
	Result struct {
		// ExitCode is the command's exit code: 0 on success, the child's
		// code when it exited non-zero, -1 when it never ran.
		ExitCode int
		// Err is non-nil when the command failed to start or exited non-zero.
		Err error
	}
)

// Success reports whether the command ran and exited zero.
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// WithExecCommand overrides the exec.Cmd factory (used in tests).
func WithExecCommand(fn ExecCommandFunc) RunnerOption {
	return func(r *Runner) {
		r.execCommand = fn
	}
}

// WithLookPath overrides PATH resolution (used in tests).
func WithLookPath(fn LookPathFunc) RunnerOption {
	return func(r *Runner) {
		r.lookPath = fn
	}
}

// WithDir sets the working directory for every command the Runner creates.
func WithDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithEnv replaces the environment for every command the Runner creates.
// When unset, children inherit the current process environment.
func WithEnv(env []string) RunnerOption {
	return func(r *Runner) {
		r.env = env
	}
}

// WithStdio redirects the streams wired into Run. Output is unaffected
// since it always captures.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewRunner creates a Runner with production defaults.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LookPath resolves a binary name on PATH.
func (r *Runner) LookPath(file string) (string, error) {
	return r.lookPath(file)
}

// InDir returns a copy of the Runner whose commands execute in dir.
func (r *Runner) InDir(dir string) *Runner {
	clone := *r
	clone.dir = dir
	return &clone
}

// ExtendEnv returns a copy of the Runner whose commands receive kv appended
// to their environment, on top of whatever they would otherwise inherit.
func (r *Runner) ExtendEnv(kv ...string) *Runner {
	clone := *r
	clone.extraEnv = append(append([]string{}, r.extraEnv...), kv...)
	return &clone
}

// Run executes a command with the Runner's stdio wiring and blocks until it
// exits. The child's exit status is preserved in the Result.
func (r *Runner) Run(ctx context.Context, name string, args ...string) Result {
	cmd := r.command(ctx, name, args...)
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	return resultFrom(cmd.Run())
}

// Output executes a command capturing trimmed stdout. Stderr is discarded;
// callers that need diagnostics from a failing tool should use Run with
// redirected streams instead.
func (r *Runner) Output(ctx context.Context, name string, args ...string) (string, Result) {
	cmd := r.command(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	res := resultFrom(cmd.Run())
	return strings.TrimSpace(stdout.String()), res
}

// Quiet executes a command discarding all output. Used for presence and
// status checks where only the exit code matters.
func (r *Runner) Quiet(ctx context.Context, name string, args ...string) Result {
	cmd := r.command(ctx, name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return resultFrom(cmd.Run())
}

func (r *Runner) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := r.execCommand(ctx, name, args...)
	if r.dir != "" {
		cmd.Dir = r.dir
	}
	if r.env != nil {
		cmd.Env = r.env
	}
	if len(r.extraEnv) > 0 {
		base := cmd.Env
		if base == nil {
			base = os.Environ()
		}
		merged := make([]string, 0, len(base)+len(r.extraEnv))
		merged = append(merged, base...)
		merged = append(merged, r.extraEnv...)
		cmd.Env = merged
	}
	return cmd
}

func resultFrom(err error) Result {
	if err == nil {
		return Result{ExitCode: 0}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Err: err}
	}
	// Start failure: the binary was missing or not executable.
	return Result{ExitCode: -1, Err: err}
}
