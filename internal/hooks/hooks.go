// SPDX-License-Identifier: MPL-2.0

// Package hooks runs the operator-defined shell snippets around the
// deployment. Scripts execute in an embedded POSIX shell interpreter, so
// hooks behave the same on hosts with different /bin/sh implementations
// and need no temporary script files.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ErrHookFailed wraps every hook failure, whether the script refused to
// parse or exited non-zero.
var ErrHookFailed = errors.New("hook failed")

type (
	// ExitError reports a hook script that ran and exited non-zero.
	ExitError struct {
		// Name identifies the hook (e.g., "pre_deploy").
		Name string
		// Status is the script's exit status.
		Status int
	}

	// Runner executes hook scripts in the project directory with the
	// deployment environment layered over the process environment.
	Runner struct {
		dir    string
		env    []string
		stdout io.Writer
		stderr io.Writer
		logger *log.Logger
	}

	// Option configures a Runner.
	Option func(*Runner)
)

func (e *ExitError) Error() string {
	return fmt.Sprintf("%v: %s exited with status %d", ErrHookFailed, e.Name, e.Status)
}

// Unwrap returns ErrHookFailed so callers can match with errors.Is.
func (e *ExitError) Unwrap() error {
	return ErrHookFailed
}

// WithExtraEnv appends variables to the environment hook scripts see.
func WithExtraEnv(kv ...string) Option {
	return func(r *Runner) {
		r.env = append(r.env, kv...)
	}
}

// WithStdio redirects hook output, primarily for tests.
func WithStdio(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewRunner creates a hook runner executing scripts in dir.
func NewRunner(dir string, logger *log.Logger, opts ...Option) *Runner {
	r := &Runner{
		dir:    dir,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run parses and executes one hook script. An empty script is a no-op.
// Hooks are non-interactive: stdin is not wired through.
func (r *Runner) Run(ctx context.Context, name, source string) error {
	if strings.TrimSpace(source) == "" {
		return nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(source), name)
	if err != nil {
		return fmt.Errorf("%w: parse %s script: %v", ErrHookFailed, name, err)
	}

	env := append(os.Environ(), r.env...)
	sh, err := interp.New(
		interp.Dir(r.dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, r.stdout, r.stderr),
	)
	if err != nil {
		return fmt.Errorf("%w: create %s interpreter: %v", ErrHookFailed, name, err)
	}

	r.logger.Info("running hook", "hook", name)
	if err := sh.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &ExitError{Name: name, Status: int(exitStatus)}
		}
		return fmt.Errorf("%w: run %s script: %v", ErrHookFailed, name, err)
	}
	return nil
}
