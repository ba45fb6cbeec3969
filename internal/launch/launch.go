// SPDX-License-Identifier: MPL-2.0

// Package launch starts the application using the selected method: a
// compose stack, a pm2-supervised process, or the bare binary in the
// foreground. Launchers re-probe their own tooling instead of trusting an
// earlier detection pass, since installs during the run may have changed
// the host.
package launch

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"bringup/internal/execx"
	"bringup/internal/method"
)

var (
	// ErrLaunchPrecondition is returned when a file the launch depends on
	// is missing. Fatal: starting anyway would supervise a ghost.
	ErrLaunchPrecondition = errors.New("launch precondition not met")

	// ErrComposeUnavailable is returned when the containerized launch
	// finds neither the compose plugin nor the legacy binary.
	ErrComposeUnavailable = errors.New("no compose tool available")

	// ErrLaunchFailed wraps launch tool failures.
	ErrLaunchFailed = errors.New("launch failed")
)

type (
	// Options carry the paths and environment a launcher needs. Relative
	// paths are resolved against ProjectDir.
	Options struct {
		// ProjectDir is the application checkout the launch runs in.
		ProjectDir string
		// ComposeFile is the compose stack definition.
		ComposeFile string
		// ProcessFile is the pm2 ecosystem definition.
		ProcessFile string
		// Binary is the compiled server binary.
		Binary string
		// Env is appended to the child environment, carrying the
		// application configuration into the launched process.
		Env []string
	}

	// Result reports what a launch did.
	Result struct {
		// Action is a short human-readable description for the summary.
		Action string
		// ExitCode is the foreground child's exit status. Detached
		// launches always report zero.
		ExitCode int
	}

	// Launcher starts the application one particular way.
	Launcher interface {
		// Method is the selection this launcher serves.
		Method() method.Method
		// Launch starts the application. A non-nil error is fatal; a
		// foreground child's own exit status travels in the Result
		// instead so the orchestrator can relay it untouched.
		Launch(ctx context.Context, opts Options) (Result, error)
	}
)

// ForMethod returns the launcher implementing the given method.
func ForMethod(m method.Method, runner *execx.Runner, logger *log.Logger) Launcher {
	switch m {
	case method.Supervised:
		return &Supervised{runner: runner, logger: logger}
	case method.RawBinary:
		return &RawBinary{runner: runner, logger: logger}
	default:
		return &Containerized{runner: runner, logger: logger}
	}
}

// resolve joins path under dir unless it is already absolute.
func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
