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

// Supervised registers the built binary with pm2 so it survives crashes
// and, when the host cooperates, reboots.
type Supervised struct {
	runner *execx.Runner
	logger *log.Logger
}

// NewSupervised creates the pm2 launcher.
func NewSupervised(runner *execx.Runner, logger *log.Logger) *Supervised {
	return &Supervised{runner: runner, logger: logger}
}

// Method implements Launcher.
func (s *Supervised) Method() method.Method { return method.Supervised }

// Launch hands the process file to pm2 and persists the process list.
// startOrRestart makes the call idempotent: a process already registered
// under the same name is restarted in place. --update-env together with
// the extended child environment pushes the current configuration into the
// supervised process instead of whatever pm2 cached at first registration.
func (s *Supervised) Launch(ctx context.Context, opts Options) (Result, error) {
	processFile := resolve(opts.ProjectDir, opts.ProcessFile)
	if !fileExists(processFile) {
		return Result{}, s.preconditionError("process file", processFile,
			"Create the pm2 ecosystem file in the project directory")
	}
	binary := resolve(opts.ProjectDir, opts.Binary)
	if !fileExists(binary) {
		return Result{}, s.preconditionError("server binary", binary,
			"Re-run bringup without --no-build to compile it")
	}

	runner := s.runner.InDir(opts.ProjectDir).ExtendEnv(opts.Env...)

	s.logger.Info("registering with pm2", "process-file", opts.ProcessFile)
	if res := runner.Run(ctx, "pm2", "startOrRestart", opts.ProcessFile, "--update-env"); !res.Success() {
		return Result{}, issue.NewErrorContext().
			WithOperation("register process with pm2").
			WithResource(opts.ProcessFile).
			WithSuggestion("Inspect the pm2 output above").
			WithSuggestion("Check the process logs: pm2 logs").
			Wrap(fmt.Errorf("%w: %v", ErrLaunchFailed, res.Err)).
			BuildError()
	}

	if res := runner.Run(ctx, "pm2", "save"); !res.Success() {
		return Result{}, issue.NewErrorContext().
			WithOperation("persist pm2 process list").
			WithSuggestion("Run 'pm2 save' manually once pm2 is healthy").
			Wrap(fmt.Errorf("%w: %v", ErrLaunchFailed, res.Err)).
			BuildError()
	}

	// Boot autostart needs init-system integration that not every host
	// has; pm2 prints follow-up instructions when it cannot finish, so a
	// failure here is advisory.
	if res := runner.Run(ctx, "pm2", "startup"); !res.Success() {
		s.logger.Warn("pm2 startup did not complete; the process will not auto-start on reboot", "err", res.Err)
	}

	return Result{Action: "registered with pm2 (startOrRestart)"}, nil
}

func (s *Supervised) preconditionError(what, path, suggestion string) error {
	return issue.NewErrorContext().
		WithOperation("launch under pm2").
		WithResource(path).
		WithSuggestion(suggestion).
		Wrap(fmt.Errorf("%w: %s missing", ErrLaunchPrecondition, what)).
		BuildError()
}
