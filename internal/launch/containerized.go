// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"bringup/internal/execx"
	"bringup/internal/issue"
	"bringup/internal/method"
)

// Containerized starts the application as a detached compose stack.
type Containerized struct {
	runner *execx.Runner
	logger *log.Logger
}

// NewContainerized creates the compose launcher.
func NewContainerized(runner *execx.Runner, logger *log.Logger) *Containerized {
	return &Containerized{runner: runner, logger: logger}
}

// Method implements Launcher.
func (c *Containerized) Method() method.Method { return method.Containerized }

// Launch brings the stack up with `up -d --build`, rebuilding images so a
// fresh checkout is always what ends up running. The compose form is
// probed again here because the docker installer may have added the plugin
// after the initial detection pass.
func (c *Containerized) Launch(ctx context.Context, opts Options) (Result, error) {
	form, err := c.composeForm(ctx)
	if err != nil {
		return Result{}, issue.NewErrorContext().
			WithOperation("start compose stack").
			WithResource(opts.ComposeFile).
			WithSuggestion("Install the compose plugin: sudo apt-get install -y docker-compose-plugin").
			WithSuggestion("Re-run bringup without --method to let it install docker for you").
			Wrap(err).
			BuildError()
	}

	c.logger.Info("starting compose stack", "tool", strings.Join(form, " "), "dir", opts.ProjectDir)
	args := append(form[1:], "up", "-d", "--build")
	res := c.runner.InDir(opts.ProjectDir).Run(ctx, form[0], args...)
	if !res.Success() {
		return Result{}, issue.NewErrorContext().
			WithOperation("start compose stack").
			WithResource(opts.ComposeFile).
			WithSuggestion("Inspect the compose output above").
			WithSuggestion("Check the service logs: " + strings.Join(form, " ") + " logs").
			Wrap(fmt.Errorf("%w: %v", ErrLaunchFailed, res.Err)).
			BuildError()
	}
	return Result{Action: "compose stack up (detached)"}, nil
}

// composeForm resolves the compose invocation, preferring the CLI plugin
// over the standalone binary.
func (c *Containerized) composeForm(ctx context.Context) ([]string, error) {
	if _, err := c.runner.LookPath("docker"); err == nil {
		if _, res := c.runner.Output(ctx, "docker", "compose", "version"); res.Success() {
			return []string{"docker", "compose"}, nil
		}
	}
	if _, err := c.runner.LookPath("docker-compose"); err == nil {
		if _, res := c.runner.Output(ctx, "docker-compose", "--version"); res.Success() {
			return []string{"docker-compose"}, nil
		}
	}
	return nil, ErrComposeUnavailable
}
