// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"bringup/internal/issue"
)

// Docker installs the container engine together with a compose tool. The
// pair counts as one dependency: satisfied only when both the engine and a
// compose form answer. Installation is APT-only; the modern compose plugin
// is preferred and the legacy standalone binary is the one-shot fallback.
type Docker struct{}

// NewDocker creates the container engine installer.
func NewDocker() *Docker {
	return &Docker{}
}

// Name identifies the dependency in logs and the run summary.
func (d *Docker) Name() string { return "docker engine" }

// Ensure installs docker and a compose tool unless both are present.
func (d *Docker) Ensure(ctx context.Context, sess *Session) (State, error) {
	enginePresent := toolPresent(ctx, sess, "docker", "--version")
	composePresent := composeAvailable(ctx, sess)
	if enginePresent && composePresent {
		return AlreadySatisfied, nil
	}

	if _, err := sess.Runner.LookPath("apt-get"); err != nil {
		return Failed, issue.NewErrorContext().
			WithOperation("install docker engine").
			WithSuggestion("Only APT-based distributions are supported for engine install").
			WithSuggestion("Install docker and docker compose manually, then re-run").
			Wrap(ErrUnsupportedDistro).
			BuildError()
	}

	if !enginePresent {
		sess.Logger.Info("installing docker engine")
		if err := sess.AptInstall(ctx, "docker.io"); err != nil {
			return Failed, issue.NewErrorContext().
				WithOperation("install docker engine").
				WithResource("docker.io").
				WithSuggestion("Run 'apt-get install docker.io' manually to see the full error").
				Wrap(fmt.Errorf("%w: %v", ErrInstallFailed, err)).
				BuildError()
		}
	}

	if !composePresent {
		if err := d.installCompose(ctx, sess); err != nil {
			return Failed, err
		}
	}

	d.addUserToDockerGroup(ctx, sess)
	return Installed, nil
}

// installCompose tries the modern CLI plugin package and falls back once to
// the legacy standalone binary, with a warning, when the plugin is not
// packaged for this release.
func (d *Docker) installCompose(ctx context.Context, sess *Session) error {
	sess.Logger.Info("installing docker compose plugin")
	if err := sess.AptInstall(ctx, "docker-compose-plugin"); err == nil {
		return nil
	}
	sess.Logger.Warn("compose plugin unavailable, falling back to legacy docker-compose")
	if err := sess.AptInstall(ctx, "docker-compose"); err != nil {
		return issue.NewErrorContext().
			WithOperation("install compose tool").
			WithResource("docker-compose-plugin, docker-compose").
			WithSuggestion("Neither compose package installed; check apt sources").
			Wrap(fmt.Errorf("%w: %v", ErrInstallFailed, err)).
			BuildError()
	}
	return nil
}

// addUserToDockerGroup grants the invoking user passwordless engine access.
// Failure only costs convenience, so it degrades to a warning.
func (d *Docker) addUserToDockerGroup(ctx context.Context, sess *Session) {
	name := invokingUser()
	if name == "" || name == "root" {
		return
	}
	if res := sess.Runner.Run(ctx, "usermod", "-aG", "docker", name); !res.Success() {
		sess.Logger.Warn("could not add user to docker group", "user", name, "err", res.Err)
		return
	}
	sess.Logger.Info("added user to docker group (takes effect next login)", "user", name)
}

// invokingUser resolves the operator behind a sudo invocation, falling back
// to the current user.
func invokingUser() string {
	if sudoer := os.Getenv("SUDO_USER"); sudoer != "" {
		return sudoer
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// composeAvailable mirrors the detector's probe: plugin form first, then
// the standalone binary.
func composeAvailable(ctx context.Context, sess *Session) bool {
	if toolPresent(ctx, sess, "docker", "compose", "version") {
		return true
	}
	return toolPresent(ctx, sess, "docker-compose", "--version")
}
