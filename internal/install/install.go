// SPDX-License-Identifier: MPL-2.0

// Package install provides the idempotent dependency installers: the Go
// toolchain, the pm2 process supervisor, the docker engine with a compose
// tool, and the PostgreSQL server. Each installer re-checks its own
// precondition on every call, so re-running against a satisfied host is a
// recorded no-op.
package install

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"bringup/internal/capability"
	"bringup/internal/execx"
)

const (
	// AlreadySatisfied means the dependency was present and nothing ran.
	AlreadySatisfied State = "already satisfied"
	// Installed means the dependency was installed during this run.
	Installed State = "installed"
	// Failed means both detection and installation failed; the run aborts.
	Failed State = "failed"
)

var (
	// ErrUnsupportedArch is returned when the CPU architecture has no
	// official toolchain archive. Not retryable.
	ErrUnsupportedArch = errors.New("unsupported cpu architecture")

	// ErrUnsupportedDistro is returned when a dependency can only be
	// installed through APT and the host has no apt-get.
	ErrUnsupportedDistro = errors.New("unsupported distribution: apt-get not found")

	// ErrInstallFailed is the sentinel wrapped by all mandatory install
	// failures after fallbacks are exhausted.
	ErrInstallFailed = errors.New("dependency install failed")
)

type (
	// State is the tri-state outcome of one Ensure call.
	State string

	// Outcome pairs a dependency name with its State for the run summary.
	Outcome struct {
		Dependency string
		State      State
	}

	// Session threads run-scoped state through the installer calls: the
	// shared Runner, the logger, the one-time apt index refresh flag, and
	// the collected outcomes. A fresh Session is created per run; nothing
	// here is global.
	Session struct {
		Runner *execx.Runner
		Logger *log.Logger

		aptRefreshed bool
		outcomes     []Outcome
	}

	// Installer is one idempotent dependency strategy.
	Installer interface {
		// Name identifies the dependency in logs and the run summary.
		Name() string
		// Ensure installs the dependency unless it is already satisfied.
		// A returned error is fatal for the run.
		Ensure(ctx context.Context, sess *Session) (State, error)
	}
)

// NewSession creates the per-run installer session.
func NewSession(runner *execx.Runner, logger *log.Logger) *Session {
	return &Session{Runner: runner, Logger: logger}
}

// Record stores a dependency outcome for the end-of-run summary.
func (s *Session) Record(dependency string, state State) {
	s.outcomes = append(s.outcomes, Outcome{Dependency: dependency, State: state})
}

// Outcomes returns the recorded outcomes in call order.
func (s *Session) Outcomes() []Outcome {
	return s.outcomes
}

// EnsureAptIndex refreshes the apt package index at most once per session.
// Repeated installer calls share the refresh instead of hitting the network
// again.
func (s *Session) EnsureAptIndex(ctx context.Context) error {
	if s.aptRefreshed {
		return nil
	}
	if _, err := s.Runner.LookPath("apt-get"); err != nil {
		return ErrUnsupportedDistro
	}
	s.Logger.Info("refreshing package index")
	if res := s.Runner.Run(ctx, "apt-get", "update"); !res.Success() {
		return fmt.Errorf("apt-get update: %w", res.Err)
	}
	s.aptRefreshed = true
	return nil
}

// AptInstall installs packages non-interactively, refreshing the index first
// when this session has not done so yet.
func (s *Session) AptInstall(ctx context.Context, pkgs ...string) error {
	if err := s.EnsureAptIndex(ctx); err != nil {
		return err
	}
	args := append([]string{"install", "-y"}, pkgs...)
	if res := s.Runner.Run(ctx, "apt-get", args...); !res.Success() {
		return fmt.Errorf("apt-get install %v: %w", pkgs, res.Err)
	}
	return nil
}

// toolPresent probes a tool the same way the capability detector does:
// resolvable on PATH and answering its version query with exit zero.
func toolPresent(ctx context.Context, sess *Session, name string, args ...string) bool {
	if _, err := sess.Runner.LookPath(name); err != nil {
		return false
	}
	_, res := sess.Runner.Output(ctx, name, args...)
	return res.Success()
}

// goToolchainSatisfied reports whether a qualifying Go toolchain answers on
// PATH.
func goToolchainSatisfied(ctx context.Context, sess *Session) bool {
	if _, err := sess.Runner.LookPath("go"); err != nil {
		return false
	}
	out, res := sess.Runner.Output(ctx, "go", "version")
	if !res.Success() {
		return false
	}
	major, minor, ok := capability.ParseGoVersion(out)
	return ok && capability.GoVersionOK(major, minor)
}
