// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"testing"

	"bringup/internal/testutil"
)

func TestDockerAlreadySatisfied(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("docker --version", testutil.CommandResponse{Stdout: "Docker version 26.1.3"})
	rec.Respond("docker compose version", testutil.CommandResponse{Stdout: "Docker Compose version v2.27.0"})
	sess := newTestSession(t, rec, testutil.LookPathStub("docker"))

	state, err := NewDocker().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	if state != AlreadySatisfied {
		t.Errorf("state = %q, want %q", state, AlreadySatisfied)
	}
	rec.AssertNotRan(t, "apt-get")
}

func TestDockerInstallsEngineAndComposePlugin(t *testing.T) {
	t.Setenv("SUDO_USER", "deploy")

	rec := testutil.NewCommandRecorder()
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	state, err := NewDocker().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	if state != Installed {
		t.Errorf("state = %q, want %q", state, Installed)
	}

	rec.AssertCount(t, "apt-get update", 1)
	rec.AssertRan(t, "apt-get install -y docker.io")
	rec.AssertRan(t, "apt-get install -y docker-compose-plugin")
	rec.AssertNotRan(t, "apt-get install -y docker-compose")
	rec.AssertRan(t, "usermod -aG docker deploy")
}

func TestDockerFallsBackToLegacyCompose(t *testing.T) {
	t.Setenv("SUDO_USER", "deploy")

	rec := testutil.NewCommandRecorder()
	rec.Respond("apt-get install -y docker-compose-plugin", testutil.CommandResponse{ExitCode: 100})
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	state, err := NewDocker().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	if state != Installed {
		t.Errorf("state = %q, want %q", state, Installed)
	}

	rec.AssertCount(t, "apt-get install -y docker-compose-plugin", 1)
	rec.AssertCount(t, "apt-get install -y docker-compose", 1)
}

func TestDockerComposeFallbackExhausted(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("apt-get install -y docker-compose-plugin", testutil.CommandResponse{ExitCode: 100})
	rec.Respond("apt-get install -y docker-compose", testutil.CommandResponse{ExitCode: 100})
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	state, err := NewDocker().Ensure(context.Background(), sess)
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("Ensure() error = %v, want ErrInstallFailed", err)
	}
	if state != Failed {
		t.Errorf("state = %q, want %q", state, Failed)
	}
}

func TestDockerUnsupportedDistro(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	sess := newTestSession(t, rec, testutil.LookPathStub())

	state, err := NewDocker().Ensure(context.Background(), sess)
	if !errors.Is(err, ErrUnsupportedDistro) {
		t.Fatalf("Ensure() error = %v, want ErrUnsupportedDistro", err)
	}
	if state != Failed {
		t.Errorf("state = %q, want %q", state, Failed)
	}
}

func TestDockerInstallsOnlyMissingCompose(t *testing.T) {
	t.Setenv("SUDO_USER", "deploy")

	rec := testutil.NewCommandRecorder()
	rec.Respond("docker --version", testutil.CommandResponse{Stdout: "Docker version 26.1.3"})
	rec.Respond("docker compose version", testutil.CommandResponse{ExitCode: 125})
	sess := newTestSession(t, rec, testutil.LookPathStub("docker", "apt-get"))

	state, err := NewDocker().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	if state != Installed {
		t.Errorf("state = %q, want %q", state, Installed)
	}

	rec.AssertNotRan(t, "apt-get install -y docker.io")
	rec.AssertRan(t, "apt-get install -y docker-compose-plugin")
}

func TestDockerGroupAddFailureIsNonFatal(t *testing.T) {
	t.Setenv("SUDO_USER", "deploy")

	rec := testutil.NewCommandRecorder()
	rec.Respond("usermod", testutil.CommandResponse{ExitCode: 1})
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	state, err := NewDocker().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("group add failure must stay non-fatal, got: %v", err)
	}
	if state != Installed {
		t.Errorf("state = %q, want %q", state, Installed)
	}
}

func TestDockerSecondEnsureIsNoOp(t *testing.T) {
	t.Setenv("SUDO_USER", "deploy")

	rec := testutil.NewCommandRecorder()
	rec.Respond("docker --version", testutil.CommandResponse{Stdout: "Docker version 26.1.3"})
	rec.Respond("docker compose version", testutil.CommandResponse{Stdout: "Docker Compose version v2.27.0"})
	lookPath := testutil.NewMutableLookPath("apt-get")
	sess := newTestSession(t, rec, lookPath.Func())

	d := NewDocker()
	state, err := d.Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("first Ensure() returned error: %v", err)
	}
	if state != Installed {
		t.Fatalf("first state = %q, want %q", state, Installed)
	}

	lookPath.Add("docker")

	state, err = d.Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("second Ensure() returned error: %v", err)
	}
	if state != AlreadySatisfied {
		t.Errorf("second state = %q, want %q", state, AlreadySatisfied)
	}
	rec.AssertCount(t, "apt-get install -y docker.io", 1)
}

func TestInvokingUserPrefersSudoUser(t *testing.T) {
	t.Setenv("SUDO_USER", "operator")
	if got := invokingUser(); got != "operator" {
		t.Errorf("invokingUser() = %q, want %q", got, "operator")
	}
}
