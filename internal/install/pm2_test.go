// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"testing"

	"bringup/internal/testutil"
)

func TestPM2AlreadySatisfied(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("pm2 --version", testutil.CommandResponse{Stdout: "5.4.2"})
	sess := newTestSession(t, rec, testutil.LookPathStub("pm2"))

	state, err := NewPM2().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	if state != AlreadySatisfied {
		t.Errorf("state = %q, want %q", state, AlreadySatisfied)
	}
	rec.AssertNotRan(t, "npm")
	rec.AssertNotRan(t, "apt-get")
}

func TestPM2InstallsWithModernNode(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("node --version", testutil.CommandResponse{Stdout: "v20.11.1"})
	sess := newTestSession(t, rec, testutil.LookPathStub("npm", "node", "apt-get"))

	state, err := NewPM2().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	if state != Installed {
		t.Errorf("state = %q, want %q", state, Installed)
	}
	rec.AssertRan(t, "npm install -g pm2")
	rec.AssertNotRan(t, "apt-get")
	rec.AssertNotRan(t, "bash")
}

func TestPM2BootstrapsNodeFromDistro(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("node --version", testutil.CommandResponse{Stdout: "v20.10.0"})
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	state, err := NewPM2().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	if state != Installed {
		t.Errorf("state = %q, want %q", state, Installed)
	}

	lines := rec.CommandLines()
	want := []string{
		"apt-get update",
		"apt-get install -y nodejs npm",
		"node --version",
		"npm install -g pm2",
	}
	if len(lines) != len(want) {
		t.Fatalf("recorded %d commands, want %d: %v", len(lines), len(want), lines)
	}
	for i, line := range want {
		if lines[i] != line {
			t.Errorf("command %d = %q, want %q", i, lines[i], line)
		}
	}
}

func TestPM2FallsBackToVendorScriptForOldNode(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("node --version", testutil.CommandResponse{Stdout: "v12.22.9"})
	sess := newTestSession(t, rec, testutil.LookPathStub("npm", "node", "apt-get"))

	state, err := NewPM2().Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	if state != Installed {
		t.Errorf("state = %q, want %q", state, Installed)
	}

	rec.AssertRan(t, "bash -c curl -fsSL https://deb.nodesource.com/setup_20.x | bash -")
	rec.AssertRan(t, "apt-get install -y nodejs")
	rec.AssertCount(t, "npm install -g pm2", 1)
}

func TestPM2VendorFallbackForUnparseableNodeVersion(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("node --version", testutil.CommandResponse{Stdout: "garbled"})
	sess := newTestSession(t, rec, testutil.LookPathStub("npm", "node", "apt-get"))

	if _, err := NewPM2().Ensure(context.Background(), sess); err != nil {
		t.Fatalf("Ensure() returned error: %v", err)
	}
	rec.AssertRan(t, "bash -c curl -fsSL")
}

func TestPM2SecondEnsureIsNoOp(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("node --version", testutil.CommandResponse{Stdout: "v20.11.1"})
	rec.Respond("pm2 --version", testutil.CommandResponse{Stdout: "5.4.2"})
	lookPath := testutil.NewMutableLookPath("npm", "node", "apt-get")
	sess := newTestSession(t, rec, lookPath.Func())

	p := NewPM2()
	state, err := p.Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("first Ensure() returned error: %v", err)
	}
	if state != Installed {
		t.Fatalf("first state = %q, want %q", state, Installed)
	}

	// The global npm install put pm2 on PATH.
	lookPath.Add("pm2")

	state, err = p.Ensure(context.Background(), sess)
	if err != nil {
		t.Fatalf("second Ensure() returned error: %v", err)
	}
	if state != AlreadySatisfied {
		t.Errorf("second state = %q, want %q", state, AlreadySatisfied)
	}
	rec.AssertCount(t, "npm install -g pm2", 1)
}

func TestPM2NpmInstallFailure(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("node --version", testutil.CommandResponse{Stdout: "v20.11.1"})
	rec.Respond("npm install -g pm2", testutil.CommandResponse{ExitCode: 1, Stderr: "EACCES"})
	sess := newTestSession(t, rec, testutil.LookPathStub("npm", "node", "apt-get"))

	state, err := NewPM2().Ensure(context.Background(), sess)
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("Ensure() error = %v, want ErrInstallFailed", err)
	}
	if state != Failed {
		t.Errorf("state = %q, want %q", state, Failed)
	}
}

func TestPM2VendorScriptFailure(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("node --version", testutil.CommandResponse{Stdout: "v12.22.9"})
	rec.Respond("bash -c", testutil.CommandResponse{ExitCode: 1})
	sess := newTestSession(t, rec, testutil.LookPathStub("npm", "node", "apt-get"))

	state, err := NewPM2().Ensure(context.Background(), sess)
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("Ensure() error = %v, want ErrInstallFailed", err)
	}
	if state != Failed {
		t.Errorf("state = %q, want %q", state, Failed)
	}
	rec.AssertNotRan(t, "npm install")
}
