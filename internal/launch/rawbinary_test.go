// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"bringup/internal/execx"
	"bringup/internal/testutil"
)

func TestRawBinaryRunsForeground(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "bin", "server")
	writeFile(t, binary, "#!/bin/sh\n")

	rec := testutil.NewCommandRecorder()
	rec.Respond(binary, testutil.CommandResponse{Stdout: "listening on :8080\n"})

	var captured []*exec.Cmd
	runner := newTestRunner(t, rec, testutil.LookPathStub(), &captured)
	r := NewRawBinary(runner, testLogger())

	res, err := r.Launch(context.Background(), Options{
		ProjectDir: dir,
		Binary:     "bin/server",
		Env:        []string{"DB_NAME=app"},
	})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}

	rec.AssertRan(t, binary)
	child := captured[0]
	if child.Dir != dir {
		t.Errorf("child Dir = %q, want %q", child.Dir, dir)
	}
	if !envContains(child.Env, "DB_NAME=app") {
		t.Error("child env missing DB_NAME=app")
	}
}

func TestRawBinaryPropagatesExitStatus(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "bin", "server")
	writeFile(t, binary, "#!/bin/sh\n")

	rec := testutil.NewCommandRecorder()
	rec.Respond(binary, testutil.CommandResponse{ExitCode: 3, Stderr: "bind: address already in use\n"})

	var captured []*exec.Cmd
	runner := newTestRunner(t, rec, testutil.LookPathStub(), &captured)
	r := NewRawBinary(runner, testLogger())

	res, err := r.Launch(context.Background(), Options{ProjectDir: dir, Binary: "bin/server"})
	if err != nil {
		t.Fatalf("Launch() error = %v, want nil: the child's exit status is data, not a launch failure", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRawBinaryMissingBinary(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	var captured []*exec.Cmd
	runner := newTestRunner(t, rec, testutil.LookPathStub(), &captured)
	r := NewRawBinary(runner, testLogger())

	_, err := r.Launch(context.Background(), Options{ProjectDir: t.TempDir(), Binary: "bin/server"})
	if !errors.Is(err, ErrLaunchPrecondition) {
		t.Fatalf("Launch() error = %v, want ErrLaunchPrecondition", err)
	}
	if len(rec.Invocations) != 0 {
		t.Errorf("expected no commands, got %v", rec.CommandLines())
	}
}

func TestRawBinaryStartFailure(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "bin", "server")
	writeFile(t, binary, "#!/bin/sh\n")

	// A factory pointing at a nonexistent executable makes Start fail,
	// which is the one raw-binary outcome that is bringup's fault.
	factory := func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, filepath.Join(dir, "definitely-missing"))
	}
	runner := execx.NewRunner(execx.WithExecCommand(factory))
	r := NewRawBinary(runner, testLogger())

	_, err := r.Launch(context.Background(), Options{ProjectDir: dir, Binary: "bin/server"})
	if !errors.Is(err, ErrLaunchFailed) {
		t.Fatalf("Launch() error = %v, want ErrLaunchFailed", err)
	}
}

func TestRawBinaryMissingBinaryEvenWhenBuildSkipped(t *testing.T) {
	// The precondition does not care why the binary is absent; a run with
	// the build stage skipped still must not exec a missing file.
	rec := testutil.NewCommandRecorder()
	var captured []*exec.Cmd
	runner := newTestRunner(t, rec, testutil.LookPathStub(), &captured)
	r := NewRawBinary(runner, testLogger())

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "package main\n")

	_, err := r.Launch(context.Background(), Options{ProjectDir: dir, Binary: "bin/server"})
	if !errors.Is(err, ErrLaunchPrecondition) {
		t.Fatalf("Launch() error = %v, want ErrLaunchPrecondition", err)
	}
}
