// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"bringup/internal/execx"
	"bringup/internal/testutil"
)

// TestHelperProcess is the target for recorder-created commands. It is not a
// real test.
func TestHelperProcess(t *testing.T) {
	testutil.RunHelperProcess()
}

func newTestSession(t *testing.T, rec *testutil.CommandRecorder, lookPath execx.LookPathFunc) *Session {
	t.Helper()
	runner := execx.NewRunner(
		execx.WithExecCommand(rec.ExecCommand(t)),
		execx.WithLookPath(lookPath),
	)
	return NewSession(runner, log.New(io.Discard))
}

func TestEnsureAptIndexRefreshesOncePerSession(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	for i := 0; i < 3; i++ {
		if err := sess.EnsureAptIndex(context.Background()); err != nil {
			t.Fatalf("EnsureAptIndex() call %d returned error: %v", i+1, err)
		}
	}

	rec.AssertCount(t, "apt-get update", 1)
}

func TestEnsureAptIndexWithoutAptGet(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	sess := newTestSession(t, rec, testutil.LookPathStub())

	err := sess.EnsureAptIndex(context.Background())
	if !errors.Is(err, ErrUnsupportedDistro) {
		t.Fatalf("EnsureAptIndex() error = %v, want ErrUnsupportedDistro", err)
	}

	if len(rec.Invocations) != 0 {
		t.Errorf("no commands should run on a non-APT host, got: %v", rec.CommandLines())
	}
}

func TestEnsureAptIndexFailurePropagates(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("apt-get update", testutil.CommandResponse{ExitCode: 100})
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	if err := sess.EnsureAptIndex(context.Background()); err == nil {
		t.Fatal("EnsureAptIndex() should fail when apt-get update exits non-zero")
	}

	// A failed refresh must not be remembered as done.
	if err := sess.EnsureAptIndex(context.Background()); err == nil {
		t.Fatal("second EnsureAptIndex() should retry and fail again")
	}
	rec.AssertCount(t, "apt-get update", 2)
}

func TestAptInstallRefreshesIndexFirst(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	if err := sess.AptInstall(context.Background(), "postgresql", "postgresql-contrib"); err != nil {
		t.Fatalf("AptInstall() returned error: %v", err)
	}

	lines := rec.CommandLines()
	want := []string{
		"apt-get update",
		"apt-get install -y postgresql postgresql-contrib",
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

func TestAptInstallPropagatesFailure(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	rec.Respond("apt-get install", testutil.CommandResponse{ExitCode: 100})
	sess := newTestSession(t, rec, testutil.LookPathStub("apt-get"))

	if err := sess.AptInstall(context.Background(), "docker.io"); err == nil {
		t.Fatal("AptInstall() should fail when apt-get install exits non-zero")
	}
}

func TestSessionRecordsOutcomesInOrder(t *testing.T) {
	rec := testutil.NewCommandRecorder()
	sess := newTestSession(t, rec, testutil.LookPathStub())

	sess.Record("go toolchain", AlreadySatisfied)
	sess.Record("pm2 supervisor", Installed)

	outcomes := sess.Outcomes()
	if len(outcomes) != 2 {
		t.Fatalf("Outcomes() returned %d entries, want 2", len(outcomes))
	}
	if outcomes[0].Dependency != "go toolchain" || outcomes[0].State != AlreadySatisfied {
		t.Errorf("outcome 0 = %+v", outcomes[0])
	}
	if outcomes[1].Dependency != "pm2 supervisor" || outcomes[1].State != Installed {
		t.Errorf("outcome 1 = %+v", outcomes[1])
	}
}

func TestToolPresent(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		responses map[string]testutil.CommandResponse
		tool      string
		args      []string
		want      bool
	}{
		{
			name:      "present and answering",
			available: []string{"docker"},
			responses: map[string]testutil.CommandResponse{
				"docker --version": {Stdout: "Docker version 26.1.3"},
			},
			tool: "docker",
			args: []string{"--version"},
			want: true,
		},
		{
			name:      "not on path",
			available: nil,
			tool:      "docker",
			args:      []string{"--version"},
			want:      false,
		},
		{
			name:      "on path but version query fails",
			available: []string{"docker"},
			responses: map[string]testutil.CommandResponse{
				"docker --version": {ExitCode: 1},
			},
			tool: "docker",
			args: []string{"--version"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewCommandRecorder()
			for prefix, resp := range tt.responses {
				rec.Respond(prefix, resp)
			}
			sess := newTestSession(t, rec, testutil.LookPathStub(tt.available...))

			got := toolPresent(context.Background(), sess, tt.tool, tt.args...)
			if got != tt.want {
				t.Errorf("toolPresent(%s) = %v, want %v", tt.tool, got, tt.want)
			}
		})
	}
}

func TestGoToolchainSatisfied(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		version   string
		exitCode  int
		want      bool
	}{
		{"qualifying toolchain", []string{"go"}, "go version go1.22.3 linux/amd64", 0, true},
		{"newer toolchain", []string{"go"}, "go version go1.25.0 linux/arm64", 0, true},
		{"too old", []string{"go"}, "go version go1.19.13 linux/amd64", 0, false},
		{"unparseable output", []string{"go"}, "go version devel +abc123", 0, false},
		{"not on path", nil, "", 0, false},
		{"probe fails", []string{"go"}, "", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewCommandRecorder()
			rec.Respond("go version", testutil.CommandResponse{Stdout: tt.version, ExitCode: tt.exitCode})
			sess := newTestSession(t, rec, testutil.LookPathStub(tt.available...))

			got := goToolchainSatisfied(context.Background(), sess)
			if got != tt.want {
				t.Errorf("goToolchainSatisfied() = %v, want %v", got, tt.want)
			}
		})
	}
}
