// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"bringup/internal/execx"
)

type (
	// CommandResponse configures what a faked command writes and how it exits.
	CommandResponse struct {
		// ExitCode is the simulated exit code (0 = success).
		ExitCode int
		// Stdout is written to the command's stdout.
		Stdout string
		// Stderr is written to the command's stderr.
		Stderr string
	}

	// CommandInvocation is one recorded call to the fake exec factory.
	CommandInvocation struct {
		// Name is the command name (e.g., "apt-get", "docker").
		Name string
		// Args are the arguments passed to the command.
		Args []string
	}

	// CommandRecorder captures every command a Runner creates and simulates
	// execution via the TestHelperProcess pattern. Responses are selected by
	// longest matching prefix of the space-joined command line, so a test can
	// distinguish "docker compose version" from "docker --version".
	CommandRecorder struct {
		// Invocations records each call in order.
		Invocations []CommandInvocation
		// Default is used when no configured prefix matches.
		Default CommandResponse

		responses map[string]CommandResponse
	}
)

// NewCommandRecorder creates a recorder where every command succeeds silently
// until configured otherwise.
func NewCommandRecorder() *CommandRecorder {
	return &CommandRecorder{
		Invocations: make([]CommandInvocation, 0),
		responses:   make(map[string]CommandResponse),
	}
}

// Respond registers a response for command lines matching the given prefix.
// The longest matching prefix wins when several are configured.
func (m *CommandRecorder) Respond(prefix string, resp CommandResponse) *CommandRecorder {
	m.responses[prefix] = resp
	return m
}

// ExecCommand returns an execx.ExecCommandFunc that records invocations and
// produces helper-process commands replaying the configured responses.
func (m *CommandRecorder) ExecCommand(t *testing.T) execx.ExecCommandFunc {
	t.Helper()
	return func(_ context.Context, name string, args ...string) *exec.Cmd {
		m.Invocations = append(m.Invocations, CommandInvocation{Name: name, Args: args})
		resp := m.lookup(commandLine(name, args))

		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, args...)
		//nolint:gosec // TestHelperProcess is a test-only pattern
		cmd := exec.Command(os.Args[0], cs...) //nolint:noctx // context handled by the real factory
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("GO_HELPER_EXIT_CODE=%d", resp.ExitCode),
			"GO_HELPER_STDOUT=" + resp.Stdout,
			"GO_HELPER_STDERR=" + resp.Stderr,
		}
		return cmd
	}
}

// CommandLines returns every recorded invocation as a space-joined line,
// in execution order.
func (m *CommandRecorder) CommandLines() []string {
	lines := make([]string, 0, len(m.Invocations))
	for _, inv := range m.Invocations {
		lines = append(lines, commandLine(inv.Name, inv.Args))
	}
	return lines
}

// Count returns how many recorded command lines start with the given prefix.
func (m *CommandRecorder) Count(prefix string) int {
	n := 0
	for _, line := range m.CommandLines() {
		if line == prefix || strings.HasPrefix(line, prefix+" ") {
			n++
		}
	}
	return n
}

// AssertCount verifies the number of invocations matching prefix.
func (m *CommandRecorder) AssertCount(t *testing.T, prefix string, expected int) {
	t.Helper()
	if got := m.Count(prefix); got != expected {
		t.Errorf("expected %d invocations of %q, got %d (all: %v)", expected, prefix, got, m.CommandLines())
	}
}

// AssertRan verifies at least one invocation matched prefix.
func (m *CommandRecorder) AssertRan(t *testing.T, prefix string) {
	t.Helper()
	if m.Count(prefix) == 0 {
		t.Errorf("expected an invocation of %q, got: %v", prefix, m.CommandLines())
	}
}

// AssertNotRan verifies no invocation matched prefix.
func (m *CommandRecorder) AssertNotRan(t *testing.T, prefix string) {
	t.Helper()
	if n := m.Count(prefix); n != 0 {
		t.Errorf("expected no invocations of %q, got %d: %v", prefix, n, m.CommandLines())
	}
}

// Reset clears all recorded invocations, keeping configured responses.
func (m *CommandRecorder) Reset() {
	m.Invocations = m.Invocations[:0]
}

func (m *CommandRecorder) lookup(line string) CommandResponse {
	best := ""
	for prefix := range m.responses {
		if prefix != line && !strings.HasPrefix(line, prefix+" ") {
			continue
		}
		if len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return m.Default
	}
	return m.responses[best]
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// LookPathStub returns a LookPathFunc that resolves only the named binaries,
// mapping each to a fixed /usr/bin path.
func LookPathStub(available ...string) execx.LookPathFunc {
	set := make(map[string]bool, len(available))
	for _, name := range available {
		set[name] = true
	}
	return func(file string) (string, error) {
		if set[file] {
			return "/usr/bin/" + file, nil
		}
		return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
	}
}

// MutableLookPath is a LookPathStub whose available set can change while a
// test runs, for flipping a tool from absent to present between calls.
type MutableLookPath struct {
	available map[string]bool
}

// NewMutableLookPath creates a mutable resolver seeded with the given names.
func NewMutableLookPath(available ...string) *MutableLookPath {
	set := make(map[string]bool, len(available))
	for _, name := range available {
		set[name] = true
	}
	return &MutableLookPath{available: set}
}

// Add marks binaries as resolvable.
func (m *MutableLookPath) Add(names ...string) {
	for _, name := range names {
		m.available[name] = true
	}
}

// Remove marks binaries as unresolvable.
func (m *MutableLookPath) Remove(names ...string) {
	for _, name := range names {
		delete(m.available, name)
	}
}

// Func returns the execx.LookPathFunc view of the current set.
func (m *MutableLookPath) Func() execx.LookPathFunc {
	return func(file string) (string, error) {
		if m.available[file] {
			return "/usr/bin/" + file, nil
		}
		return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
	}
}

// RunHelperProcess implements the body of the TestHelperProcess pattern.
// Packages using CommandRecorder declare:
//
//	func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }
//
// The function is a no-op unless invoked from a recorder-created command.
func RunHelperProcess() {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if stdout := os.Getenv("GO_HELPER_STDOUT"); stdout != "" {
		fmt.Fprint(os.Stdout, stdout)
	}
	if stderr := os.Getenv("GO_HELPER_STDERR"); stderr != "" {
		fmt.Fprint(os.Stderr, stderr)
	}
	exitCode := 0
	if code := os.Getenv("GO_HELPER_EXIT_CODE"); code != "" {
		fmt.Sscanf(code, "%d", &exitCode)
	}
	os.Exit(exitCode)
}
