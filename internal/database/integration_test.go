// SPDX-License-Identifier: MPL-2.0

package database

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"bringup/internal/execx"
	"bringup/internal/testutil"
)

// checkTestcontainersAvailable safely checks if testcontainers can be used.
// Returns true if containers are available, false otherwise.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestBootstrap_Integration runs the bootstrapper against a real PostgreSQL
// server. Host psql invocations are rewritten into the container, which also
// stands in for the peer-authenticated postgres system user.
func TestBootstrap_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("skipping database integration tests: docker CLI not available")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping database integration tests: testcontainers provider not available")
	}

	sem := testutil.ContainerSemaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image: "postgres:16-alpine",
		Env:   map[string]string{"POSTGRES_PASSWORD": "postgres"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = ctr.Terminate(context.Background())
	})

	containerID := ctr.GetContainerID()

	// Rewrite `sudo -u postgres psql ...` into the container, where the
	// postgres user answers over the local socket.
	execCmd := func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		if name == "sudo" && len(arg) > 0 {
			sql := arg[len(arg)-1]
			return exec.CommandContext(ctx, "docker", "exec", "-u", "postgres", containerID,
				"psql", "-tAc", sql)
		}
		return exec.CommandContext(ctx, name, arg...)
	}
	runner := execx.NewRunner(execx.WithExecCommand(execCmd))
	b := NewBootstrapper(runner, log.New(io.Discard))

	target := Target{User: "o'brien", Password: "s3cr3t", Name: "appdb"}

	if err := b.Bootstrap(ctx, target); err != nil {
		t.Fatalf("first Bootstrap() returned error: %v", err)
	}

	query := func(sql string) string {
		t.Helper()
		out, res := runner.Output(ctx, "sudo", "-u", "postgres", "psql", "-tAc", sql)
		if !res.Success() {
			t.Fatalf("query %q failed: %v", sql, res.Err)
		}
		return strings.TrimSpace(out)
	}

	if got := query("SELECT 1 FROM pg_roles WHERE rolname = 'o''brien'"); got != "1" {
		t.Errorf("role probe = %q, want %q", got, "1")
	}
	if got := query("SELECT 1 FROM pg_database WHERE datname = 'appdb'"); got != "1" {
		t.Errorf("database probe = %q, want %q", got, "1")
	}
	if got := query("SELECT pg_catalog.pg_get_userbyid(datdba) FROM pg_database WHERE datname = 'appdb'"); got != "o'brien" {
		t.Errorf("database owner = %q, want %q", got, "o'brien")
	}

	// The role must be able to log in to its database.
	loginCmd := exec.CommandContext(ctx, "docker", "exec", "-e", "PGPASSWORD=s3cr3t", containerID,
		"psql", "-h", "127.0.0.1", "-U", "o'brien", "-d", "appdb", "-tAc", "SELECT 1")
	if err := loginCmd.Run(); err != nil {
		t.Errorf("role login after bootstrap failed: %v", err)
	}

	hashBefore := query("SELECT passwd FROM pg_shadow WHERE usename = 'o''brien'")
	if hashBefore == "" {
		t.Fatal("role has no stored password after bootstrap")
	}

	// A second run must not fail on the existing role and database, and it
	// must rotate the password.
	target.Password = "rotated"
	if err := b.Bootstrap(ctx, target); err != nil {
		t.Fatalf("second Bootstrap() returned error: %v", err)
	}

	hashAfter := query("SELECT passwd FROM pg_shadow WHERE usename = 'o''brien'")
	if hashAfter == "" || hashAfter == hashBefore {
		t.Error("second run did not reassert the role password")
	}
	if got := query("SELECT count(*) FROM pg_database WHERE datname = 'appdb'"); got != "1" {
		t.Errorf("database count after second run = %q, want %q", got, "1")
	}
}
