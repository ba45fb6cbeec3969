// SPDX-License-Identifier: MPL-2.0

// Package database converges the PostgreSQL application role and database.
// All statements run through psql as the postgres system user, so the
// bootstrapper works on a freshly installed server with peer auth and no
// application credentials yet.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"bringup/internal/execx"
)

// ErrBootstrapFailed wraps every bootstrap step failure. The deploy pipeline
// degrades it to a warning so a broken local database never blocks the rest
// of the run.
var ErrBootstrapFailed = errors.New("database bootstrap failed")

type (
	// Target describes the role and database the application expects.
	Target struct {
		// User is the role name; also the database owner.
		User string
		// Password is (re)applied to the role on every run.
		Password string
		// Name is the database name.
		Name string
	}

	// Bootstrapper creates or realigns the application role and database.
	// Both operations are idempotent: an existing role gets its password
	// reasserted, an existing database is left untouched.
	Bootstrapper struct {
		runner *execx.Runner
		logger *log.Logger
	}
)

// NewBootstrapper creates a Bootstrapper on the given runner.
func NewBootstrapper(runner *execx.Runner, logger *log.Logger) *Bootstrapper {
	return &Bootstrapper{runner: runner, logger: logger}
}

// Bootstrap converges the role and database described by target.
func (b *Bootstrapper) Bootstrap(ctx context.Context, target Target) error {
	if target.User == "" || target.Name == "" {
		return fmt.Errorf("%w: role and database names must be non-empty", ErrBootstrapFailed)
	}

	roleExists, err := b.exists(ctx, "SELECT 1 FROM pg_roles WHERE rolname = "+quoteLiteral(target.User))
	if err != nil {
		return fmt.Errorf("%w: check role %s: %v", ErrBootstrapFailed, target.User, err)
	}

	if roleExists {
		b.logger.Info("role exists, reasserting password", "role", target.User)
		stmt := "ALTER ROLE " + quoteIdent(target.User) + " WITH LOGIN PASSWORD " + quoteLiteral(target.Password)
		if err := b.execute(ctx, stmt); err != nil {
			return fmt.Errorf("%w: alter role %s: %v", ErrBootstrapFailed, target.User, err)
		}
	} else {
		b.logger.Info("creating role", "role", target.User)
		stmt := "CREATE ROLE " + quoteIdent(target.User) + " WITH LOGIN PASSWORD " + quoteLiteral(target.Password)
		if err := b.execute(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create role %s: %v", ErrBootstrapFailed, target.User, err)
		}
	}

	dbExists, err := b.exists(ctx, "SELECT 1 FROM pg_database WHERE datname = "+quoteLiteral(target.Name))
	if err != nil {
		return fmt.Errorf("%w: check database %s: %v", ErrBootstrapFailed, target.Name, err)
	}

	if dbExists {
		b.logger.Info("database exists", "database", target.Name)
		return nil
	}

	// CREATE DATABASE refuses to run inside a transaction block, so the
	// existence check above cannot be folded into a DO statement.
	b.logger.Info("creating database", "database", target.Name, "owner", target.User)
	stmt := "CREATE DATABASE " + quoteIdent(target.Name) + " OWNER " + quoteIdent(target.User)
	if err := b.execute(ctx, stmt); err != nil {
		return fmt.Errorf("%w: create database %s: %v", ErrBootstrapFailed, target.Name, err)
	}
	return nil
}

// exists runs a probe query and reports whether it returned a row.
func (b *Bootstrapper) exists(ctx context.Context, query string) (bool, error) {
	out, res := b.psql(ctx, query)
	if !res.Success() {
		return false, res.Err
	}
	return strings.TrimSpace(out) == "1", nil
}

// execute runs a statement, discarding its output.
func (b *Bootstrapper) execute(ctx context.Context, stmt string) error {
	if _, res := b.psql(ctx, stmt); !res.Success() {
		return res.Err
	}
	return nil
}

// psql runs one statement as the postgres system user. Tuples-only
// unaligned output keeps existence probes trivially parseable.
func (b *Bootstrapper) psql(ctx context.Context, sql string) (string, execx.Result) {
	return b.runner.Output(ctx, "sudo", "-u", "postgres", "psql", "-tAc", sql)
}

// quoteLiteral renders s as a SQL string literal, doubling embedded single
// quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent renders s as a quoted SQL identifier, doubling embedded double
// quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
