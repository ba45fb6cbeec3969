// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"fmt"

	"bringup/internal/issue"
)

// Postgres installs the PostgreSQL server and contrib packages through APT.
// Unlike the other installers, a present client does not end the story:
// service enablement runs unconditionally so a stopped or disabled server
// converges to running on every invocation.
type Postgres struct{}

// NewPostgres creates the database server installer.
func NewPostgres() *Postgres {
	return &Postgres{}
}

// Name identifies the dependency in logs and the run summary.
func (p *Postgres) Name() string { return "postgresql server" }

// Ensure installs the server packages when the client binary is missing,
// then enables and starts the service either way.
func (p *Postgres) Ensure(ctx context.Context, sess *Session) (State, error) {
	state := AlreadySatisfied

	if !toolPresent(ctx, sess, "psql", "--version") {
		if _, err := sess.Runner.LookPath("apt-get"); err != nil {
			return Failed, issue.NewErrorContext().
				WithOperation("install postgresql server").
				WithSuggestion("Only APT-based distributions are supported for server install").
				WithSuggestion("Install postgresql manually, then re-run").
				Wrap(ErrUnsupportedDistro).
				BuildError()
		}
		sess.Logger.Info("installing postgresql server")
		if err := sess.AptInstall(ctx, "postgresql", "postgresql-contrib"); err != nil {
			return Failed, issue.NewErrorContext().
				WithOperation("install postgresql server").
				WithResource("postgresql postgresql-contrib").
				WithSuggestion("Run 'apt-get install postgresql postgresql-contrib' manually to see the full error").
				Wrap(fmt.Errorf("%w: %v", ErrInstallFailed, err)).
				BuildError()
		}
		state = Installed
	}

	p.enableService(ctx, sess)
	return state, nil
}

// enableService converges the server unit to enabled and running. Hosts
// without systemd (containers, chroots) only lose auto-start, so failure
// degrades to a warning.
func (p *Postgres) enableService(ctx context.Context, sess *Session) {
	if res := sess.Runner.Run(ctx, "systemctl", "enable", "--now", "postgresql"); !res.Success() {
		sess.Logger.Warn("could not enable postgresql service", "err", res.Err)
	}
}
