// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"bringup/internal/build"
	"bringup/internal/install"
	"bringup/internal/issue"
	"bringup/internal/launch"
)

// installIssueIds maps a failed dependency, by installer name, to its
// catalog entry.
var installIssueIds = map[string]issue.Id{
	"go toolchain":      issue.GoInstallFailedId,
	"pm2 supervisor":    issue.PM2InstallFailedId,
	"docker engine":     issue.DockerInstallFailedId,
	"postgresql server": issue.PostgresInstallFailedId,
}

// classifyDeployError maps pipeline failures to issue catalog IDs and
// returns a styled message for CLI rendering. A zero ID means the failure
// has no catalog entry and only the styled message is shown.
func classifyDeployError(err error, outcomes []install.Outcome, verbose bool) (issueID issue.Id, styledMsg string) {
	switch {
	case errors.Is(err, install.ErrUnsupportedArch):
		issueID = issue.UnsupportedArchId
	case errors.Is(err, install.ErrUnsupportedDistro):
		issueID = issue.UnsupportedDistroId
	case errors.Is(err, build.ErrBuildFailed):
		issueID = issue.BuildFailedId
	case errors.Is(err, launch.ErrComposeUnavailable):
		issueID = issue.ComposeUnavailableId
	case errors.Is(err, launch.ErrLaunchPrecondition):
		issueID = issue.LaunchPreconditionId
	case errors.Is(err, install.ErrInstallFailed):
		issueID = failedInstallIssue(outcomes)
	}

	return issueID, fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

// failedInstallIssue finds the dependency whose Ensure failed and returns
// its catalog entry. Outcomes are recorded in call order and the first
// failure aborts the run, so at most one Failed entry exists.
func failedInstallIssue(outcomes []install.Outcome) issue.Id {
	for _, o := range outcomes {
		if o.State != install.Failed {
			continue
		}
		if id, ok := installIssueIds[o.Dependency]; ok {
			return id
		}
	}
	return 0
}
