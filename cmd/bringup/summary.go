// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"bringup/internal/deploy"
	"bringup/internal/install"
)

// renderSummary prints the end-of-run summary: the method used, what each
// dependency install did, and how the application was started.
func renderSummary(w io.Writer, res deploy.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Deployment summary"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Method"), res.Method.Describe())

	if len(res.Outcomes) > 0 {
		fmt.Fprintf(w, "%s:\n", CmdStyle.Render("Dependencies"))
		for _, o := range res.Outcomes {
			fmt.Fprintf(w, "  %s %s (%s)\n", outcomeMark(o.State), o.Dependency, o.State)
		}
	}

	fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Action"), res.Action)
}

// outcomeMark picks the status glyph for a dependency outcome.
func outcomeMark(state install.State) string {
	switch state {
	case install.Installed:
		return SuccessStyle.Render("+")
	case install.AlreadySatisfied:
		return SuccessStyle.Render("✓")
	default:
		return ErrorStyle.Render("✗")
	}
}
