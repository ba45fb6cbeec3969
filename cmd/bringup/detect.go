// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bringup/internal/capability"
	"bringup/internal/method"
)

// newDetectCommand builds `bringup detect`, a read-only capability report.
func newDetectCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Probe the host and report tool availability",
		Long: `Probe the host for the tools a deployment may need and report what
was found, which install method an unconstrained run would pick, and the
services the compose file defines. Detection is read-only; nothing is
installed or started.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetect(cmd.Context(), app, flags)
		},
	}
}

func runDetect(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, err := loadConfig(ctx, app, flags)
	if err != nil {
		return err
	}

	caps := capability.NewDetector(app.Runner).Detect(ctx)
	caps.GoOK = caps.Go.Present &&
		capability.VersionAtLeast(caps.GoMajor, caps.GoMinor, cfg.Toolchain.MinMajor, cfg.Toolchain.MinMinor)

	fmt.Fprintln(app.stdout, TitleStyle.Render("Host capabilities"))
	fmt.Fprintln(app.stdout)
	renderCapabilityTable(app.stdout, caps)

	if caps.Go.Present && !caps.GoOK {
		fmt.Fprintf(app.stdout, "\n%s go toolchain is below the configured minimum (%d.%d) and would be reinstalled\n",
			WarningStyle.Render("!"), cfg.Toolchain.MinMajor, cfg.Toolchain.MinMinor)
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Would select"), method.Select("", caps).Describe())

	composePath := resolveProjectPath(cfg.ProjectDir, cfg.ComposeFile)
	if summary, ok := composeServiceSummary(composePath); ok {
		fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Compose services"), summary)
	}

	return nil
}

// renderCapabilityTable writes one row per probed tool: name, presence, and
// the version line the tool reported.
func renderCapabilityTable(w io.Writer, caps capability.Report) {
	fmt.Fprintf(w, "  %s %s %s\n",
		SubtitleStyle.Render(fmt.Sprintf("%-16s", "tool")),
		SubtitleStyle.Render(fmt.Sprintf("%-8s", "present")),
		SubtitleStyle.Render("version"))

	for _, tool := range caps.Tools() {
		presence := SuccessStyle.Render("yes")
		version := tool.Version
		if !tool.Present {
			presence = ErrorStyle.Render("no")
			version = "-"
		}
		// The presence cell is styled, so padding has to count visible
		// cells rather than bytes.
		fmt.Fprintf(w, "  %-16s %s %s\n", tool.Name, pad(presence, 8), VerboseStyle.Render(version))
	}
}

// pad right-pads s to width in terminal cells, ignoring ANSI escapes.
func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// composeServiceSummary parses the compose file and returns a one-line
// service list. Any parse or read failure just suppresses the line; detect
// is best-effort and read-only.
func composeServiceSummary(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var doc struct {
		Services map[string]any `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Services) == 0 {
		return "", false
	}

	names := make([]string, 0, len(doc.Services))
	for name := range doc.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	return fmt.Sprintf("%d (%s)", len(names), strings.Join(names, ", ")), true
}

// resolveProjectPath joins a configured path under the project directory
// unless it is already absolute.
func resolveProjectPath(projectDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}
