// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"bringup/internal/config"
	"bringup/internal/deploy"
	"bringup/internal/issue"
	"bringup/internal/method"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags are the switches shared across the command tree. The struct is
// built once per tree in newRootCommand and handed to subcommand
// constructors, so tests can run isolated trees in parallel.
type rootFlags struct {
	method  string
	noBuild bool
	noUp    bool
	cfgFile string
	verbose bool
}

// knownRootFlags are the tokens the unknown-flag pre-scan accepts. Cobra
// registers --help/-h itself and fang adds --version.
var knownRootFlags = map[string]bool{
	"--method":   true,
	"--no-build": true,
	"--no-up":    true,
	"--config":   true,
	"--verbose":  true,
	"-v":         true,
	"--version":  true,
	"--help":     true,
	"-h":         true,
}

// newRootCommand builds the command tree. The root command itself is the
// provisioning run; everything else is a read-only view.
func newRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "bringup",
		Short: "One-shot host provisioning and deployment",
		Long: TitleStyle.Render("bringup") + SubtitleStyle.Render(" - one-shot host provisioning and deployment") + `

bringup converges a single Debian-based host onto a running deployment of
the application in the project directory. It probes the host for tooling,
picks an install method, installs whatever is missing, prepares the env
file and database, builds the server binary, and starts it. Re-running on
an already provisioned host is safe; satisfied steps become no-ops.

` + SubtitleStyle.Render("Install methods:") + `
  docker    docker compose stack (containerized)
  pm2       supervised binary under pm2
  binary    bare binary in the foreground

` + SubtitleStyle.Render("Examples:") + `
  bringup                   Detect, install, build, launch
  bringup --method pm2      Force the pm2 method
  bringup --no-up           Prepare everything but do not start
  bringup detect            Show what the host already has`,
		Args: cobra.NoArgs,
		// Unknown flags must not abort a provisioning run that an older
		// deploy script drives; the pre-scan in RunE warns about them.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			warnUnknownFlags(app.Logger, os.Args[1:])
			return runDeploy(cmd.Context(), app, flags)
		},
	}

	rootCmd.Flags().StringVar(&flags.method, "method", "", "force the install method (docker|pm2|binary)")
	rootCmd.Flags().BoolVar(&flags.noBuild, "no-build", false, "skip compiling the server binary")
	rootCmd.Flags().BoolVar(&flags.noUp, "no-up", false, "prepare the host but do not start the application")
	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default is ./bringup.cue)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newDetectCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))
	rootCmd.AddCommand(newEnvCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the command tree. This is
// called by main.main(); the process exit code is decided here.
func Execute() {
	app := NewApp(Dependencies{})

	// Use fang.Execute for enhanced Cobra styling.
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version.
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// runDeploy executes the provisioning pipeline behind the bare `bringup`
// invocation and renders the end-of-run summary.
func runDeploy(ctx context.Context, app *App, flags *rootFlags) error {
	var m method.Method
	if flags.method != "" {
		parsed, err := method.Parse(flags.method)
		if err != nil {
			return err
		}
		m = parsed
	}

	cfg, err := loadConfig(ctx, app, flags)
	if err != nil {
		return err
	}

	res, err := deploy.NewPipeline(cfg, deploy.Flags{
		Method:     m,
		SkipBuild:  flags.noBuild,
		SkipLaunch: flags.noUp,
	}, app.Runner, app.Logger).Run(ctx)
	if err != nil {
		id, styled := classifyDeployError(err, res.Outcomes, flags.verbose)
		renderIssue(app.stderr, id)
		fmt.Fprint(app.stderr, styled)
		return &ExitError{Code: 1, Err: err}
	}

	renderSummary(app.stdout, res)

	if res.ExitCode != 0 {
		// The raw binary method ran the server in the foreground; its exit
		// status is the run's exit status.
		return &ExitError{Code: res.ExitCode}
	}
	return nil
}

// loadConfig resolves configuration for a command invocation and applies the
// config-driven verbose default to the logger level.
func loadConfig(ctx context.Context, app *App, flags *rootFlags) (*config.Config, error) {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if err != nil {
		renderIssue(app.stderr, issue.ConfigLoadFailedId)
		fmt.Fprintf(app.stderr, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, flags.verbose))
		return nil, err
	}

	// Apply verbose from config if not set via flag.
	if !flags.verbose {
		flags.verbose = cfg.UI.Verbose
	}
	if flags.verbose {
		app.Logger.SetLevel(log.DebugLevel)
	}

	return cfg, nil
}

// warnUnknownFlags logs one warning per flag token the root command does not
// define. Tokens after a bare "--" are positional and never flagged.
func warnUnknownFlags(logger *log.Logger, args []string) {
	for _, arg := range args {
		if arg == "--" {
			return
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			continue
		}
		token := arg
		if i := strings.IndexByte(token, '='); i >= 0 {
			token = token[:i]
		}
		if !knownRootFlags[token] {
			logger.Warn("ignoring unknown flag", "flag", token)
		}
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderIssue writes the catalog help card for id to stderr, if one exists.
func renderIssue(stderr io.Writer, id issue.Id) {
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		return
	}
	fmt.Fprint(stderr, rendered)
}
