// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bringup/internal/config"
	"bringup/internal/issue"
)

// newConfigCommand creates the `bringup config` command tree. Subcommands
// that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bringup configuration",
		Long: `Manage bringup configuration.

Configuration is read from (first match wins):
  - the --config flag
  - bringup.cue in the working directory
  - Linux: ~/.config/bringup/config.cue
  - macOS: ~/Library/Application Support/bringup/config.cue
  - Windows: %APPDATA%\bringup\config.cue`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the resolved configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: flags.cfgFile})
			if err != nil {
				return err
			}

			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if err != nil {
		renderIssue(app.stderr, issue.ConfigLoadFailedId)
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)

	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), describeConfigSource(flags.cfgFile))
	fmt.Fprintln(app.stdout)

	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("project_dir"), valueStyle.Render(cfg.ProjectDir))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("env_file"), valueStyle.Render(cfg.EnvFile))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("env_template"), valueStyle.Render(cfg.EnvTemplate))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("compose_file"), valueStyle.Render(cfg.ComposeFile))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("process_file"), valueStyle.Render(cfg.ProcessFile))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("output_binary"), valueStyle.Render(cfg.OutputBinary))
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("log_dir"), valueStyle.Render(cfg.LogDir))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("toolchain"))
	fmt.Fprintf(app.stdout, "  version: %s\n", valueStyle.Render(cfg.Toolchain.Version.String()))
	fmt.Fprintf(app.stdout, "  minimum: %s\n", valueStyle.Render(fmt.Sprintf("%d.%d", cfg.Toolchain.MinMajor, cfg.Toolchain.MinMinor)))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("database"))
	fmt.Fprintf(app.stdout, "  user: %s\n", valueStyle.Render(cfg.Database.User))
	fmt.Fprintf(app.stdout, "  password: %s\n", maskedSecret(cfg.Database.Password))
	fmt.Fprintf(app.stdout, "  name: %s\n", valueStyle.Render(cfg.Database.Name))
	fmt.Fprintf(app.stdout, "  env keys: %s\n", valueStyle.Render(fmt.Sprintf("%s, %s, %s",
		cfg.Database.UserKey, cfg.Database.PasswordKey, cfg.Database.NameKey)))

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("hooks"))
	if cfg.Hooks.PreDeploy == "" && cfg.Hooks.PostDeploy == "" {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		if cfg.Hooks.PreDeploy != "" {
			fmt.Fprintf(app.stdout, "  pre_deploy: %s\n", valueStyle.Render(cfg.Hooks.PreDeploy))
		}
		if cfg.Hooks.PostDeploy != "" {
			fmt.Fprintf(app.stdout, "  post_deploy: %s\n", valueStyle.Render(cfg.Hooks.PostDeploy))
		}
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(app.stdout, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))

	return nil
}

func initConfig(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err = config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Fprintf(app.stdout, "%s Created default configuration at %s/config.cue\n", SuccessStyle.Render("✓"), cfgDir)
	return nil
}

func showConfigPath(app *App) error {
	fmt.Fprintf(app.stdout, "Project config file: ./%s\n", config.LocalConfigFileName)

	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s/%s.%s\n", cfgDir, config.ConfigFileName, config.ConfigFileExt)
	return nil
}

// describeConfigSource reports which file a load would read, mirroring the
// provider's resolution order.
func describeConfigSource(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if fileExistsCheck(config.LocalConfigFileName) {
		return config.LocalConfigFileName
	}
	if cfgDir, err := config.ConfigDir(); err == nil {
		globalPath := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
		if fileExistsCheck(globalPath) {
			return globalPath
		}
	}
	return SubtitleStyle.Render("(using defaults)")
}

// maskedSecret renders a secret's presence without its value.
func maskedSecret(value string) string {
	if value == "" {
		return SubtitleStyle.Render("(empty)")
	}
	return SubtitleStyle.Render("(set)")
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
