// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"bringup/internal/config"
	"bringup/internal/envfile"
)

// newEnvCommand creates the `bringup env` command tree for env file lookups.
func newEnvCommand(app *App, flags *rootFlags) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect the application env file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	envCmd.AddCommand(&cobra.Command{
		Use:   "get <key> [default]",
		Short: "Print the value of a key from the env file",
		Long: `Print the value behind a key in the application's env file, using the
same lookup the deployment uses: the last assignment wins, surrounding
quotes and a trailing CR are stripped. The optional default is printed
when the key is absent. Output is unstyled for use in scripts.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvGet(cmd.Context(), app, flags, args)
		},
	})

	return envCmd
}

func runEnvGet(ctx context.Context, app *App, flags *rootFlags, args []string) error {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if err != nil {
		return err
	}

	def := ""
	if len(args) == 2 {
		def = args[1]
	}

	envPath := resolveProjectPath(cfg.ProjectDir, cfg.EnvFile)
	fmt.Fprintln(app.stdout, envfile.New(envPath).Get(args[0], def))
	return nil
}
