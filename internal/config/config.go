// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"bringup/internal/cueutil"
	"bringup/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "bringup"
	// ConfigFileName is the name of the user-global config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFileName is the project-local config file, searched before
	// the user-global one.
	LocalConfigFileName = "bringup.cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the bringup configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// LoadWithPath performs option-driven config loading and reports which file,
// if any, was read. It never mutates package-level state.
func LoadWithPath(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := viper.New()
	setDefaults(v)

	resolvedPath := ""

	// An explicit --config path is used exclusively; a missing file there
	// is an operator mistake, not a fallback case.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'bringup config init' to create a starter config").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", wrapLoadError(err, opts.ConfigFilePath)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		baseDir := opts.BaseDir
		if baseDir == "" {
			baseDir = "."
		}
		localPath := filepath.Join(baseDir, LocalConfigFileName)

		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		globalPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

		// Project-local config wins over the user-global one.
		switch {
		case fileExists(localPath):
			if err := loadCUEIntoViper(v, localPath); err != nil {
				return nil, "", wrapLoadError(err, localPath)
			}
			resolvedPath = localPath
		case fileExists(globalPath):
			if err := loadCUEIntoViper(v, globalPath); err != nil {
				return nil, "", wrapLoadError(err, globalPath)
			}
			resolvedPath = globalPath
		}
		// No config file found: defaults apply, not an error.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Go-level constraints CUE cannot express: env key distinctness and
	// version parseability.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Compare the file against 'bringup config show'").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("project_dir", defaults.ProjectDir)
	v.SetDefault("env_file", defaults.EnvFile)
	v.SetDefault("env_template", defaults.EnvTemplate)
	v.SetDefault("compose_file", defaults.ComposeFile)
	v.SetDefault("process_file", defaults.ProcessFile)
	v.SetDefault("output_binary", defaults.OutputBinary)
	v.SetDefault("log_dir", defaults.LogDir)
	v.SetDefault("toolchain.version", string(defaults.Toolchain.Version))
	v.SetDefault("toolchain.min_major", defaults.Toolchain.MinMajor)
	v.SetDefault("toolchain.min_minor", defaults.Toolchain.MinMinor)
	v.SetDefault("database.user", defaults.Database.User)
	v.SetDefault("database.password", defaults.Database.Password)
	v.SetDefault("database.name", defaults.Database.Name)
	v.SetDefault("database.user_key", string(defaults.Database.UserKey))
	v.SetDefault("database.password_key", string(defaults.Database.PasswordKey))
	v.SetDefault("database.name_key", string(defaults.Database.NameKey))
	v.SetDefault("hooks.pre_deploy", defaults.Hooks.PreDeploy)
	v.SetDefault("hooks.post_deploy", defaults.Hooks.PostDeploy)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

func wrapLoadError(err error, path string) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Verify the values match 'bringup config show'").
		Wrap(err).
		BuildError()
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config
// schema, and merges its contents into Viper. The unified value decodes to
// a map[string]any rather than a struct so Viper keeps its defaults for
// unset fields, and validation uses Concrete(false) because every schema
// field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	// Merge preserves defaults for everything the file leaves unset.
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig creates a default config file if it doesn't exist
func CreateDefaultConfig() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return nil // File exists
	}

	defaults := DefaultConfig()
	cueContent := GenerateCUE(defaults)

	if err := os.WriteFile(cfgPath, []byte(cueContent), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	cueContent := GenerateCUE(cfg)

	if err := os.WriteFile(cfgPath, []byte(cueContent), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// bringup configuration file\n")
	sb.WriteString("// Unset fields fall back to built-in defaults.\n\n")

	sb.WriteString(fmt.Sprintf("project_dir: %q\n", cfg.ProjectDir))
	sb.WriteString(fmt.Sprintf("env_file: %q\n", cfg.EnvFile))
	sb.WriteString(fmt.Sprintf("env_template: %q\n", cfg.EnvTemplate))
	sb.WriteString(fmt.Sprintf("compose_file: %q\n", cfg.ComposeFile))
	sb.WriteString(fmt.Sprintf("process_file: %q\n", cfg.ProcessFile))
	sb.WriteString(fmt.Sprintf("output_binary: %q\n", cfg.OutputBinary))
	sb.WriteString(fmt.Sprintf("log_dir: %q\n", cfg.LogDir))

	sb.WriteString("\ntoolchain: {\n")
	sb.WriteString(fmt.Sprintf("\tversion: %q\n", cfg.Toolchain.Version))
	sb.WriteString(fmt.Sprintf("\tmin_major: %d\n", cfg.Toolchain.MinMajor))
	sb.WriteString(fmt.Sprintf("\tmin_minor: %d\n", cfg.Toolchain.MinMinor))
	sb.WriteString("}\n")

	sb.WriteString("\ndatabase: {\n")
	sb.WriteString(fmt.Sprintf("\tuser: %q\n", cfg.Database.User))
	sb.WriteString(fmt.Sprintf("\tpassword: %q\n", cfg.Database.Password))
	sb.WriteString(fmt.Sprintf("\tname: %q\n", cfg.Database.Name))
	sb.WriteString(fmt.Sprintf("\tuser_key: %q\n", cfg.Database.UserKey))
	sb.WriteString(fmt.Sprintf("\tpassword_key: %q\n", cfg.Database.PasswordKey))
	sb.WriteString(fmt.Sprintf("\tname_key: %q\n", cfg.Database.NameKey))
	sb.WriteString("}\n")

	if cfg.Hooks.PreDeploy != "" || cfg.Hooks.PostDeploy != "" {
		sb.WriteString("\nhooks: {\n")
		if cfg.Hooks.PreDeploy != "" {
			sb.WriteString(fmt.Sprintf("\tpre_deploy: %q\n", cfg.Hooks.PreDeploy))
		}
		if cfg.Hooks.PostDeploy != "" {
			sb.WriteString(fmt.Sprintf("\tpost_deploy: %q\n", cfg.Hooks.PostDeploy))
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\nui: {\n")
	sb.WriteString(fmt.Sprintf("\tverbose: %v\n", cfg.UI.Verbose))
	sb.WriteString("}\n")

	return sb.String()
}
