// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidToolchainConfig is the sentinel error wrapped by InvalidToolchainConfigError.
	ErrInvalidToolchainConfig = errors.New("invalid toolchain config")
	// ErrInvalidDatabaseConfig is the sentinel error wrapped by InvalidDatabaseConfigError.
	ErrInvalidDatabaseConfig = errors.New("invalid database config")
	// ErrInvalidToolchainVersion is returned when a ToolchainVersion does not parse.
	ErrInvalidToolchainVersion = errors.New("invalid toolchain version")
	// ErrInvalidEnvKey is returned when an EnvKey is empty or contains '='.
	ErrInvalidEnvKey = errors.New("invalid env key")
	// ErrInvalidProjectPath is returned when a required path field is blank.
	ErrInvalidProjectPath = errors.New("invalid project path")
)

type (
	// ToolchainVersion is a Go release like "1.22.3". A valid version has
	// a parseable numeric major and minor component.
	ToolchainVersion string

	// InvalidToolchainVersionError is returned when a ToolchainVersion value
	// does not parse. It wraps ErrInvalidToolchainVersion for errors.Is().
	InvalidToolchainVersionError struct {
		Value ToolchainVersion
	}

	// EnvKey names an entry in the env file (e.g., "DB_USER"). A valid key
	// is non-empty and contains no '='.
	EnvKey string

	// InvalidEnvKeyError is returned when an EnvKey value is empty or
	// contains '='. It wraps ErrInvalidEnvKey for errors.Is().
	InvalidEnvKeyError struct {
		Value EnvKey
	}

	// InvalidProjectPathError is returned when a required path field is
	// blank. It wraps ErrInvalidProjectPath for errors.Is().
	InvalidProjectPathError struct {
		Field string
	}

	// InvalidToolchainConfigError aggregates toolchain field errors.
	// It wraps ErrInvalidToolchainConfig for errors.Is().
	InvalidToolchainConfigError struct {
		FieldErrors []error
	}

	// InvalidDatabaseConfigError aggregates database field errors.
	// It wraps ErrInvalidDatabaseConfig for errors.Is().
	InvalidDatabaseConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError aggregates validation errors from all sections.
	// It wraps ErrInvalidConfig for errors.Is().
	InvalidConfigError struct {
		FieldErrors []error
	}

	// ToolchainConfig pins the Go toolchain requirements.
	ToolchainConfig struct {
		// Version is installed when the host toolchain does not qualify.
		Version ToolchainVersion `json:"version" mapstructure:"version"`
		// MinMajor and MinMinor form the minimum acceptable host version.
		MinMajor int `json:"min_major" mapstructure:"min_major"`
		MinMinor int `json:"min_minor" mapstructure:"min_minor"`
	}

	// DatabaseConfig seeds the PostgreSQL bootstrap and names the env file
	// keys that override the seeds.
	DatabaseConfig struct {
		User     string `json:"user" mapstructure:"user"`
		Password string `json:"password" mapstructure:"password"`
		Name     string `json:"name" mapstructure:"name"`

		UserKey     EnvKey `json:"user_key" mapstructure:"user_key"`
		PasswordKey EnvKey `json:"password_key" mapstructure:"password_key"`
		NameKey     EnvKey `json:"name_key" mapstructure:"name_key"`
	}

	// HooksConfig holds the optional shell snippets run around deployment.
	HooksConfig struct {
		PreDeploy  string `json:"pre_deploy" mapstructure:"pre_deploy"`
		PostDeploy string `json:"post_deploy" mapstructure:"post_deploy"`
	}

	// UIConfig configures output behavior.
	UIConfig struct {
		// Verbose enables debug logging and full error chains.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// Config holds the full deployment configuration.
	Config struct {
		// ProjectDir is the application checkout bringup operates on.
		ProjectDir string `json:"project_dir" mapstructure:"project_dir"`
		// EnvFile is the runtime config file, relative to ProjectDir.
		EnvFile string `json:"env_file" mapstructure:"env_file"`
		// EnvTemplate is copied to EnvFile when absent; empty disables it.
		EnvTemplate string `json:"env_template" mapstructure:"env_template"`
		// ComposeFile is the compose stack definition, relative to ProjectDir.
		ComposeFile string `json:"compose_file" mapstructure:"compose_file"`
		// ProcessFile is the pm2 ecosystem definition, relative to ProjectDir.
		ProcessFile string `json:"process_file" mapstructure:"process_file"`
		// OutputBinary is the build target, relative to ProjectDir.
		OutputBinary string `json:"output_binary" mapstructure:"output_binary"`
		// LogDir is created before a supervised launch; empty skips it.
		LogDir string `json:"log_dir" mapstructure:"log_dir"`

		Toolchain ToolchainConfig `json:"toolchain" mapstructure:"toolchain"`
		Database  DatabaseConfig  `json:"database" mapstructure:"database"`
		Hooks     HooksConfig     `json:"hooks" mapstructure:"hooks"`
		UI        UIConfig        `json:"ui" mapstructure:"ui"`
	}
)

// String returns the string representation of the ToolchainVersion.
func (v ToolchainVersion) String() string { return string(v) }

// Parts returns the numeric major and minor components.
func (v ToolchainVersion) Parts() (major, minor int, ok bool) {
	parts := strings.Split(string(v), ".")
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

// IsValid returns whether the ToolchainVersion parses into numeric major
// and minor components.
func (v ToolchainVersion) IsValid() (bool, []error) {
	if _, _, ok := v.Parts(); !ok {
		return false, []error{&InvalidToolchainVersionError{Value: v}}
	}
	return true, nil
}

// Error implements the error interface for InvalidToolchainVersionError.
func (e *InvalidToolchainVersionError) Error() string {
	return fmt.Sprintf("invalid toolchain version %q: want a form like 1.22.3", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidToolchainVersionError) Unwrap() error { return ErrInvalidToolchainVersion }

// String returns the string representation of the EnvKey.
func (k EnvKey) String() string { return string(k) }

// IsValid returns whether the EnvKey is non-empty and free of '='.
func (k EnvKey) IsValid() (bool, []error) {
	if strings.TrimSpace(string(k)) == "" || strings.Contains(string(k), "=") {
		return false, []error{&InvalidEnvKeyError{Value: k}}
	}
	return true, nil
}

// Error implements the error interface for InvalidEnvKeyError.
func (e *InvalidEnvKeyError) Error() string {
	return fmt.Sprintf("invalid env key %q: must be non-empty and contain no '='", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidEnvKeyError) Unwrap() error { return ErrInvalidEnvKey }

// Error implements the error interface for InvalidProjectPathError.
func (e *InvalidProjectPathError) Error() string {
	return fmt.Sprintf("invalid %s: must be non-empty", e.Field)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidProjectPathError) Unwrap() error { return ErrInvalidProjectPath }

// IsValid returns whether the ToolchainConfig has valid fields.
func (c ToolchainConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Version.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.MinMajor < 1 {
		errs = append(errs, fmt.Errorf("%w: min_major %d must be at least 1", ErrInvalidToolchainConfig, c.MinMajor))
	}
	if c.MinMinor < 0 {
		errs = append(errs, fmt.Errorf("%w: min_minor %d must not be negative", ErrInvalidToolchainConfig, c.MinMinor))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidToolchainConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidToolchainConfigError.
func (e *InvalidToolchainConfigError) Error() string {
	return fmt.Sprintf("invalid toolchain config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidToolchainConfig for errors.Is() compatibility.
func (e *InvalidToolchainConfigError) Unwrap() error { return ErrInvalidToolchainConfig }

// IsValid returns whether the DatabaseConfig has valid fields. The three
// env keys must each be valid and mutually distinct; CUE cannot express
// the distinctness constraint.
func (c DatabaseConfig) IsValid() (bool, []error) {
	var errs []error
	keys := map[string]EnvKey{
		"user_key":     c.UserKey,
		"password_key": c.PasswordKey,
		"name_key":     c.NameKey,
	}
	for _, key := range keys {
		if valid, fieldErrs := key.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	seen := make(map[EnvKey]string, len(keys))
	for _, field := range []string{"user_key", "password_key", "name_key"} {
		key := keys[field]
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("%w: %s and %s both use env key %q", ErrInvalidDatabaseConfig, prev, field, key))
		}
		seen[key] = field
	}
	if strings.TrimSpace(c.User) == "" {
		errs = append(errs, fmt.Errorf("%w: user must be non-empty", ErrInvalidDatabaseConfig))
	}
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, fmt.Errorf("%w: name must be non-empty", ErrInvalidDatabaseConfig))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidDatabaseConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDatabaseConfigError.
func (e *InvalidDatabaseConfigError) Error() string {
	return fmt.Sprintf("invalid database config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidDatabaseConfig for errors.Is() compatibility.
func (e *InvalidDatabaseConfigError) Unwrap() error { return ErrInvalidDatabaseConfig }

// IsValid returns whether the Config has valid fields. It checks required
// path fields and delegates to Toolchain.IsValid() and Database.IsValid().
// Hooks and UI need no validation.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	required := map[string]string{
		"project_dir":   c.ProjectDir,
		"env_file":      c.EnvFile,
		"compose_file":  c.ComposeFile,
		"process_file":  c.ProcessFile,
		"output_binary": c.OutputBinary,
	}
	for _, field := range []string{"project_dir", "env_file", "compose_file", "process_file", "output_binary"} {
		if strings.TrimSpace(required[field]) == "" {
			errs = append(errs, &InvalidProjectPathError{Field: field})
		}
	}
	if valid, fieldErrs := c.Toolchain.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Database.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ProjectDir:   ".",
		EnvFile:      ".env",
		EnvTemplate:  ".env.example",
		ComposeFile:  "docker-compose.yml",
		ProcessFile:  "ecosystem.config.js",
		OutputBinary: "bin/server",
		LogDir:       "logs",
		Toolchain: ToolchainConfig{
			Version:  "1.22.3",
			MinMajor: 1,
			MinMinor: 22,
		},
		Database: DatabaseConfig{
			User:        "app",
			Password:    "app",
			Name:        "app",
			UserKey:     "DB_USER",
			PasswordKey: "DB_PASSWORD",
			NameKey:     "DB_NAME",
		},
		Hooks: HooksConfig{},
		UI: UIConfig{
			Verbose: false,
		},
	}
}
