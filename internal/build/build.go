// SPDX-License-Identifier: MPL-2.0

// Package build compiles the application server binary ahead of launch.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"bringup/internal/execx"
	"bringup/internal/issue"
)

// ErrBuildFailed wraps compile failures. Fatal for the run: launching a
// stale or absent binary would hide the breakage.
var ErrBuildFailed = errors.New("build failed")

type (
	// Options describe one compilation.
	Options struct {
		// ProjectDir is the directory holding the application source.
		ProjectDir string
		// Output is the binary path, relative to ProjectDir unless absolute.
		Output string
		// GoBinary is the compiler to invoke; empty means "go" on PATH.
		// The installer hands over its absolute path when the toolchain
		// was installed during this run, since PATH edits only reach
		// future shells.
		GoBinary string
	}

	// Builder compiles the server binary with the resolved Go toolchain.
	Builder struct {
		runner *execx.Runner
		logger *log.Logger
	}
)

// NewBuilder creates a Builder on the given runner.
func NewBuilder(runner *execx.Runner, logger *log.Logger) *Builder {
	return &Builder{runner: runner, logger: logger}
}

// Build compiles the project into the configured output path. Compiler
// output streams through so build errors reach the operator unmangled.
func (b *Builder) Build(ctx context.Context, opts Options) error {
	outputPath := opts.Output
	if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(opts.ProjectDir, opts.Output)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	goBin := opts.GoBinary
	if goBin == "" {
		goBin = "go"
	}

	b.logger.Info("compiling server binary", "output", opts.Output)
	res := b.runner.InDir(opts.ProjectDir).Run(ctx, goBin, "build", "-o", opts.Output, ".")
	if !res.Success() {
		return issue.NewErrorContext().
			WithOperation("compile server binary").
			WithResource(opts.Output).
			WithSuggestion("Inspect the compiler output above").
			WithSuggestion("Run 'go mod download' if modules are missing").
			Wrap(fmt.Errorf("%w: %v", ErrBuildFailed, res.Err)).
			BuildError()
	}
	b.logger.Info("server binary built", "path", outputPath)
	return nil
}
