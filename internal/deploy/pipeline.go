// SPDX-License-Identifier: MPL-2.0

// Package deploy sequences a full provisioning run: capability detection,
// method selection, dependency installs, hooks, environment
// materialization, database bootstrap, build, and launch. The pipeline is
// linear and run-once; re-running against an already provisioned host
// converges to no-ops instead of failing.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"bringup/internal/build"
	"bringup/internal/capability"
	"bringup/internal/config"
	"bringup/internal/database"
	"bringup/internal/envfile"
	"bringup/internal/execx"
	"bringup/internal/hooks"
	"bringup/internal/install"
	"bringup/internal/launch"
	"bringup/internal/method"
)

const (
	preDeployHook  = "pre_deploy"
	postDeployHook = "post_deploy"
)

type (
	// Flags are the per-run switches from the command line.
	Flags struct {
		// Method overrides selection when non-zero.
		Method method.Method
		// SkipBuild leaves the compilation stage out.
		SkipBuild bool
		// SkipLaunch stops the run before the launch stage.
		SkipLaunch bool
	}

	// Result is what one pipeline run produced, for the end-of-run summary.
	Result struct {
		Method   method.Method
		Caps     capability.Report
		Outcomes []install.Outcome
		// Action describes what the launch stage did, or why it was skipped.
		Action string
		// ExitCode is the foreground server's exit status when the raw
		// binary method ran it; zero otherwise.
		ExitCode int
	}

	// Pipeline wires the provisioning stages together over a shared
	// command runner.
	Pipeline struct {
		cfg    *config.Config
		flags  Flags
		runner *execx.Runner
		logger *log.Logger
	}

	// dbEnv carries the resolved database identity: the env file keys and
	// the values behind them (or the configured seeds when the file has no
	// entry). The bootstrap and launch stages share one resolution.
	dbEnv struct {
		userKey, user         string
		passwordKey, password string
		nameKey, name         string
	}
)

// NewPipeline assembles a pipeline for one run.
func NewPipeline(cfg *config.Config, flags Flags, runner *execx.Runner, logger *log.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, flags: flags, runner: runner, logger: logger}
}

// Run executes the stages in order. The first fatal error aborts the run;
// degraded stages (database bootstrap, post-deploy hook) log a warning and
// continue.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	caps := p.detect(ctx)

	m := method.Select(p.flags.Method, caps)
	if p.flags.Method != "" {
		p.logger.Info("using requested install method", "method", m.Describe())
	} else {
		p.logger.Info("selected install method", "method", m.Describe())
	}

	res := Result{Method: m, Caps: caps}

	sess := install.NewSession(p.runner, p.logger)
	goBin, err := p.ensureDependencies(ctx, sess, m)
	res.Outcomes = sess.Outcomes()
	if err != nil {
		return res, err
	}

	if err := p.runHook(ctx, preDeployHook, p.cfg.Hooks.PreDeploy); err != nil {
		return res, fmt.Errorf("pre-deploy hook: %w", err)
	}

	env, err := p.materializeEnv()
	if err != nil {
		return res, err
	}

	p.bootstrapDatabase(ctx, env)

	if err := p.buildServer(ctx, m, goBin); err != nil {
		return res, err
	}

	res.Action, res.ExitCode, err = p.launchServer(ctx, m, env)
	if err != nil {
		return res, err
	}

	// A post-deploy hook failure cannot unwind a deployment that already
	// happened, so it degrades to a warning.
	if err := p.runHook(ctx, postDeployHook, p.cfg.Hooks.PostDeploy); err != nil {
		p.logger.Warn("post-deploy hook failed", "err", err)
	}

	return res, nil
}

// detect probes the host and applies the configured minimum toolchain
// version, which may differ from the built-in one.
func (p *Pipeline) detect(ctx context.Context) capability.Report {
	p.logger.Info("detecting host capabilities")
	caps := capability.NewDetector(p.runner).Detect(ctx)
	caps.GoOK = caps.Go.Present &&
		capability.VersionAtLeast(caps.GoMajor, caps.GoMinor, p.cfg.Toolchain.MinMajor, p.cfg.Toolchain.MinMinor)

	for _, tool := range caps.Tools() {
		if tool.Present {
			p.logger.Debug("found tool", "name", tool.Name, "version", tool.Version)
		} else {
			p.logger.Debug("tool not found", "name", tool.Name)
		}
	}
	return caps
}

// ensureDependencies runs the installers the chosen method needs, in
// dependency order. It returns the absolute Go binary path when the
// toolchain was installed during this run; PATH edits only reach future
// shells, so the build stage needs the explicit path.
func (p *Pipeline) ensureDependencies(ctx context.Context, sess *install.Session, m method.Method) (string, error) {
	var installers []install.Installer
	switch m {
	case method.Supervised:
		installers = []install.Installer{
			install.NewGoToolchain(p.cfg.Toolchain.Version.String()),
			install.NewPM2(),
			install.NewPostgres(),
		}
	case method.RawBinary:
		installers = []install.Installer{
			install.NewGoToolchain(p.cfg.Toolchain.Version.String()),
			install.NewPostgres(),
		}
	default:
		installers = []install.Installer{install.NewDocker()}
	}

	goBin := ""
	for _, inst := range installers {
		state, err := inst.Ensure(ctx, sess)
		sess.Record(inst.Name(), state)
		if err != nil {
			return "", err
		}
		p.logger.Info("dependency "+string(state), "dependency", inst.Name())

		if g, ok := inst.(*install.GoToolchain); ok && state == install.Installed {
			goBin = g.GoBinary()
		}
	}
	return goBin, nil
}

func (p *Pipeline) runHook(ctx context.Context, name, source string) error {
	return hooks.NewRunner(p.cfg.ProjectDir, p.logger).Run(ctx, name, source)
}

// materializeEnv ensures the env file exists and resolves the database
// identity the later stages share. A missing template is a warning; lookups
// then fall back to the configured seeds.
func (p *Pipeline) materializeEnv() (dbEnv, error) {
	envPath := p.resolve(p.cfg.EnvFile)
	templatePath := ""
	if p.cfg.EnvTemplate != "" {
		templatePath = p.resolve(p.cfg.EnvTemplate)
	}

	state, err := envfile.Materialize(envPath, templatePath)
	if err != nil {
		return dbEnv{}, fmt.Errorf("materialize %s: %w", p.cfg.EnvFile, err)
	}
	switch state {
	case envfile.Copied:
		p.logger.Info("created env file from template", "file", envPath, "template", templatePath)
	case envfile.Exists:
		p.logger.Debug("env file already present", "file", envPath)
	case envfile.NoTemplate:
		p.logger.Warn("no env file and no template; using configured defaults", "file", envPath)
	}

	f := envfile.New(envPath)
	db := p.cfg.Database
	return dbEnv{
		userKey: db.UserKey.String(), user: f.Get(db.UserKey.String(), db.User),
		passwordKey: db.PasswordKey.String(), password: f.Get(db.PasswordKey.String(), db.Password),
		nameKey: db.NameKey.String(), name: f.Get(db.NameKey.String(), db.Name),
	}, nil
}

// bootstrapDatabase converges the application role and database. It is the
// one stage allowed to fail without aborting: a broken local PostgreSQL
// must not block a deployment whose database may live elsewhere.
func (p *Pipeline) bootstrapDatabase(ctx context.Context, env dbEnv) {
	if _, err := p.runner.LookPath("psql"); err != nil {
		p.logger.Warn("psql not found; skipping database bootstrap")
		return
	}

	target := database.Target{User: env.user, Password: env.password, Name: env.name}
	if err := database.NewBootstrapper(p.runner, p.logger).Bootstrap(ctx, target); err != nil {
		p.logger.Warn("database bootstrap failed; continuing", "err", err)
	}
}

func (p *Pipeline) buildServer(ctx context.Context, m method.Method, goBin string) error {
	if m == method.Containerized {
		p.logger.Debug("skipping build; compose builds the image")
		return nil
	}
	if p.flags.SkipBuild {
		p.logger.Info("skipping build (--no-build)")
		return nil
	}
	return build.NewBuilder(p.runner, p.logger).Build(ctx, build.Options{
		ProjectDir: p.cfg.ProjectDir,
		Output:     p.cfg.OutputBinary,
		GoBinary:   goBin,
	})
}

func (p *Pipeline) launchServer(ctx context.Context, m method.Method, env dbEnv) (string, int, error) {
	if p.flags.SkipLaunch {
		action := "launch skipped (--no-up)"
		if m == method.RawBinary {
			action = fmt.Sprintf("launch skipped (--no-up); start manually: %s", p.resolve(p.cfg.OutputBinary))
		}
		p.logger.Info(action)
		return action, 0, nil
	}

	// pm2 log paths point into the log directory; it has to exist before
	// the process registers.
	if m == method.Supervised && p.cfg.LogDir != "" {
		logDir := p.resolve(p.cfg.LogDir)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return "", 0, fmt.Errorf("create log directory %s: %w", logDir, err)
		}
	}

	res, err := launch.ForMethod(m, p.runner, p.logger).Launch(ctx, launch.Options{
		ProjectDir:  p.cfg.ProjectDir,
		ComposeFile: p.cfg.ComposeFile,
		ProcessFile: p.cfg.ProcessFile,
		Binary:      p.cfg.OutputBinary,
		Env:         env.kv(),
	})
	if err != nil {
		return "", 0, err
	}
	return res.Action, res.ExitCode, nil
}

// kv renders the identity as KEY=value pairs for the server process.
func (e dbEnv) kv() []string {
	return []string{
		e.userKey + "=" + e.user,
		e.passwordKey + "=" + e.password,
		e.nameKey + "=" + e.name,
	}
}

// resolve makes a configured path absolute relative to the project dir.
func (p *Pipeline) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.cfg.ProjectDir, path)
}
