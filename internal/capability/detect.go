// SPDX-License-Identifier: MPL-2.0

package capability

import (
	"context"
	"strings"

	"bringup/internal/execx"
)

// Detector probes host tools through an injected Runner so tests can fake
// both PATH resolution and version-query results.
type Detector struct {
	runner *execx.Runner
}

// NewDetector creates a Detector backed by the given Runner.
func NewDetector(runner *execx.Runner) *Detector {
	return &Detector{runner: runner}
}

// Detect probes every tool bringup cares about and returns the resulting
// Report. Detection has no side effects and cannot fail: every outcome,
// including a completely bare host, is a valid Report.
func (d *Detector) Detect(ctx context.Context) Report {
	r := Report{
		Go:     d.probe(ctx, "go", "version"),
		PM2:    d.probe(ctx, "pm2", "--version"),
		Docker: d.probe(ctx, "docker", "--version"),
		Psql:   d.probe(ctx, "psql", "--version"),
		Apt:    d.probe(ctx, "apt-get", "--version"),
		Node:   d.probe(ctx, "node", "--version"),
		Npm:    d.probe(ctx, "npm", "--version"),
	}

	if r.Go.Present {
		r.GoMajor, r.GoMinor, r.GoOK = ParseGoVersion(r.Go.Version)
		if r.GoOK {
			r.GoOK = GoVersionOK(r.GoMajor, r.GoMinor)
		}
	}

	r.Compose, r.ComposeVariant = d.probeCompose(ctx)
	return r
}

// probeCompose tries the modern CLI plugin first, then the standalone
// binary. Only one variant is reported even when both are installed.
func (d *Detector) probeCompose(ctx context.Context) (Tool, ComposeVariant) {
	if plugin := d.probe(ctx, "docker", "compose", "version"); plugin.Present {
		plugin.Name = "docker compose"
		return plugin, ComposePlugin
	}
	if legacy := d.probe(ctx, "docker-compose", "--version"); legacy.Present {
		return legacy, ComposeLegacy
	}
	return Tool{Name: "docker compose"}, ComposeNone
}

func (d *Detector) probe(ctx context.Context, name string, args ...string) Tool {
	tool := Tool{Name: name}
	path, err := d.runner.LookPath(name)
	if err != nil {
		return tool
	}
	tool.Path = path
	out, res := d.runner.Output(ctx, name, args...)
	if !res.Success() {
		return tool
	}
	tool.Present = true
	tool.Version = firstLine(out)
	return tool
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
