// SPDX-License-Identifier: MPL-2.0

// Package capability probes the host for the external tools bringup may
// need: the Go toolchain, the pm2 process supervisor, the docker engine and
// a compose tool, the psql database client, and the apt package manager.
// Probing is read-only; a missing or broken tool is a fact, never an error.
package capability

import (
	"strconv"
	"strings"
)

const (
	// MinGoMajor and MinGoMinor form the minimum Go toolchain version the
	// deployable artifact builds with. Older (or unparseable) toolchains are
	// treated as absent for selection purposes and reinstalled.
	MinGoMajor = 1
	MinGoMinor = 22

	// ComposeNone means no compose tool was found.
	ComposeNone ComposeVariant = ""
	// ComposePlugin is the modern `docker compose` CLI plugin.
	ComposePlugin ComposeVariant = "plugin"
	// ComposeLegacy is the standalone `docker-compose` binary.
	ComposeLegacy ComposeVariant = "standalone"
)

type (
	// ComposeVariant identifies which compose invocation form the host has.
	ComposeVariant string

	// Tool is one probed external tool.
	Tool struct {
		// Name is the binary name used for the probe (e.g., "docker").
		Name string
		// Present reports whether the tool resolved on PATH and answered
		// its version query with exit zero.
		Present bool
		// Version is the raw first-line output of the version query.
		Version string
		// Path is the resolved binary path when PATH lookup succeeded,
		// even if the version query then failed.
		Path string
	}

	// Report is the full set of host facts one detection pass produces.
	// It is derived fresh on every run and never persisted.
	Report struct {
		Go      Tool
		GoMajor int
		GoMinor int
		// GoOK reports whether the Go toolchain is present and at least the
		// minimum version. A version string that fails to parse counts as
		// too old.
		GoOK bool

		PM2     Tool
		Docker  Tool
		Compose Tool
		// ComposeVariant records which invocation form answered the probe.
		ComposeVariant ComposeVariant
		Psql           Tool
		Apt            Tool
		Node           Tool
		Npm            Tool
	}
)

// Tools returns the probed tools in display order for reporting.
func (r Report) Tools() []Tool {
	return []Tool{r.Go, r.PM2, r.Docker, r.Compose, r.Psql, r.Apt, r.Node, r.Npm}
}

// ParseGoVersion extracts the (major, minor) pair from `go version` output
// such as "go version go1.22.3 linux/amd64". ok is false when the output
// does not carry a parseable version.
func ParseGoVersion(out string) (major, minor int, ok bool) {
	fields := strings.Fields(out)
	if len(fields) < 3 {
		return 0, 0, false
	}
	ver := strings.TrimPrefix(fields[2], "go")
	parts := strings.Split(ver, ".")
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

// GoVersionOK compares a parsed (major, minor) pair against the built-in
// minimum.
func GoVersionOK(major, minor int) bool {
	return VersionAtLeast(major, minor, MinGoMajor, MinGoMinor)
}

// VersionAtLeast reports whether (major, minor) reaches (wantMajor,
// wantMinor). Configured minimums go through here instead of GoVersionOK.
func VersionAtLeast(major, minor, wantMajor, wantMinor int) bool {
	if major != wantMajor {
		return major > wantMajor
	}
	return minor >= wantMinor
}

// ParseNodeMajor extracts the major version from `node --version` output
// such as "v20.11.0".
func ParseNodeMajor(out string) (int, bool) {
	ver := strings.TrimPrefix(strings.TrimSpace(out), "v")
	parts := strings.Split(ver, ".")
	if len(parts) == 0 || parts[0] == "" {
		return 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	return major, true
}
