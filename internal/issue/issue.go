// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	UnsupportedArchId Id = iota + 1
	UnsupportedDistroId
	GoInstallFailedId
	PM2InstallFailedId
	DockerInstallFailedId
	PostgresInstallFailedId
	BuildFailedId
	LaunchPreconditionId
	ComposeUnavailableId
	ConfigLoadFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // links into bringup's own documentation
	extLinks []HttpLink  // upstream documentation that might help
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	unsupportedArchIssue = &Issue{
		id: UnsupportedArchId,
		mdMsg: `
# Unsupported CPU architecture!

The Go toolchain installer only knows how to fetch archives for **amd64**
and **arm64** hosts.

## Things you can try:
- Install Go manually from the official downloads page and re-run:
~~~
$ bringup
~~~

- If Go is already installed, make sure it is on PATH:
~~~
$ go version
~~~`,
		extLinks: []HttpLink{"https://go.dev/dl/"},
	}

	unsupportedDistroIssue = &Issue{
		id: UnsupportedDistroId,
		mdMsg: `
# Unsupported distribution!

The installers drive ` + "`apt-get`" + `, which was not found on this host.
Only Debian-based distributions (Debian, Ubuntu, and derivatives) are
supported for automatic installation.

## Things you can try:
- Install the missing tools with your distribution's package manager,
  then re-run bringup. It skips anything that is already present.

- Check which tools are missing:
~~~
$ bringup detect
~~~`,
	}

	goInstallFailedIssue = &Issue{
		id: GoInstallFailedId,
		mdMsg: `
# Go toolchain installation failed!

Downloading, extracting, or verifying the Go toolchain did not succeed.

## Common causes:
- No network connectivity to go.dev
- Not enough free disk space under /usr/local
- A stale or corrupted previous installation

## Things you can try:
- Remove any partial installation and retry:
~~~
$ sudo rm -rf /usr/local/go
$ bringup
~~~

- Install Go manually and re-run; bringup detects an existing
  toolchain and leaves it alone.`,
		extLinks: []HttpLink{"https://go.dev/doc/install"},
	}

	pm2InstallFailedIssue = &Issue{
		id: PM2InstallFailedId,
		mdMsg: `
# PM2 installation failed!

Installing the pm2 process manager through npm did not succeed.

## Common causes:
- Node.js is too old (version 18 or newer is required)
- npm registry not reachable
- Insufficient permissions for global npm installs

## Things you can try:
- Check the Node.js version:
~~~
$ node --version
~~~

- Install pm2 manually and re-run:
~~~
$ sudo npm install -g pm2
~~~

- Or pick a different launch method:
~~~
$ bringup --method docker
~~~`,
		extLinks: []HttpLink{"https://pm2.keymetrics.io/docs/usage/quick-start/"},
	}

	dockerInstallFailedIssue = &Issue{
		id: DockerInstallFailedId,
		mdMsg: `
# Docker installation failed!

Installing the Docker engine through apt did not succeed.

## Things you can try:
- Refresh the package index and retry:
~~~
$ sudo apt-get update
$ bringup
~~~

- On Ubuntu, make sure the universe repository is enabled
- Install Docker manually following the upstream instructions,
  then re-run bringup`,
		extLinks: []HttpLink{"https://docs.docker.com/engine/install/"},
	}

	postgresInstallFailedIssue = &Issue{
		id: PostgresInstallFailedId,
		mdMsg: `
# PostgreSQL installation failed!

Installing the PostgreSQL server packages through apt did not succeed.

## Things you can try:
- Refresh the package index and retry:
~~~
$ sudo apt-get update
$ bringup
~~~

- Install the server manually and re-run; bringup only needs a
  working ` + "`psql`" + ` on PATH to continue:
~~~
$ sudo apt-get install postgresql postgresql-contrib
~~~`,
		extLinks: []HttpLink{"https://www.postgresql.org/download/linux/ubuntu/"},
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Build failed!

Compiling the server binary did not succeed. The compiler output above
has the details.

## Things you can try:
- Fetch missing module dependencies:
~~~
$ go mod download
~~~

- Make sure the detected Go toolchain is recent enough:
~~~
$ go version
~~~

- Skip the build if you already have a binary:
~~~
$ bringup --no-build
~~~`,
	}

	launchPreconditionIssue = &Issue{
		id: LaunchPreconditionId,
		mdMsg: `
# Launch preconditions not met!

A file required to start the application is missing.

## Common causes:
- The server binary was never built (did you pass --no-build?)
- The process file (ecosystem.config.js) is missing from the project
- The configured paths don't match the project layout

## Things you can try:
- Run a full deployment including the build step:
~~~
$ bringup
~~~

- Check which paths bringup expects:
~~~
$ bringup config show
~~~`,
	}

	composeUnavailableIssue = &Issue{
		id: ComposeUnavailableId,
		mdMsg: `
# Docker Compose not available!

The containerized launch needs Docker Compose, but neither the compose
plugin nor the standalone docker-compose binary was found.

## Things you can try:
- Install the compose plugin:
~~~
$ sudo apt-get install docker-compose-plugin
~~~

- Or the legacy standalone binary:
~~~
$ sudo apt-get install docker-compose
~~~

- Or pick a different launch method:
~~~
$ bringup --method pm2
~~~`,
		extLinks: []HttpLink{"https://docs.docker.com/compose/install/"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the bringup configuration file.

## Configuration file locations (in order of precedence):
1. Path given via --config
2. bringup.cue in the project directory
3. ~/.config/bringup/config.cue

## Things you can try:
- Create a default configuration:
~~~
$ bringup config init
~~~

- Check the configuration syntax; the file is CUE, not YAML

## Example configuration:
~~~cue
project_dir: "."
output_binary: "bin/server"

database: {
  user: "app"
  name: "app"
}

ui: {
  verbose: false
}
~~~`,
	}

	issues = map[Id]*Issue{
		unsupportedArchIssue.Id():       unsupportedArchIssue,
		unsupportedDistroIssue.Id():     unsupportedDistroIssue,
		goInstallFailedIssue.Id():       goInstallFailedIssue,
		pm2InstallFailedIssue.Id():      pm2InstallFailedIssue,
		dockerInstallFailedIssue.Id():   dockerInstallFailedIssue,
		postgresInstallFailedIssue.Id(): postgresInstallFailedIssue,
		buildFailedIssue.Id():           buildFailedIssue,
		launchPreconditionIssue.Id():    launchPreconditionIssue,
		composeUnavailableIssue.Id():    composeUnavailableIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
