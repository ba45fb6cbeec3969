// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"fmt"

	"bringup/internal/capability"
	"bringup/internal/issue"
)

const (
	// minNodeMajor is the oldest Node.js major the pm2 package supports;
	// distro packages older than this trigger the vendor-script fallback.
	minNodeMajor = 18

	defaultNodeSetupURL = "https://deb.nodesource.com/setup_20.x"
)

// PM2 installs the pm2 process supervisor through npm, bootstrapping
// Node.js and npm from the distro first when they are missing. When the
// distro ships a Node.js too old for pm2, the vendor setup script is used
// as a one-shot fallback before retrying the package install.
type PM2 struct {
	// NodeSetupURL is the vendor-hosted repository setup script.
	NodeSetupURL string
}

// NewPM2 creates the production-configured supervisor installer.
func NewPM2() *PM2 {
	return &PM2{NodeSetupURL: defaultNodeSetupURL}
}

// Name identifies the dependency in logs and the run summary.
func (p *PM2) Name() string { return "pm2 supervisor" }

// Ensure installs pm2 unless it already answers on PATH.
func (p *PM2) Ensure(ctx context.Context, sess *Session) (State, error) {
	if toolPresent(ctx, sess, "pm2", "--version") {
		return AlreadySatisfied, nil
	}

	if err := p.ensureNode(ctx, sess); err != nil {
		return Failed, err
	}

	sess.Logger.Info("installing pm2 via npm")
	if res := sess.Runner.Run(ctx, "npm", "install", "-g", "pm2"); !res.Success() {
		return Failed, issue.NewErrorContext().
			WithOperation("install pm2 supervisor").
			WithResource("npm install -g pm2").
			WithSuggestion("Run 'npm install -g pm2' manually to see the full error").
			WithSuggestion("Check that npm's global prefix is writable").
			Wrap(fmt.Errorf("%w: %v", ErrInstallFailed, res.Err)).
			BuildError()
	}
	return Installed, nil
}

// ensureNode makes a pm2-capable Node.js and npm available: the distro
// package first, then the vendor setup script when the distro version is
// too old to run pm2.
func (p *PM2) ensureNode(ctx context.Context, sess *Session) error {
	if _, err := sess.Runner.LookPath("npm"); err != nil {
		sess.Logger.Info("installing node.js and npm")
		if err := sess.AptInstall(ctx, "nodejs", "npm"); err != nil {
			return issue.NewErrorContext().
				WithOperation("install node.js runtime").
				WithResource("nodejs npm").
				WithSuggestion("Check apt sources and network connectivity").
				Wrap(fmt.Errorf("%w: %v", ErrInstallFailed, err)).
				BuildError()
		}
	}

	out, res := sess.Runner.Output(ctx, "node", "--version")
	major, ok := capability.ParseNodeMajor(out)
	if res.Success() && ok && major >= minNodeMajor {
		return nil
	}

	sess.Logger.Warn("distro node.js too old for pm2, switching to vendor packages",
		"have", out, "want_major", minNodeMajor)
	script := fmt.Sprintf("curl -fsSL %s | bash -", p.NodeSetupURL)
	if res := sess.Runner.Run(ctx, "bash", "-c", script); !res.Success() {
		return fmt.Errorf("%w: vendor node setup script: %v", ErrInstallFailed, res.Err)
	}
	if err := sess.AptInstall(ctx, "nodejs"); err != nil {
		return fmt.Errorf("%w: vendor node install: %v", ErrInstallFailed, err)
	}
	return nil
}
