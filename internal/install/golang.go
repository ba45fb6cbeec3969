// SPDX-License-Identifier: MPL-2.0

package install

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"bringup/internal/capability"
	"bringup/internal/issue"
)

const (
	// DefaultGoVersion is the fixed toolchain version installed from the
	// official archive when the host has no qualifying Go.
	DefaultGoVersion = "1.22.3"

	defaultGoDownloadBase = "https://go.dev/dl"
	defaultGoInstallRoot  = "/usr/local"
)

// GoToolchain installs the Go toolchain from the official release archive.
// A qualifying toolchain already on PATH short-circuits to AlreadySatisfied;
// otherwise the archive for the host architecture is downloaded, extracted
// under InstallRoot, the shell profiles gain an idempotent PATH entry, and
// the result is re-verified through the freshly extracted binary.
type GoToolchain struct {
	// Version is the archive version, e.g. "1.22.3".
	Version string
	// Arch is the target architecture; defaults to runtime.GOARCH. Only
	// amd64 and arm64 have official Linux archives.
	Arch string
	// InstallRoot is the directory the go/ tree is extracted under.
	InstallRoot string
	// DownloadBase is the release archive URL prefix.
	DownloadBase string
	// ProfileFiles are the shell startup files that receive the PATH entry.
	ProfileFiles []string
	// Client performs the archive download.
	Client *http.Client
}

// NewGoToolchain creates the production-configured Go installer.
func NewGoToolchain(version string) *GoToolchain {
	home, _ := os.UserHomeDir()
	profiles := []string{"/etc/profile"}
	if home != "" {
		profiles = append(profiles, filepath.Join(home, ".bashrc"))
	}
	return &GoToolchain{
		Version:      version,
		Arch:         runtime.GOARCH,
		InstallRoot:  defaultGoInstallRoot,
		DownloadBase: defaultGoDownloadBase,
		ProfileFiles: profiles,
		Client:       &http.Client{Timeout: 10 * time.Minute},
	}
}

// Name identifies the dependency in logs and the run summary.
func (g *GoToolchain) Name() string { return "go toolchain" }

// GoBinary returns the path of the extracted go binary.
func (g *GoToolchain) GoBinary() string {
	return filepath.Join(g.InstallRoot, "go", "bin", "go")
}

// BinDir returns the directory added to the shell PATH.
func (g *GoToolchain) BinDir() string {
	return filepath.Join(g.InstallRoot, "go", "bin")
}

// Ensure installs the toolchain unless a qualifying one is already on PATH.
func (g *GoToolchain) Ensure(ctx context.Context, sess *Session) (State, error) {
	if goToolchainSatisfied(ctx, sess) {
		return AlreadySatisfied, nil
	}

	arch, err := g.archiveArch()
	if err != nil {
		return Failed, err
	}

	url := fmt.Sprintf("%s/go%s.linux-%s.tar.gz", g.DownloadBase, g.Version, arch)
	sess.Logger.Info("installing go toolchain", "version", g.Version, "arch", arch)

	archivePath, err := g.download(ctx, url)
	if err != nil {
		return Failed, issue.NewErrorContext().
			WithOperation("download go toolchain archive").
			WithResource(url).
			WithSuggestion("Check network connectivity to go.dev").
			WithSuggestion("Download the archive manually and extract it under " + g.InstallRoot).
			Wrap(fmt.Errorf("%w: %v", ErrInstallFailed, err)).
			BuildError()
	}
	defer os.Remove(archivePath)

	// A stale partial tree from an earlier failed extract would otherwise
	// shadow the new one.
	if err := os.RemoveAll(filepath.Join(g.InstallRoot, "go")); err != nil {
		return Failed, fmt.Errorf("remove previous toolchain: %w", err)
	}
	if err := extractTarGz(archivePath, g.InstallRoot); err != nil {
		return Failed, issue.NewErrorContext().
			WithOperation("extract go toolchain archive").
			WithResource(g.InstallRoot).
			WithSuggestion("Verify free disk space and write permission on " + g.InstallRoot).
			Wrap(fmt.Errorf("%w: %v", ErrInstallFailed, err)).
			BuildError()
	}

	for _, profile := range g.ProfileFiles {
		if err := appendPathExport(profile, g.BinDir()); err != nil {
			return Failed, fmt.Errorf("update %s: %w", profile, err)
		}
	}

	if err := g.verify(ctx, sess); err != nil {
		return Failed, err
	}
	sess.Logger.Info("go toolchain installed", "path", g.GoBinary())
	return Installed, nil
}

// archiveArch maps the host architecture onto the official archive naming.
// Anything but amd64/arm64 is fatal and not retryable.
func (g *GoToolchain) archiveArch() (string, error) {
	switch g.Arch {
	case "amd64", "arm64":
		return g.Arch, nil
	default:
		return "", issue.NewErrorContext().
			WithOperation("select go toolchain archive").
			WithResource(g.Arch).
			WithSuggestion("Official archives exist for amd64 and arm64 only").
			WithSuggestion("Install Go manually and re-run").
			Wrap(fmt.Errorf("%w: %s", ErrUnsupportedArch, g.Arch)).
			BuildError()
	}
}

func (g *GoToolchain) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "bringup-go-*.tar.gz")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// verify re-runs the version check through the freshly extracted binary.
// PATH edits only take effect in future shells, so the absolute path is the
// only trustworthy probe here.
func (g *GoToolchain) verify(ctx context.Context, sess *Session) error {
	out, res := sess.Runner.Output(ctx, g.GoBinary(), "version")
	if !res.Success() {
		return fmt.Errorf("%w: installed go does not run: %v", ErrInstallFailed, res.Err)
	}
	major, minor, ok := capability.ParseGoVersion(out)
	if !ok || !capability.GoVersionOK(major, minor) {
		return fmt.Errorf("%w: installed go reports %q, want at least %d.%d",
			ErrInstallFailed, out, capability.MinGoMajor, capability.MinGoMinor)
	}
	return nil
}

// appendPathExport appends an `export PATH=...` line to a shell profile
// unless the file already mentions the bin directory. The file is created
// when absent.
func appendPathExport(path, binDir string) error {
	line := "export PATH=$PATH:" + binDir
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.Contains(string(data), binDir) {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if len(data) > 0 && data[len(data)-1] != '\n' {
		line = "\n" + line
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return err
	}
	return nil
}

// extractTarGz unpacks a gzipped tarball under dest, refusing entries that
// would escape it.
func extractTarGz(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.CopyN(out, tr, hdr.Size); err != nil && err != io.EOF {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// Hard links and special files do not occur in release archives.
		}
	}
}

// securePath joins name under dest and rejects traversal outside it.
func securePath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.Clean(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}
