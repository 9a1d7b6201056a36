// Package pin rewrites loose dependency constraints in a project manifest to
// exact pins of custom-built wheels, so installation resolves to those exact
// artifacts instead of arbitrary compatible versions from the public
// registry.
package pin

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"git.home.luguber.info/inful/wheelhouse/internal/wheel"
)

// BackupSuffix is appended to the manifest path for the pre-rewrite copy.
const BackupSuffix = ".bak"

var (
	// ErrNoCustomArtifactsFound indicates the artifact scan matched none of
	// the watched packages. Pinning with no pins is a misconfiguration.
	ErrNoCustomArtifactsFound = errors.New("no custom wheel artifacts found")

	// ErrManifestNotFound indicates the manifest path does not exist.
	ErrManifestNotFound = errors.New("manifest not found")
)

// WatchedPackage maps a wheel distribution name to the canonical package
// name used in manifest constraints.
type WatchedPackage struct {
	Prefix  string // distribution segment of the wheel filename
	Package string // canonical name written into the manifest
}

// Options configures a pinning run.
type Options struct {
	ArtifactDir  string
	ManifestPath string
	Watched      []WatchedPackage
}

// PackageStatus reports the outcome for one watched package.
type PackageStatus struct {
	Package string
	Version string
	Applied bool // false when the manifest had no matching constraint
}

// Result summarizes a pinning run.
type Result struct {
	Packages   []PackageStatus
	Modified   int
	BackupPath string
}

// Pinner scans an artifact directory for custom wheels and rewrites a
// manifest's constraints to exact pins.
type Pinner struct {
	opts Options
}

// NewPinner creates a pinner for the given options.
func NewPinner(opts Options) *Pinner {
	return &Pinner{opts: opts}
}

// PinDependencies scans, rewrites and reports. The rewritten manifest is
// computed entirely in memory; the backup is written before the original is
// overwritten, so a crash leaves the manifest either fully original or fully
// rewritten.
func (p *Pinner) PinDependencies() (*Result, error) {
	versions, err := p.discoverVersions()
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		watched := make([]string, 0, len(p.opts.Watched))
		for _, w := range p.opts.Watched {
			watched = append(watched, w.Package)
		}
		return nil, fmt.Errorf("%w in %s (watched: %s)",
			ErrNoCustomArtifactsFound, p.opts.ArtifactDir, strings.Join(watched, ", "))
	}

	original, err := os.ReadFile(p.opts.ManifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, p.opts.ManifestPath)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	content := string(original)
	result := &Result{BackupPath: p.opts.ManifestPath + BackupSuffix}

	names := make([]string, 0, len(versions))
	for name := range versions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		version := versions[name]
		rewritten, applied := rewriteConstraints(content, name, version)
		content = rewritten
		if applied {
			result.Modified++
			slog.Info("Pinned dependency", "package", name, "version", version)
		} else {
			slog.Info("No matching constraint for package", "package", name)
		}
		result.Packages = append(result.Packages, PackageStatus{Package: name, Version: version, Applied: applied})
	}

	if err := os.WriteFile(result.BackupPath, original, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest backup: %w", err)
	}
	if err := os.WriteFile(p.opts.ManifestPath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if result.Modified == 0 {
		slog.Warn("No dependencies were modified; check constraint patterns", "manifest", p.opts.ManifestPath)
	}
	return result, nil
}

// discoverVersions scans the artifact directory (non-recursive) and extracts
// the version of every wheel whose distribution matches a watched package.
// Matching compares the parsed, normalized distribution segment, never a
// bare substring, so "triton" can never capture a triton_kernels wheel.
func (p *Pinner) discoverVersions() (map[string]string, error) {
	entries, err := os.ReadDir(p.opts.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read artifact directory %s", ErrNoCustomArtifactsFound, p.opts.ArtifactDir)
	}

	versions := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".whl") {
			continue
		}
		meta, err := wheel.Parse(entry.Name())
		if err != nil {
			slog.Warn("Skipping artifact with unparseable filename", "file", entry.Name(), "error", err)
			continue
		}
		dist := wheel.NormalizeName(meta.Distribution)
		for _, w := range p.opts.Watched {
			if dist == wheel.NormalizeName(w.Prefix) {
				versions[w.Package] = meta.Version
				slog.Info("Found custom wheel", "package", w.Package, "version", meta.Version, "file", filepath.Base(entry.Name()))
				break
			}
		}
	}
	return versions, nil
}

// rewriteConstraints replaces every loose lower-bound constraint on name with
// an exact pin. Three textual forms are handled:
//
//	torch >= 2.9.0            (unquoted, requirements style)
//	"torch >= 2.9.0, <3.0"    (quoted inside a dependency array)
//	torch = ">= 2.9.0"        (structured key-value line)
//
// Compound constraints are replaced wholesale: the custom wheel is the only
// artifact the index serves for the package, so an upper bound kept alongside
// the pin could only make it unsatisfiable. The pinned version keeps its
// local identifier verbatim.
func rewriteConstraints(content, name, version string) (string, bool) {
	// '-' and '_' are interchangeable in package names.
	namePat := strings.ReplaceAll(regexp.QuoteMeta(name), `-`, `[-_]`)
	pinned := name + " == " + version
	applied := false

	// Structured key-value line: torch = ">= 2.9.0"
	tomlRe := regexp.MustCompile(`(?m)(^|[\s])` + namePat + `\s*=\s*">=\s*[^"]*"`)
	if tomlRe.MatchString(content) {
		content = tomlRe.ReplaceAllString(content, `${1}`+name+` = "== `+version+`"`)
		applied = true
	}

	// Quoted occurrence: "torch >= 2.9.0" or 'torch >= 2.9.0, <3.0'
	quotedRe := regexp.MustCompile(`(["'])\s*` + namePat + `\s*>=\s*[^"']*(["'])`)
	if quotedRe.MatchString(content) {
		content = quotedRe.ReplaceAllString(content, `${1}`+pinned+`${2}`)
		applied = true
	}

	// Unquoted occurrence: torch >= 2.9.0 optionally followed by ,<Y parts.
	// The leading boundary is start-of-line or whitespace, never '-' or '_',
	// so a longer package name sharing this name as a prefix is untouched.
	unquotedRe := regexp.MustCompile(`(?m)(^|[\s])` + namePat + `\s*>=\s*[^\s,;"'\)\]]+(\s*,\s*[^\s,;"'\)\]]+)*`)
	if unquotedRe.MatchString(content) {
		content = unquotedRe.ReplaceAllString(content, `${1}`+pinned)
		applied = true
	}

	return content, applied
}
