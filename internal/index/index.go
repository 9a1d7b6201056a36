// Package index synthesizes a PEP 503 style simple repository index from a
// directory of wheel artifacts.
//
// Structure of the generated tree:
//
//	index.html                    # landing page with build provenance
//	simple/index.html             # all packages, alphabetical
//	simple/{package}/index.html   # all wheels of one package, newest first
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/wheelhouse/internal/digestcache"
	"git.home.luguber.info/inful/wheelhouse/internal/metrics"
	"git.home.luguber.info/inful/wheelhouse/internal/wheel"
)

// ErrNoArtifactsFound indicates the artifact directory was missing or held no
// wheels. Synthesis with nothing to index is a misconfiguration, so this is
// fatal and nothing is written.
var ErrNoArtifactsFound = errors.New("no wheel artifacts found")

// Options configures a synthesis run. All paths are explicit; there are no
// working-directory defaults.
type Options struct {
	ArtifactDir string
	OutputDir   string
	BaseURL     string

	AddDigests        bool // embed data-dist-info-metadata sha256 per wheel
	AddRequiresPython bool // embed data-requires-python per wheel
	PublicVersions    bool // strip local version identifiers from displayed versions

	Title     string
	BuildInfo map[string]string

	// ReleaseNotes is optional markdown rendered into the landing page.
	ReleaseNotes []byte

	// Now is the timestamp embedded in the landing page. Synthesis with the
	// same inputs and the same Now produces a byte-identical tree.
	Now time.Time
}

// DefaultOptions returns Options with digest and metadata annotation enabled.
func DefaultOptions() Options {
	return Options{AddDigests: true, AddRequiresPython: true, Title: "Custom Wheel Repository"}
}

// Artifact is one indexed wheel.
type Artifact struct {
	Filename       string
	Path           string
	Size           int64
	Meta           wheel.Metadata
	Digest         string // sha256 hex, empty when disabled or failed
	RequiresPython string // ">=3.12" form, empty when underivable
}

// Diagnostic records a non-fatal per-file problem.
type Diagnostic struct {
	File string
	Err  error
}

// Result summarizes a synthesis run.
type Result struct {
	Packages  int
	Wheels    int
	Skipped   []Diagnostic
	OutputDir string
}

// Synthesizer generates the static index tree.
type Synthesizer struct {
	opts     Options
	cache    *digestcache.Cache
	recorder metrics.Recorder
}

// NewSynthesizer creates a synthesizer for the given options.
func NewSynthesizer(opts Options) *Synthesizer {
	return &Synthesizer{opts: opts, recorder: metrics.NoopRecorder{}}
}

// SetDigestCache injects an optional digest cache. Returns the synthesizer
// for chaining.
func (s *Synthesizer) SetDigestCache(c *digestcache.Cache) *Synthesizer {
	s.cache = c
	return s
}

// SetRecorder injects a metrics recorder (optional). Returns the synthesizer
// for chaining.
func (s *Synthesizer) SetRecorder(r metrics.Recorder) *Synthesizer {
	if r == nil {
		s.recorder = metrics.NoopRecorder{}
		return s
	}
	s.recorder = r
	return s
}

// Synthesize discovers wheels, groups them by normalized package name and
// writes the full index tree. Reruns with unchanged inputs overwrite the
// previous tree with identical bytes.
func (s *Synthesizer) Synthesize() (*Result, error) {
	start := time.Now()
	result, err := s.run()
	s.recorder.ObserveSynthesisDuration(time.Since(start))
	switch {
	case err != nil:
		s.recorder.IncSynthesisOutcome(metrics.OutcomeFailed)
	case len(result.Skipped) > 0:
		s.recorder.IncSynthesisOutcome(metrics.OutcomeWarning)
	default:
		s.recorder.IncSynthesisOutcome(metrics.OutcomeSuccess)
	}
	return result, err
}

func (s *Synthesizer) run() (*Result, error) {
	wheels, skipped, err := s.discover()
	if err != nil {
		return nil, err
	}
	if len(wheels) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoArtifactsFound, s.opts.ArtifactDir)
	}
	s.recorder.SetWheelCount(len(wheels))
	s.recorder.IncSkippedArtifacts(len(skipped))

	packages := make(map[string][]*Artifact)
	for _, a := range wheels {
		name := wheel.NormalizeName(a.Meta.Distribution)
		packages[name] = append(packages[name], a)
	}
	s.recorder.SetPackageCount(len(packages))

	slog.Info("Grouped wheels into packages", "wheels", len(wheels), "packages", len(packages), "skipped", len(skipped))

	for _, arts := range packages {
		sortNewestFirst(arts)
		if s.opts.AddDigests {
			for _, a := range arts {
				if err := s.annotateDigest(a); err != nil {
					slog.Warn("Could not compute digest", "file", a.Filename, "error", err)
					skipped = append(skipped, Diagnostic{File: a.Filename, Err: fmt.Errorf("digest: %w", err)})
				}
			}
		}
	}

	simpleDir := filepath.Join(s.opts.OutputDir, "simple")
	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pkgDir := filepath.Join(simpleDir, name)
		if err := os.MkdirAll(pkgDir, 0o755); err != nil {
			return nil, fmt.Errorf("create package directory: %w", err)
		}
		doc := s.renderPackageIndex(name, packages[name])
		if err := os.WriteFile(filepath.Join(pkgDir, "index.html"), []byte(doc), 0o644); err != nil {
			return nil, fmt.Errorf("write package index for %s: %w", name, err)
		}
		slog.Debug("Wrote package index", "package", name, "wheels", len(packages[name]))
	}

	if err := os.WriteFile(filepath.Join(simpleDir, "index.html"), []byte(renderMainIndex(names)), 0o644); err != nil {
		return nil, fmt.Errorf("write main index: %w", err)
	}

	landing, err := s.renderLandingPage(len(wheels))
	if err != nil {
		return nil, fmt.Errorf("render landing page: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.opts.OutputDir, "index.html"), []byte(landing), 0o644); err != nil {
		return nil, fmt.Errorf("write landing page: %w", err)
	}

	return &Result{
		Packages:  len(packages),
		Wheels:    len(wheels),
		Skipped:   skipped,
		OutputDir: s.opts.OutputDir,
	}, nil
}

// discover walks the artifact directory collecting every parseable wheel.
// Files that fail to parse are reported as diagnostics, not errors.
func (s *Synthesizer) discover() ([]*Artifact, []Diagnostic, error) {
	if fi, err := os.Stat(s.opts.ArtifactDir); err != nil || !fi.IsDir() {
		return nil, nil, fmt.Errorf("%w: artifact directory %s does not exist", ErrNoArtifactsFound, s.opts.ArtifactDir)
	}

	var wheels []*Artifact
	var skipped []Diagnostic

	err := filepath.WalkDir(s.opts.ArtifactDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".whl") {
			return nil
		}

		meta, perr := wheel.Parse(d.Name())
		if perr != nil {
			slog.Warn("Skipping artifact with unparseable filename", "file", d.Name(), "error", perr)
			skipped = append(skipped, Diagnostic{File: d.Name(), Err: perr})
			return nil
		}

		info, serr := d.Info()
		if serr != nil {
			return serr
		}

		a := &Artifact{
			Filename: d.Name(),
			Path:     path,
			Size:     info.Size(),
			Meta:     meta,
		}
		if s.opts.AddRequiresPython {
			a.RequiresPython = wheel.RequiresPython(meta.PythonTag)
		}
		wheels = append(wheels, a)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan artifact directory: %w", err)
	}

	return wheels, skipped, nil
}

// annotateDigest fills in the sha256 digest, consulting the cache first.
func (s *Synthesizer) annotateDigest(a *Artifact) error {
	info, err := os.Stat(a.Path)
	if err != nil {
		return err
	}
	mtime := info.ModTime().UnixNano()

	if cached, err := s.cache.Get(a.Filename, a.Size, mtime); err == nil && cached != "" {
		a.Digest = cached
		return nil
	}

	f, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	a.Digest = hex.EncodeToString(h.Sum(nil))

	if err := s.cache.Put(a.Filename, a.Size, mtime, a.Digest); err != nil {
		slog.Debug("Digest cache write failed", "file", a.Filename, "error", err)
	}
	return nil
}

// sortNewestFirst orders artifacts by descending parsed version, falling back
// to descending filename for equal versions so output stays deterministic.
func sortNewestFirst(arts []*Artifact) {
	sort.SliceStable(arts, func(i, j int) bool {
		if c := wheel.CompareVersions(arts[i].Meta.Version, arts[j].Meta.Version); c != 0 {
			return c > 0
		}
		return arts[i].Filename > arts[j].Filename
	})
}
