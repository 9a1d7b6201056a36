// Package wheelmeta inspects the METADATA file embedded in a built wheel and
// verifies that watched dependencies carry exact pins. This is the post-build
// check that the pinning step actually took effect inside the artifact.
package wheelmeta

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/wheelhouse/internal/wheel"
)

// ErrNoMetadata indicates the wheel contains no dist-info METADATA file.
var ErrNoMetadata = errors.New("no METADATA file found in wheel")

// Metadata is the parsed core metadata of a wheel.
type Metadata struct {
	Name         string
	Version      string
	RequiresDist []string
}

// Dependency is one Requires-Dist entry split into name and the raw
// constraint remainder.
type Dependency struct {
	Name       string
	Constraint string
	Pinned     bool // exact-equality constraint
}

// Report is the outcome of verifying a wheel against a watched set.
type Report struct {
	Meta    Metadata
	Watched []Dependency // watched dependencies found in Requires-Dist
	Loose   []Dependency // non-watched dependencies with range constraints
}

// AllPinned reports whether every watched dependency found is exact-pinned.
func (r *Report) AllPinned() bool {
	for _, d := range r.Watched {
		if !d.Pinned {
			return false
		}
	}
	return len(r.Watched) > 0
}

var depNameRe = regexp.MustCompile(`^([A-Za-z0-9._-]+)`)

// Extract opens a wheel archive and parses its dist-info METADATA.
func Extract(wheelPath string) (Metadata, error) {
	zr, err := zip.OpenReader(wheelPath)
	if err != nil {
		return Metadata{}, fmt.Errorf("open wheel archive: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()

	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, "/METADATA") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Metadata{}, fmt.Errorf("open METADATA: %w", err)
		}
		meta, err := parseMetadata(rc)
		_ = rc.Close()
		if err != nil {
			return Metadata{}, err
		}
		return meta, nil
	}
	return Metadata{}, fmt.Errorf("%w: %s", ErrNoMetadata, wheelPath)
}

func parseMetadata(r io.Reader) (Metadata, error) {
	var meta Metadata
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "Name: "):
			meta.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name: "))
		case strings.HasPrefix(line, "Version: "):
			meta.Version = strings.TrimSpace(strings.TrimPrefix(line, "Version: "))
		case strings.HasPrefix(line, "Requires-Dist: "):
			meta.RequiresDist = append(meta.RequiresDist, strings.TrimSpace(strings.TrimPrefix(line, "Requires-Dist: ")))
		}
	}
	if err := scanner.Err(); err != nil {
		return Metadata{}, fmt.Errorf("read METADATA: %w", err)
	}
	return meta, nil
}

// Verify extracts a wheel's metadata and classifies its dependencies against
// the watched package names.
func Verify(wheelPath string, watched []string) (*Report, error) {
	meta, err := Extract(wheelPath)
	if err != nil {
		return nil, err
	}

	watchedSet := make(map[string]bool, len(watched))
	for _, w := range watched {
		watchedSet[wheel.NormalizeName(w)] = true
	}

	report := &Report{Meta: meta}
	for _, raw := range meta.RequiresDist {
		m := depNameRe.FindString(raw)
		if m == "" {
			continue
		}
		dep := Dependency{
			Name:       m,
			Constraint: strings.TrimSpace(strings.TrimPrefix(raw, m)),
			Pinned:     strings.Contains(raw, "==") && !strings.Contains(raw, ">=") && !strings.Contains(raw, "<="),
		}
		if watchedSet[wheel.NormalizeName(m)] {
			report.Watched = append(report.Watched, dep)
		} else if strings.ContainsAny(raw, "<>") {
			report.Loose = append(report.Loose, dep)
		}
	}
	return report, nil
}
