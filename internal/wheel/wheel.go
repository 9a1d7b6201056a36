// Package wheel implements the wheel filename grammar shared by the index
// synthesizer and the dependency pinner. It is the single source of truth
// for parsing artifact filenames; both consumers must go through Parse.
package wheel

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedFilename indicates a filename that does not follow the wheel
// naming convention. Callers skip such files, they never guess fields.
var ErrMalformedFilename = errors.New("malformed wheel filename")

// Metadata holds the fields embedded in a wheel filename:
// {distribution}-{version}(-{build tag})?-{python tag}-{abi tag}-{platform tag}.whl
type Metadata struct {
	Distribution string
	Version      string
	BuildTag     string // optional, numeric-only when present
	PythonTag    string
	ABITag       string
	PlatformTag  string
}

// Filename reconstructs the canonical filename for the metadata.
func (m Metadata) Filename() string {
	parts := []string{m.Distribution, m.Version}
	if m.BuildTag != "" {
		parts = append(parts, m.BuildTag)
	}
	parts = append(parts, m.PythonTag, m.ABITag, m.PlatformTag)
	return strings.Join(parts, "-") + ".whl"
}

// Parse extracts metadata from a wheel filename. Filenames with fewer than
// five hyphen-delimited segments, or without a .whl extension, are rejected
// with ErrMalformedFilename.
func Parse(filename string) (Metadata, error) {
	if !strings.HasSuffix(filename, ".whl") {
		return Metadata{}, fmt.Errorf("%w: %s: not a .whl file", ErrMalformedFilename, filename)
	}

	parts := strings.Split(strings.TrimSuffix(filename, ".whl"), "-")
	if len(parts) < 5 {
		return Metadata{}, fmt.Errorf("%w: %s: expected at least 5 segments, got %d", ErrMalformedFilename, filename, len(parts))
	}

	m := Metadata{
		Distribution: parts[0],
		Version:      parts[1],
	}

	// The build tag is optional; when present the python tag shifts from
	// segment 2 to segment 3.
	if len(parts) == 5 {
		m.PythonTag = parts[2]
		m.ABITag = parts[3]
		m.PlatformTag = parts[4]
	} else {
		m.BuildTag = parts[2]
		m.PythonTag = parts[3]
		m.ABITag = parts[4]
		m.PlatformTag = strings.Join(parts[5:], "-")
	}

	return m, nil
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName normalizes a distribution name the way the package registry
// matches them: lowercase, with runs of '-', '_' and '.' collapsed to a
// single '-'. Two raw names that normalize identically are the same package.
func NormalizeName(name string) string {
	return strings.ToLower(nameSeparators.ReplaceAllString(name, "-"))
}

// StripLocalVersion returns the version with any local version identifier
// (the '+suffix' part, typically a source-control hash) removed.
func StripLocalVersion(version string) string {
	if i := strings.IndexByte(version, '+'); i >= 0 {
		return version[:i]
	}
	return version
}

// NormalizeFilename returns the filename with the local version identifier
// stripped from the version segment, so the wheel presents as a stable
// release. Filenames that fail to parse, or that carry no local identifier,
// are returned unchanged.
func NormalizeFilename(filename string) string {
	m, err := Parse(filename)
	if err != nil {
		return filename
	}
	base := StripLocalVersion(m.Version)
	if base == m.Version {
		return filename
	}
	m.Version = base
	return m.Filename()
}

// RequiresPython derives a minimum-interpreter constraint from a python tag.
// cp312 maps to ">=3.12", py39 to ">=3.9" and py3 to ">=3.0". Tags matching
// neither pattern yield an empty string: absence of a constraint, not an
// error.
func RequiresPython(pythonTag string) string {
	var suffix string
	switch {
	case strings.HasPrefix(pythonTag, "cp"):
		suffix = pythonTag[2:]
	case strings.HasPrefix(pythonTag, "py"):
		suffix = pythonTag[2:]
	default:
		return ""
	}

	if suffix == "" || !isDigits(suffix) {
		return ""
	}
	if len(suffix) == 1 {
		return fmt.Sprintf(">=%s.0", suffix)
	}
	return fmt.Sprintf(">=%c.%s", suffix[0], suffix[1:])
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
