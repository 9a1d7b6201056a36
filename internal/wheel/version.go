package wheel

import (
	"strconv"
	"strings"
)

// Version ordering for index listings. Lexical ordering on version strings is
// not monotonic with actual precedence ("10.0" sorts before "9.0"), so
// versions are parsed into comparable components: epoch, dotted numeric
// release segments and an optional pre/post/dev marker. Local version
// identifiers never affect precedence.

type parsedVersion struct {
	epoch   int
	release []int
	// phase orders dev < pre-release < final < post-release.
	phase    int
	phaseNum int
	valid    bool
}

const (
	phaseDev   = -2
	phasePre   = -1
	phaseFinal = 0
	phasePost  = 1
)

// preLabels maps pre-release spellings to an ordering rank (a < b < rc).
var preLabels = map[string]int{
	"a": 0, "alpha": 0,
	"b": 1, "beta": 1,
	"c": 2, "rc": 2, "pre": 2, "preview": 2,
}

// CompareVersions orders two version strings, returning -1, 0 or 1. Versions
// that cannot be parsed sort below any parseable version and fall back to
// plain string comparison among themselves.
func CompareVersions(a, b string) int {
	va := parseVersion(a)
	vb := parseVersion(b)

	switch {
	case !va.valid && !vb.valid:
		return strings.Compare(a, b)
	case !va.valid:
		return -1
	case !vb.valid:
		return 1
	}

	if va.epoch != vb.epoch {
		return cmpInt(va.epoch, vb.epoch)
	}
	if c := cmpRelease(va.release, vb.release); c != 0 {
		return c
	}
	if va.phase != vb.phase {
		return cmpInt(va.phase, vb.phase)
	}
	return cmpInt(va.phaseNum, vb.phaseNum)
}

func parseVersion(s string) parsedVersion {
	v := parsedVersion{phase: phaseFinal}

	s = strings.ToLower(strings.TrimSpace(s))
	s = StripLocalVersion(s)
	if s == "" {
		return v
	}

	if i := strings.IndexByte(s, '!'); i >= 0 {
		epoch, err := strconv.Atoi(s[:i])
		if err != nil {
			return v
		}
		v.epoch = epoch
		s = s[i+1:]
	}

	// Release segments are leading dot-separated integers; the first
	// non-numeric run starts the pre/post/dev marker.
	rest := s
	for rest != "" {
		j := 0
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		if j == 0 {
			break
		}
		n, err := strconv.Atoi(rest[:j])
		if err != nil {
			return v
		}
		v.release = append(v.release, n)
		rest = rest[j:]
		if strings.HasPrefix(rest, ".") && len(rest) > 1 && rest[1] >= '0' && rest[1] <= '9' {
			rest = rest[1:]
			continue
		}
		break
	}
	if len(v.release) == 0 {
		return v
	}

	rest = strings.TrimPrefix(rest, ".")
	rest = strings.TrimPrefix(rest, "-")
	if rest == "" {
		v.valid = true
		return v
	}

	label := rest
	num := 0
	if i := strings.IndexFunc(rest, func(r rune) bool { return r >= '0' && r <= '9' }); i >= 0 {
		label = rest[:i]
		n, err := strconv.Atoi(rest[i:])
		if err != nil {
			return v
		}
		num = n
	}

	switch {
	case label == "dev":
		v.phase, v.phaseNum = phaseDev, num
	case label == "post" || label == "rev" || label == "r":
		v.phase, v.phaseNum = phasePost, num
	default:
		rank, ok := preLabels[label]
		if !ok {
			return v
		}
		// rank occupies the high bits so a0 < a1 < b0 < rc3 holds.
		v.phase, v.phaseNum = phasePre, rank<<16|num
	}

	v.valid = true
	return v
}

func cmpRelease(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return cmpInt(x, y)
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
