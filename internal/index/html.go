package index

import (
	"fmt"
	"html"
	"strings"

	"git.home.luguber.info/inful/wheelhouse/internal/wheel"
)

// renderPackageIndex emits the anchor-tag listing for one package. Attribute
// order (href, data-requires-python, data-dist-info-metadata) is fixed so
// reruns are byte-identical.
func (s *Synthesizer) renderPackageIndex(name string, arts []*Artifact) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString("<html>\n<head>\n")
	fmt.Fprintf(&b, "  <title>Links for %s</title>\n", html.EscapeString(name))
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "  <h1>Links for %s</h1>\n", html.EscapeString(name))

	for _, a := range arts {
		attrs := []string{fmt.Sprintf("href=%q", s.opts.BaseURL+"/packages/"+a.Filename)}
		if a.RequiresPython != "" {
			attrs = append(attrs, fmt.Sprintf("data-requires-python=%q", html.EscapeString(a.RequiresPython)))
		}
		if a.Digest != "" {
			attrs = append(attrs, fmt.Sprintf("data-dist-info-metadata=%q", "sha256="+a.Digest))
		}

		label := a.Filename
		if s.opts.PublicVersions {
			label = wheel.NormalizeFilename(a.Filename)
		}
		fmt.Fprintf(&b, "  <a %s>%s</a><br/>\n", strings.Join(attrs, " "), html.EscapeString(label))
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// renderMainIndex emits the top-level package listing. Names arrive already
// normalized and sorted.
func renderMainIndex(names []string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString("<html>\n<head>\n  <title>Simple Index</title>\n</head>\n<body>\n")
	b.WriteString("  <h1>Simple Index</h1>\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  <a href=%q>%s</a><br/>\n", name+"/", html.EscapeString(name))
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
