package index

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/yuin/goldmark"
)

// landingTemplate is the narrative landing page. It carries installation
// instructions and the build provenance the index was generated from.
var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 900px; margin: 50px auto; padding: 20px; line-height: 1.6; }
        code { background: #f4f4f4; padding: 2px 6px; border-radius: 3px; font-family: 'Courier New', monospace; }
        pre { background: #f4f4f4; padding: 15px; border-radius: 5px; overflow-x: auto; border-left: 4px solid #2196F3; }
        .info { background: #e7f3ff; padding: 15px; border-left: 4px solid #2196F3; margin: 20px 0; }
        h1 { color: #333; }
        h2 { color: #555; margin-top: 30px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>

    <p>
        This repository hosts custom-built wheels and their dependencies.
        Installation resolves to these exact artifacts instead of arbitrary
        compatible versions from the public registry.
    </p>

    <h2>Installation</h2>
    <pre><code>pip install --index-url {{.BaseURL}}/simple/ &lt;package&gt;</code></pre>

    <h2>Browse Packages</h2>
    <p><a href="simple/">Browse all {{.WheelCount}} available wheels</a></p>

    <h2>Build Information</h2>
    <ul>
{{- range .BuildInfo}}
        <li><strong>{{.Key}}:</strong> {{.Value}}</li>
{{- end}}
        <li><strong>Built:</strong> {{.Built}}</li>
    </ul>
{{- if .ReleaseNotes}}

    <h2>Release Notes</h2>
    <div class="info">
{{.ReleaseNotes}}
    </div>
{{- end}}
</body>
</html>
`))

type landingData struct {
	Title        string
	BaseURL      string
	WheelCount   int
	BuildInfo    []keyValue
	Built        string
	ReleaseNotes template.HTML
}

type keyValue struct {
	Key   string
	Value string
}

// renderLandingPage fills the landing template with build provenance. The
// build-info map is free-form key to value input; keys are emitted in sorted
// order so output stays stable.
func (s *Synthesizer) renderLandingPage(wheelCount int) (string, error) {
	// A zero Now falls back to wall-clock time; callers that need
	// byte-identical reruns pass an explicit timestamp.
	now := s.opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	data := landingData{
		Title:      s.opts.Title,
		BaseURL:    s.opts.BaseURL,
		WheelCount: wheelCount,
		Built:      now.UTC().Format("2006-01-02 15:04:05 UTC"),
	}

	keys := make([]string, 0, len(s.opts.BuildInfo))
	for k := range s.opts.BuildInfo {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data.BuildInfo = append(data.BuildInfo, keyValue{Key: k, Value: s.opts.BuildInfo[k]})
	}

	if len(s.opts.ReleaseNotes) > 0 {
		var rendered bytes.Buffer
		if err := goldmark.New().Convert(s.opts.ReleaseNotes, &rendered); err != nil {
			return "", fmt.Errorf("render release notes: %w", err)
		}
		data.ReleaseNotes = template.HTML(rendered.String())
	}

	var out bytes.Buffer
	if err := landingTemplate.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}
