// Package metrics provides observability hooks for index synthesis.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so batch invocations carry no metrics overhead; watch and
// serve modes swap in the Prometheus implementation.
package metrics

import "time"

// OutcomeLabel enumerates synthesis result categories for counters.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeWarning OutcomeLabel = "warning"
	OutcomeFailed  OutcomeLabel = "failed"
)

// Recorder defines observability hooks for synthesis metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveSynthesisDuration(d time.Duration)
	IncSynthesisOutcome(outcome OutcomeLabel)
	SetWheelCount(n int)
	SetPackageCount(n int)
	IncSkippedArtifacts(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveSynthesisDuration(time.Duration) {}
func (NoopRecorder) IncSynthesisOutcome(OutcomeLabel)       {}
func (NoopRecorder) SetWheelCount(int)                      {}
func (NoopRecorder) SetPackageCount(int)                    {}
func (NoopRecorder) IncSkippedArtifacts(int)                {}
