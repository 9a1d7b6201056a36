package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	synthesisDuration prom.Histogram
	synthesisOutcome  *prom.CounterVec
	wheelCount        prom.Gauge
	packageCount      prom.Gauge
	skippedArtifacts  prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.synthesisDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "wheelhouse",
			Name:      "synthesis_duration_seconds",
			Help:      "Duration of full index synthesis runs",
			Buckets:   prom.DefBuckets,
		})
		pr.synthesisOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "wheelhouse",
			Name:      "synthesis_outcomes_total",
			Help:      "Synthesis outcomes by final status",
		}, []string{"outcome"})
		pr.wheelCount = prom.NewGauge(prom.GaugeOpts{
			Namespace: "wheelhouse",
			Name:      "wheels",
			Help:      "Number of wheels in the last synthesized index",
		})
		pr.packageCount = prom.NewGauge(prom.GaugeOpts{
			Namespace: "wheelhouse",
			Name:      "packages",
			Help:      "Number of packages in the last synthesized index",
		})
		pr.skippedArtifacts = prom.NewCounter(prom.CounterOpts{
			Namespace: "wheelhouse",
			Name:      "skipped_artifacts_total",
			Help:      "Artifacts skipped because their filename failed to parse",
		})
		reg.MustRegister(pr.synthesisDuration, pr.synthesisOutcome, pr.wheelCount, pr.packageCount, pr.skippedArtifacts)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveSynthesisDuration(d time.Duration) {
	if p == nil || p.synthesisDuration == nil {
		return
	}
	p.synthesisDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSynthesisOutcome(outcome OutcomeLabel) {
	if p == nil || p.synthesisOutcome == nil {
		return
	}
	p.synthesisOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetWheelCount(n int) {
	if p == nil || p.wheelCount == nil {
		return
	}
	p.wheelCount.Set(float64(n))
}

func (p *PrometheusRecorder) SetPackageCount(n int) {
	if p == nil || p.packageCount == nil {
		return
	}
	p.packageCount.Set(float64(n))
}

func (p *PrometheusRecorder) IncSkippedArtifacts(n int) {
	if p == nil || p.skippedArtifacts == nil {
		return
	}
	p.skippedArtifacts.Add(float64(n))
}
