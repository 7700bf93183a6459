package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "postpress"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	stageDuration  *prom.HistogramVec
	buildDuration  prom.Histogram
	stageResults   *prom.CounterVec
	buildOutcome   *prom.CounterVec
	renderDuration prom.Histogram
	issues         *prom.CounterVec
	posts          *prom.CounterVec
	pages          *prom.CounterVec
	workers        prom.Gauge
}

// NewPrometheusRecorder constructs metrics and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual pipeline stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "build_duration_seconds",
		Help:      "Total run duration",
		Buckets:   prom.DefBuckets,
	})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_outcomes_total",
		Help:      "Run outcomes by final status",
	}, []string{"outcome"})
	pr.renderDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "post_render_duration_seconds",
		Help:      "Time spent rendering a single post",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})
	pr.issues = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "issues_total",
		Help:      "Reported issues by kind",
	}, []string{"kind"})
	pr.posts = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "posts_total",
		Help:      "Posts by load state",
	}, []string{"state"})
	pr.pages = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "pages_total",
		Help:      "Output files by write result",
	}, []string{"result"})
	pr.workers = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "render_workers",
		Help:      "Render worker pool size of the last run",
	})
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.renderDuration, pr.issues, pr.posts, pr.pages, pr.workers)
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// WriteTextfile writes the current metric values in the Prometheus text
// format, replacing path atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics dir: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObservePostRenderDuration(d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncIssue(kind string) {
	if p == nil || p.issues == nil {
		return
	}
	p.issues.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) AddPosts(state string, n int) {
	if p == nil || p.posts == nil || n <= 0 {
		return
	}
	p.posts.WithLabelValues(state).Add(float64(n))
}

func (p *PrometheusRecorder) AddPages(result string, n int) {
	if p == nil || p.pages == nil || n <= 0 {
		return
	}
	p.pages.WithLabelValues(result).Add(float64(n))
}

func (p *PrometheusRecorder) SetWorkers(n int) {
	if p == nil || p.workers == nil {
		return
	}
	p.workers.Set(float64(n))
}
