// Package metrics exposes run and stage outcomes as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/stagegrid/internal/pipeline"
	"github.com/vk/stagegrid/internal/stage"
	"github.com/vk/stagegrid/internal/verdict"
)

// Metrics holds the collectors for one process. It implements
// pipeline.Observer.
type Metrics struct {
	registry *prometheus.Registry

	RunsStarted   *prometheus.CounterVec
	RunsFinished  *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	Stages        *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	StagesRunning prometheus.Gauge
}

// New creates a Metrics instance on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegrid_runs_started_total",
			Help: "Total number of pipeline runs started",
		}, []string{"pipeline"}),
		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegrid_runs_finished_total",
			Help: "Total number of pipeline runs finished, by verdict",
		}, []string{"pipeline", "verdict"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stagegrid_run_duration_seconds",
			Help:    "Wall-clock duration of pipeline runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"pipeline"}),
		Stages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegrid_stage_outcomes_total",
			Help: "Total number of stage outcomes, by stage path and status",
		}, []string{"stage", "status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stagegrid_stage_duration_seconds",
			Help:    "Duration of executed stages",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"stage"}),
		StagesRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stagegrid_stages_running",
			Help: "Number of stages currently executing",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RunStarted(name string) {
	m.RunsStarted.WithLabelValues(name).Inc()
}

func (m *Metrics) StageStarted(string) {
	m.StagesRunning.Inc()
}

func (m *Metrics) StageFinished(o stage.Outcome) {
	m.Stages.WithLabelValues(o.Path, o.Status.String()).Inc()
	if o.Ran() {
		m.StagesRunning.Dec()
		m.StageDuration.WithLabelValues(o.Path).Observe(o.Duration.Seconds())
	}
}

func (m *Metrics) RunFinished(r verdict.Report) {
	m.RunsFinished.WithLabelValues(r.Pipeline, r.Verdict.String()).Inc()
	m.RunDuration.WithLabelValues(r.Pipeline).Observe(r.Duration.Seconds())
}

var _ pipeline.Observer = (*Metrics)(nil)
