package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exports pipeline metrics to Prometheus.
type Recorder struct {
	runs         *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	sideFailures *prometheus.CounterVec
	liveSessions prometheus.Gauge
}

// NewRecorder registers the pipeline metrics on reg. A nil registerer
// creates unregistered collectors.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsage_analyses_total",
				Help: "Analysis requests by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chartsage_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90},
			},
			[]string{"stage"},
		),
		sideFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chartsage_best_effort_failures_total",
				Help: "Failed best-effort stages that were dropped from the result",
			},
			[]string{"stage"},
		),
		liveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chartsage_live_sessions_active",
				Help: "Currently open live sessions",
			},
		),
	}
}

// RecordRun counts one finished (or rejected) request.
func (r *Recorder) RecordRun(mode, outcome string) {
	r.runs.WithLabelValues(mode, outcome).Inc()
}

// RecordStage observes a stage duration.
func (r *Recorder) RecordStage(stage string, d time.Duration) {
	r.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordSideFailure counts a dropped best-effort stage.
func (r *Recorder) RecordSideFailure(stage string) {
	r.sideFailures.WithLabelValues(stage).Inc()
}

// LiveOpened and LiveClosed track the open session gauge.
func (r *Recorder) LiveOpened() { r.liveSessions.Inc() }
func (r *Recorder) LiveClosed() { r.liveSessions.Dec() }
