package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SentiDash/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	accuracy      *prometheus.GaugeVec
	lastDirection prometheus.Gauge
	lastProbUp    prometheus.Gauge
}

// New creates a recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentidash_pipeline_runs_total",
				Help: "Pipeline runs by outcome",
			},
			[]string{"status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentidash_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		stageLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentidash_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		accuracy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sentidash_model_accuracy",
				Help: "Latest model accuracy by evaluation kind",
			},
			[]string{"evaluation"},
		),
		lastDirection: f.NewGauge(prometheus.GaugeOpts{
			Name: "sentidash_last_predicted_direction",
			Help: "Latest predicted direction (1 up, 0 down)",
		}),
		lastProbUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "sentidash_last_probability_up",
			Help: "Latest predicted probability of an up day",
		}),
	}
}

// RecordRun counts a finished pipeline run.
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordStage records stage latency in seconds.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordAccuracy(kind string, value float64) {
	r.accuracy.WithLabelValues(kind).Set(value)
}

func (r *Recorder) RecordPrediction(direction models.Direction, probability float64) {
	r.lastDirection.Set(float64(direction))
	r.lastProbUp.Set(probability)
}
