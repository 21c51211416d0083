package metrics

import (
	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ domrepo.Metrics = (*Recorder)(nil)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions *prometheus.CounterVec
	probability *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	outOfRange  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	auditSent   *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardio_predictions_total",
				Help: "Completed evaluations by front end and stage",
			},
			[]string{"source", "stage"},
		),
		probability: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardio_prediction_probability",
				Help:    "Positive-class probability returned by the model",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardio_errors_total",
				Help: "Evaluation failures by kind",
			},
			[]string{"kind"},
		),
		outOfRange: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardio_out_of_range_categories_total",
				Help: "Categorical codes encoded as baseline because they were outside the legal set",
			},
			[]string{"field"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardio_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),
		auditSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardio_audit_events_sent_total",
				Help: "Audit events delivered to a backend",
			},
			[]string{"backend"},
		),
	}
}

func (r *Recorder) RecordPrediction(source models.Source, stage models.Stage, probability float64) {
	r.predictions.WithLabelValues(string(source), string(stage)).Inc()
	r.probability.WithLabelValues(string(source)).Observe(probability)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordOutOfRange(field string) {
	r.outOfRange.WithLabelValues(field).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordAuditSent(backend string) {
	r.auditSent.WithLabelValues(backend).Inc()
}
