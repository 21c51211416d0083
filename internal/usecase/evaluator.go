package usecase

import (
	"context"
	"errors"
	"time"

	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"
	domsvc "CardioStage/internal/domain/service"
	"CardioStage/internal/services/decision"
	"CardioStage/internal/services/features"
	applogger "CardioStage/pkg/logger"
	"CardioStage/pkg/metrics"

	"github.com/google/uuid"
)

// AuditSink receives an event for every successful evaluation. Submit must
// not block the caller.
type AuditSink interface {
	Submit(ctx context.Context, e *models.PredictionEvent) error
}

// Evaluator composes the feature encoder and the decision engine. Scaler and
// model are fixed at construction and shared read-only by all callers.
type Evaluator struct {
	scaler    models.ScalerParams
	model     domsvc.Model
	opts      features.Options
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	audit     AuditSink
	modelName string
	now       func() time.Time
}

type EvaluatorOption func(*Evaluator)

func WithStrictCategories(strict bool) EvaluatorOption {
	return func(e *Evaluator) { e.opts.StrictCategories = strict }
}

func WithEvaluatorMetrics(m domrepo.Metrics) EvaluatorOption {
	return func(e *Evaluator) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithEvaluatorLogger(l *applogger.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAuditSink enables audit events for EvaluateFrom.
func WithAuditSink(s AuditSink) EvaluatorOption {
	return func(e *Evaluator) { e.audit = s }
}

// WithModelName overrides the model name reported in audit events and health.
func WithModelName(name string) EvaluatorOption {
	return func(e *Evaluator) { e.modelName = name }
}

func NewEvaluator(scaler models.ScalerParams, model domsvc.Model, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		scaler:    scaler,
		model:     model,
		metrics:   metrics.Nop{},
		logger:    applogger.NewNop(),
		modelName: "unknown",
		now:       time.Now,
	}
	if d, ok := model.(domsvc.Describer); ok {
		e.modelName = d.Describe()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModelName describes the loaded model.
func (e *Evaluator) ModelName() string { return e.modelName }

// Ready reports whether a model is loaded.
func (e *Evaluator) Ready() bool { return e.model != nil }

// Strict reports whether out-of-range categorical codes are rejected.
func (e *Evaluator) Strict() bool { return e.opts.StrictCategories }

// Evaluate encodes rec and runs the decision engine on it. A record that
// fails validation never reaches the model.
func (e *Evaluator) Evaluate(ctx context.Context, rec models.RawRecord) (models.PredictionResult, error) {
	_, res, err := e.evaluate(ctx, rec)
	return res, err
}

// EvaluateFrom is Evaluate plus per-source metrics and an audit event.
func (e *Evaluator) EvaluateFrom(ctx context.Context, source models.Source, requestID string, rec models.RawRecord) (models.PredictionResult, error) {
	v, res, err := e.evaluate(ctx, rec)
	if err != nil {
		return res, err
	}
	e.metrics.RecordPrediction(source, res.Stage, res.Probability)

	if e.audit != nil {
		event := &models.PredictionEvent{
			ID:        uuid.NewString(),
			RequestID: requestID,
			Timestamp: e.now().UTC(),
			Source:    source,
			Model:     e.modelName,
			Features:  v,
			Result:    res,
		}
		if err := e.audit.Submit(ctx, event); err != nil {
			e.logger.Warn("Audit event dropped",
				applogger.String("event_id", event.ID),
				applogger.Error(err),
			)
		}
	}
	return res, nil
}

func (e *Evaluator) evaluate(ctx context.Context, rec models.RawRecord) (models.FeatureVector, models.PredictionResult, error) {
	start := time.Now()
	defer func() {
		e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	}()

	v, err := features.Encode(rec, e.scaler, e.opts)
	if err != nil {
		e.metrics.RecordError(ErrorKind(err))
		return v, models.PredictionResult{}, err
	}
	if !e.opts.StrictCategories {
		for _, bad := range features.OutOfRange(rec) {
			e.metrics.RecordOutOfRange(bad.Field)
			e.logger.Warn("Categorical code outside legal set, encoded as baseline",
				applogger.String("field", bad.Field),
				applogger.Float64("code", bad.Code),
			)
		}
	}

	res, err := decision.Decide(ctx, v, e.model)
	if err != nil {
		e.metrics.RecordError(ErrorKind(err))
		return v, res, err
	}
	return v, res, nil
}

// ErrorKind is the metrics label for an evaluation error.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrMissingField):
		return "missing_field"
	case errors.Is(err, models.ErrOutOfRangeCategory):
		return "out_of_range_category"
	case errors.Is(err, models.ErrArtifactLoad):
		return "artifact_load"
	case errors.Is(err, models.ErrInvalidModelOutput):
		return "invalid_model_output"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "model"
	}
}
