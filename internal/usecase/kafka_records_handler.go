package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"
	xhttp "CardioStage/pkg/http"
	pkgkafka "CardioStage/pkg/kafka"
	applogger "CardioStage/pkg/logger"
)

// KafkaRecordsHandler scores patient records from Kafka and publishes one
// ScoredRecord per message. Records that can never succeed get an error
// result; transient failures are returned so the consumer retries them.
type KafkaRecordsHandler struct {
	topic     string
	evaluator *Evaluator
	results   domrepo.ResultPublisher
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*KafkaRecordsHandler)(nil)

func NewKafkaRecordsHandler(
	topic string,
	evaluator *Evaluator,
	results domrepo.ResultPublisher,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *KafkaRecordsHandler {
	return &KafkaRecordsHandler{
		topic:     topic,
		evaluator: evaluator,
		results:   results,
		metrics:   metrics,
		logger:    logger,
	}
}

func (h *KafkaRecordsHandler) Topic() string { return h.topic }

// incoming message schema: {id, record}
func (h *KafkaRecordsHandler) Handle(ctx context.Context, b []byte) error {
	start := time.Now()
	var req models.ScoreRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode score request: %w", err)
	}
	if errs := xhttp.ValidateStruct(&req); len(errs) > 0 {
		h.metrics.RecordError("consumer_validate")
		if req.ID == "" {
			return fmt.Errorf("invalid score request: %s", xhttp.ValidationMessage(errs))
		}
		return h.publish(ctx, models.ScoredRecord{ID: req.ID, Error: xhttp.ValidationMessage(errs)})
	}

	requestID := pkgkafka.RequestIDFromContext(ctx)
	res, err := h.evaluator.EvaluateFrom(ctx, models.SourceKafka, requestID, req.Record)
	if err != nil {
		if !permanent(err) {
			return fmt.Errorf("score record %s: %w", req.ID, err)
		}
		h.logger.Warn("Record rejected",
			applogger.String("record_id", req.ID),
			applogger.String("request_id", requestID),
			applogger.Error(err),
		)
		return h.publish(ctx, models.ScoredRecord{ID: req.ID, Error: err.Error()})
	}

	if err := h.publish(ctx, models.ScoredRecord{ID: req.ID, Result: &res}); err != nil {
		return err
	}
	h.metrics.RecordLatency("consumer_score", time.Since(start).Seconds())
	return nil
}

func (h *KafkaRecordsHandler) publish(ctx context.Context, r models.ScoredRecord) error {
	if err := h.results.PublishResult(ctx, r); err != nil {
		h.metrics.RecordError("consumer_publish")
		return fmt.Errorf("publish result %s: %w", r.ID, err)
	}
	return nil
}

// permanent reports whether retrying the same record cannot help.
func permanent(err error) bool {
	return errors.Is(err, models.ErrMissingField) ||
		errors.Is(err, models.ErrOutOfRangeCategory) ||
		errors.Is(err, models.ErrInvalidModelOutput)
}
