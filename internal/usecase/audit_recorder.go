package usecase

import (
	"context"
	"fmt"
	"time"

	"CardioStage/internal/domain/models"
	drepo "CardioStage/internal/domain/repository"
	"CardioStage/internal/middleware"
	"CardioStage/pkg/config"
)

var _ middleware.Forwarder = (*AuditRecorder)(nil)

// AuditRecorder routes audit events to the configured backend.
type AuditRecorder struct {
	pub     drepo.PredictionPublisher
	store   drepo.PredictionStore
	metrics drepo.Metrics
	backend string
}

// NewAuditRecorder creates a recorder for backend, which must be
// config.AuditKafka or config.AuditClickHouse. Only the matching
// dependency is used and the other may be nil.
func NewAuditRecorder(
	pub drepo.PredictionPublisher,
	store drepo.PredictionStore,
	metrics drepo.Metrics,
	backend string,
) (*AuditRecorder, error) {
	switch backend {
	case config.AuditKafka:
		if pub == nil {
			return nil, fmt.Errorf("audit backend kafka: publisher is nil")
		}
	case config.AuditClickHouse:
		if store == nil {
			return nil, fmt.Errorf("audit backend clickhouse: store is nil")
		}
	default:
		return nil, fmt.Errorf("unknown audit backend: %s", backend)
	}
	return &AuditRecorder{pub: pub, store: store, metrics: metrics, backend: backend}, nil
}

// Forward delivers a batch of events.
func (r *AuditRecorder) Forward(ctx context.Context, events []*models.PredictionEvent) error {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch r.backend {
	case config.AuditKafka:
		err = r.pub.PublishBatch(ctx, events)
	case config.AuditClickHouse:
		err = r.store.StoreBatch(ctx, events)
	}
	if err != nil {
		r.metrics.RecordError("audit_record_batch")
		return fmt.Errorf("record audit batch: %w", err)
	}

	for range events {
		r.metrics.RecordAuditSent(r.backend)
	}
	r.metrics.RecordLatency("audit_record_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (r *AuditRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
