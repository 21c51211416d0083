package repository

import (
	"context"
	"time"

	"CardioStage/internal/domain/models"
)

// PredictionPublisher ships audit events to a message broker.
type PredictionPublisher interface {
	Publish(ctx context.Context, e *models.PredictionEvent) error
	PublishBatch(ctx context.Context, events []*models.PredictionEvent) error
	Close() error
}

// PredictionStore persists audit events.
type PredictionStore interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, e *models.PredictionEvent) error
	StoreBatch(ctx context.Context, events []*models.PredictionEvent) error
	Recent(ctx context.Context, since time.Time, limit int) ([]*models.PredictionEvent, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// ResultPublisher ships batch-scoring results.
type ResultPublisher interface {
	PublishResult(ctx context.Context, r models.ScoredRecord) error
}

type Metrics interface {
	RecordPrediction(source models.Source, stage models.Stage, probability float64)
	RecordError(kind string)
	RecordOutOfRange(field string)
	RecordLatency(op string, seconds float64)
	RecordAuditSent(backend string)
}
