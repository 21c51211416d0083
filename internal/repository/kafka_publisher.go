package repository

import (
	"context"

	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"
	pkgkafka "CardioStage/pkg/kafka"
)

// messageProducer is the part of *pkgkafka.Producer the publishers use.
type messageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPredictionPublisher implements PredictionPublisher for Kafka. Events
// are keyed by event id.
type KafkaPredictionPublisher struct {
	producer messageProducer
	topic    string
}

var _ domrepo.PredictionPublisher = (*KafkaPredictionPublisher)(nil)

func NewKafkaPredictionPublisher(producer messageProducer, topic string) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{producer: producer, topic: topic}
}

func (p *KafkaPredictionPublisher) Publish(ctx context.Context, e *models.PredictionEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.ID), e)
}

func (p *KafkaPredictionPublisher) PublishBatch(ctx context.Context, events []*models.PredictionEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:     []byte(e.ID),
			Value:   e,
			Headers: map[string]string{"source": string(e.Source)},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op: the producer is shared and closed by its owner.
func (p *KafkaPredictionPublisher) Close() error { return nil }

// KafkaResultPublisher implements ResultPublisher for batch scoring. Results
// are keyed by record id so retries land on the same partition.
type KafkaResultPublisher struct {
	producer messageProducer
	topic    string
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)

func NewKafkaResultPublisher(producer messageProducer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishResult(ctx context.Context, r models.ScoredRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.ID), r)
}
