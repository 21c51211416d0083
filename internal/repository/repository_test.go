package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"CardioStage/internal/domain/models"
	pkgkafka "CardioStage/pkg/kafka"
)

type sentMessage struct {
	topic string
	msg   pkgkafka.Message
}

type fakeProducer struct {
	sent []sentMessage
}

func (p *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.sent = append(p.sent, sentMessage{topic: topic, msg: pkgkafka.Message{Key: key, Value: value}})
	return nil
}

func (p *fakeProducer) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	for _, m := range messages {
		p.sent = append(p.sent, sentMessage{topic: topic, msg: m})
	}
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func sampleEvent(id string) *models.PredictionEvent {
	return &models.PredictionEvent{
		ID:        id,
		RequestID: "req-" + id,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:    models.SourceHTTP,
		Model:     "forest(100 trees)",
		Features:  models.FeatureVector{Age: 0.5, CP3: 1, Thal1: 1},
		Result:    models.PredictionResult{Label: 1, Probability: 0.75, Stage: models.StageCritical},
	}
}

func TestKafkaPredictionPublisher(t *testing.T) {
	prod := &fakeProducer{}
	pub := NewKafkaPredictionPublisher(prod, "cardio.predictions")

	if err := pub.PublishBatch(context.Background(), []*models.PredictionEvent{sampleEvent("a"), nil, sampleEvent("b")}); err != nil {
		t.Fatalf("publish batch: %v", err)
	}
	if len(prod.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(prod.sent))
	}
	first := prod.sent[0]
	if first.topic != "cardio.predictions" || string(first.msg.Key) != "a" || first.msg.Headers["source"] != "http" {
		t.Fatalf("unexpected message: %+v", first)
	}
	if ev, ok := first.msg.Value.(*models.PredictionEvent); !ok || ev.ID != "a" {
		t.Fatalf("message value must be the event, got %T", first.msg.Value)
	}
}

func TestKafkaResultPublisher(t *testing.T) {
	prod := &fakeProducer{}
	pub := NewKafkaResultPublisher(prod, "cardio.results")
	if err := pub.PublishResult(context.Background(), models.ScoredRecord{ID: "r1", Error: "missing field: thal"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(prod.sent) != 1 || prod.sent[0].topic != "cardio.results" || string(prod.sent[0].msg.Key) != "r1" {
		t.Fatalf("unexpected messages: %+v", prod.sent)
	}
}

func TestInsertBatch(t *testing.T) {
	q, args := insertBatch("cardio.prediction_audit", []*models.PredictionEvent{sampleEvent("a"), {}, sampleEvent("b")})
	if !strings.HasPrefix(q, "INSERT INTO cardio.prediction_audit ("+predictionColumns+") VALUES ") {
		t.Fatalf("unexpected query: %s", q)
	}
	if strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?, ?)") != 2 || len(args) != 18 {
		t.Fatalf("expected two rows, got %d args in %s", len(args), q)
	}
	if args[5] != uint8(1) || args[7] != "Critical Stage" {
		t.Fatalf("unexpected label/stage args: %v %v", args[5], args[7])
	}
	vals, ok := args[8].([]float64)
	if !ok || len(vals) != models.FeatureCount || vals[11] != 1 || vals[16] != 1 {
		t.Fatalf("features must be the ordered 19-value vector, got %v", args[8])
	}

	if q, _ := insertBatch("t", []*models.PredictionEvent{nil}); q != "" {
		t.Fatalf("expected no query for empty batch")
	}
}

func TestPredictionDDL(t *testing.T) {
	ddl := predictionDDL("cardio.prediction_audit")
	for _, col := range strings.Split(predictionColumns, ", ") {
		if !strings.Contains(ddl, "\n    "+col+" ") {
			t.Fatalf("DDL is missing column %s", col)
		}
	}
	if !strings.Contains(ddl, "IF NOT EXISTS cardio.prediction_audit") {
		t.Fatalf("DDL must be idempotent: %s", ddl)
	}
}

func TestTableNameValidation(t *testing.T) {
	for name, ok := range map[string]bool{
		"prediction_audit":        true,
		"cardio.prediction_audit": true,
		"audit; DROP TABLE x":     false,
		"1table":                  false,
		"":                        false,
	} {
		if tableName.MatchString(name) != ok {
			t.Fatalf("table name %q: expected valid=%v", name, ok)
		}
	}
}
