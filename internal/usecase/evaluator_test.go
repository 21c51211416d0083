package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"CardioStage/internal/domain/models"
)

type fakeModel struct {
	mu        sync.Mutex
	label     int
	prob      float64
	err       error
	calls     int
	lastInput models.FeatureVector
}

func (m *fakeModel) Predict(_ context.Context, v models.FeatureVector) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastInput = v
	return m.label, m.err
}

func (m *fakeModel) PredictProbability(_ context.Context, v models.FeatureVector) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastInput = v
	return m.prob, m.err
}

type fakeMetrics struct {
	mu          sync.Mutex
	predictions map[models.Stage]int
	errors      map[string]int
	outOfRange  map[string]int
	audit       map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		predictions: map[models.Stage]int{},
		errors:      map[string]int{},
		outOfRange:  map[string]int{},
		audit:       map[string]int{},
	}
}

func (m *fakeMetrics) RecordPrediction(_ models.Source, stage models.Stage, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[stage]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordOutOfRange(field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outOfRange[field]++
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func (m *fakeMetrics) RecordAuditSent(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit[backend]++
}

type fakeSink struct {
	mu     sync.Mutex
	events []*models.PredictionEvent
	err    error
}

func (s *fakeSink) Submit(_ context.Context, e *models.PredictionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func scenarioRecord() models.RawRecord {
	return models.RawRecord{
		"age": 63, "sex": 1, "trestbps": 145, "chol": 233, "fbs": 1,
		"thalach": 150, "exang": 0, "oldpeak": 2.3, "ca": 0,
		"cp": 3, "restecg": 0, "slope": 0, "thal": 1,
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	model := &fakeModel{label: 1, prob: 0.75}
	ev := NewEvaluator(models.IdentityScaler(), model)

	res, err := ev.Evaluate(context.Background(), scenarioRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.PredictionResult{Label: 1, Probability: 0.75, Stage: models.StageCritical}
	if res != want {
		t.Fatalf("got %+v want %+v", res, want)
	}

	v := model.lastInput
	if v.Age != 63 || v.Trestbps != 145 || v.Chol != 233 || v.Thalach != 150 || v.Oldpeak != 2.3 {
		t.Fatalf("identity scaler must leave continuous values unchanged: %+v", v)
	}
	if v.CP1 != 0 || v.CP2 != 0 || v.CP3 != 1 {
		t.Fatalf("expected only cp_3 set, got %v %v %v", v.CP1, v.CP2, v.CP3)
	}
	if v.Restecg1 != 0 || v.Restecg2 != 0 || v.Slope1 != 0 || v.Slope2 != 0 {
		t.Fatalf("baseline restecg/slope codes must encode as zero: %+v", v)
	}
	if v.Thal1 != 1 || v.Thal2 != 0 || v.Thal3 != 0 {
		t.Fatalf("thal=1 must set thal_1 only: %+v", v)
	}
}

func TestEvaluateMissingFieldSkipsModel(t *testing.T) {
	model := &fakeModel{label: 1, prob: 0.75}
	m := newFakeMetrics()
	ev := NewEvaluator(models.IdentityScaler(), model, WithEvaluatorMetrics(m))

	rec := scenarioRecord()
	delete(rec, "thal")
	_, err := ev.Evaluate(context.Background(), rec)
	if !errors.Is(err, models.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("model must not be invoked, got %d calls", model.calls)
	}
	if m.errors["missing_field"] != 1 {
		t.Fatalf("expected missing_field error metric, got %v", m.errors)
	}
}

func TestEvaluateOutOfRangePolicy(t *testing.T) {
	model := &fakeModel{label: 0, prob: 0.2}
	m := newFakeMetrics()

	permissive := NewEvaluator(models.IdentityScaler(), model, WithEvaluatorMetrics(m))
	res, err := permissive.Evaluate(context.Background(), scenarioRecord())
	if err != nil {
		t.Fatalf("permissive mode must accept baseline codes: %v", err)
	}
	if res.Stage != models.StageNoDisease {
		t.Fatalf("label 0 must be No Disease, got %s", res.Stage)
	}
	if m.outOfRange["restecg"] != 1 || m.outOfRange["slope"] != 1 {
		t.Fatalf("expected restecg and slope counted, got %v", m.outOfRange)
	}

	strict := NewEvaluator(models.IdentityScaler(), model, WithStrictCategories(true))
	calls := model.calls
	if _, err := strict.Evaluate(context.Background(), scenarioRecord()); !errors.Is(err, models.ErrOutOfRangeCategory) {
		t.Fatalf("expected ErrOutOfRangeCategory, got %v", err)
	}
	if model.calls != calls {
		t.Fatalf("strict rejection must not reach the model")
	}
}

func TestEvaluateFromEmitsAudit(t *testing.T) {
	model := &fakeModel{label: 1, prob: 0.5}
	sink := &fakeSink{}
	m := newFakeMetrics()
	ev := NewEvaluator(models.IdentityScaler(), model,
		WithAuditSink(sink), WithEvaluatorMetrics(m), WithModelName("forest(2 trees)"))

	res, err := ev.EvaluateFrom(context.Background(), models.SourceHTTP, "req-1", scenarioRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stage != models.StageMedium {
		t.Fatalf("expected Medium Stage, got %s", res.Stage)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(sink.events))
	}
	e := sink.events[0]
	if e.ID == "" || e.RequestID != "req-1" || e.Source != models.SourceHTTP || e.Model != "forest(2 trees)" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.Result != res || e.Features.CP3 != 1 {
		t.Fatalf("event must carry result and vector: %+v", e)
	}
	if m.predictions[models.StageMedium] != 1 {
		t.Fatalf("expected prediction metric, got %v", m.predictions)
	}
}

func TestEvaluateFromAuditFailureIsNotFatal(t *testing.T) {
	sink := &fakeSink{err: errors.New("buffer full")}
	ev := NewEvaluator(models.IdentityScaler(), &fakeModel{label: 1, prob: 0.9}, WithAuditSink(sink))
	if _, err := ev.EvaluateFrom(context.Background(), models.SourceKafka, "", scenarioRecord()); err != nil {
		t.Fatalf("audit failure must not fail the evaluation: %v", err)
	}
}

func TestEvaluateModelErrors(t *testing.T) {
	cases := []struct {
		name  string
		model *fakeModel
		kind  string
	}{
		{"model failure", &fakeModel{err: errors.New("boom")}, "model"},
		{"bad label", &fakeModel{label: 2, prob: 0.5}, "invalid_model_output"},
		{"bad probability", &fakeModel{label: 1, prob: 1.5}, "invalid_model_output"},
	}
	for _, tc := range cases {
		m := newFakeMetrics()
		ev := NewEvaluator(models.IdentityScaler(), tc.model, WithEvaluatorMetrics(m))
		_, err := ev.Evaluate(context.Background(), scenarioRecord())
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if ErrorKind(err) != tc.kind || m.errors[tc.kind] != 1 {
			t.Fatalf("%s: expected kind %s, got %s (%v)", tc.name, tc.kind, ErrorKind(err), m.errors)
		}
	}
}

func TestEvaluateWithoutModel(t *testing.T) {
	ev := NewEvaluator(models.IdentityScaler(), nil)
	if ev.Ready() {
		t.Fatalf("evaluator without model must not be ready")
	}
	if _, err := ev.Evaluate(context.Background(), scenarioRecord()); !errors.Is(err, models.ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}
