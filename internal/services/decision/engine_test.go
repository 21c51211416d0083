package decision

import (
	"context"
	"errors"
	"math"
	"testing"

	"CardioStage/internal/domain/models"
)

type stubModel struct {
	label int
	prob  float64
	err   error
	seen  []models.FeatureVector
}

func (m *stubModel) Predict(_ context.Context, v models.FeatureVector) (int, error) {
	m.seen = append(m.seen, v)
	return m.label, m.err
}

func (m *stubModel) PredictProbability(_ context.Context, v models.FeatureVector) (float64, error) {
	m.seen = append(m.seen, v)
	return m.prob, m.err
}

type jointModel struct {
	stubModel
	joint int
}

func (m *jointModel) PredictWithProbability(_ context.Context, _ models.FeatureVector) (int, float64, error) {
	m.joint++
	return m.label, m.prob, nil
}

func TestClassifyStageBoundaries(t *testing.T) {
	cases := []struct {
		label int
		prob  float64
		want  models.Stage
	}{
		{0, 0.0, models.StageNoDisease},
		{0, 0.95, models.StageNoDisease},
		{1, 0.0, models.StageEarly},
		{1, 0.39999, models.StageEarly},
		{1, 0.4, models.StageMedium},
		{1, 0.69999, models.StageMedium},
		{1, 0.7, models.StageCritical},
		{1, 1.0, models.StageCritical},
	}
	for _, tc := range cases {
		if got := ClassifyStage(tc.label, tc.prob); got != tc.want {
			t.Fatalf("label=%d p=%v: got %q want %q", tc.label, tc.prob, got, tc.want)
		}
	}
}

func TestDecideUsesSameVector(t *testing.T) {
	m := &stubModel{label: 1, prob: 0.75}
	v := models.FeatureVector{Age: 63, CP3: 1}
	res, err := Decide(context.Background(), v, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Label != 1 || res.Probability != 0.75 || res.Stage != models.StageCritical {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(m.seen) != 2 || m.seen[0] != v || m.seen[1] != v {
		t.Fatalf("model must see the same vector twice, saw %v", m.seen)
	}
}

func TestDecidePrefersJointPrediction(t *testing.T) {
	m := &jointModel{stubModel: stubModel{label: 1, prob: 0.5}}
	res, err := Decide(context.Background(), models.FeatureVector{}, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.joint != 1 || len(m.seen) != 0 {
		t.Fatalf("expected one joint call, got joint=%d separate=%d", m.joint, len(m.seen))
	}
	if res.Stage != models.StageMedium {
		t.Fatalf("unexpected stage: %q", res.Stage)
	}
}

func TestDecideNilModel(t *testing.T) {
	_, err := Decide(context.Background(), models.FeatureVector{}, nil)
	if !errors.Is(err, models.ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}

func TestDecideRejectsInvalidOutput(t *testing.T) {
	for _, m := range []*stubModel{
		{label: 2, prob: 0.5},
		{label: 1, prob: 1.2},
		{label: 1, prob: -0.1},
		{label: 1, prob: math.NaN()},
	} {
		if _, err := Decide(context.Background(), models.FeatureVector{}, m); !errors.Is(err, models.ErrInvalidModelOutput) {
			t.Fatalf("label=%d p=%v: expected ErrInvalidModelOutput, got %v", m.label, m.prob, err)
		}
	}
}

func TestDecidePropagatesModelError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Decide(context.Background(), models.FeatureVector{}, &stubModel{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}
