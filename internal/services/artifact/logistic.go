package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"CardioStage/internal/domain/models"
	domsvc "CardioStage/internal/domain/service"
)

type logisticDoc struct {
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Logistic is a linear classifier: p = sigmoid(w·x + b).
type Logistic struct {
	w [models.FeatureCount]float64
	b float64
}

var (
	_ domsvc.Model          = (*Logistic)(nil)
	_ domsvc.JointPredictor = (*Logistic)(nil)
	_ domsvc.Describer      = (*Logistic)(nil)
)

func parseLogistic(data []byte) (*Logistic, error) {
	var doc logisticDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode logistic: %w", err)
	}
	if err := checkFeatureNames(doc.FeatureNames); err != nil {
		return nil, err
	}
	if len(doc.Coefficients) != models.FeatureCount {
		return nil, fmt.Errorf("logistic has %d coefficients, want %d", len(doc.Coefficients), models.FeatureCount)
	}
	m := &Logistic{b: doc.Intercept}
	for i, c := range doc.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
		m.w[i] = c
	}
	if math.IsNaN(m.b) || math.IsInf(m.b, 0) {
		return nil, fmt.Errorf("intercept is not finite")
	}
	return m, nil
}

func (m *Logistic) probability(x [models.FeatureCount]float64) float64 {
	z := m.b
	for i := range x {
		z += m.w[i] * x[i]
	}
	return 1 / (1 + math.Exp(-z))
}

func (m *Logistic) PredictWithProbability(_ context.Context, v models.FeatureVector) (int, float64, error) {
	p := m.probability(v.Values())
	return labelFor(p), p, nil
}

func (m *Logistic) Predict(ctx context.Context, v models.FeatureVector) (int, error) {
	label, _, err := m.PredictWithProbability(ctx, v)
	return label, err
}

func (m *Logistic) PredictProbability(_ context.Context, v models.FeatureVector) (float64, error) {
	return m.probability(v.Values()), nil
}

func (m *Logistic) Describe() string { return "logistic" }
