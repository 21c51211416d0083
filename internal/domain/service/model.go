package service

import (
	"context"

	"CardioStage/internal/domain/models"
)

// Model is a trained binary classifier over the 19-column feature vector.
// Implementations are immutable after construction and safe for concurrent use.
type Model interface {
	// Predict returns the class label, 0 or 1.
	Predict(ctx context.Context, v models.FeatureVector) (int, error)
	// PredictProbability returns the probability of class 1.
	PredictProbability(ctx context.Context, v models.FeatureVector) (float64, error)
}

// JointPredictor is implemented by models that produce label and probability
// from a single evaluation (e.g. a remote model answering both in one call).
type JointPredictor interface {
	PredictWithProbability(ctx context.Context, v models.FeatureVector) (int, float64, error)
}

// Describer is implemented by models that can name themselves for health and
// audit output.
type Describer interface {
	Describe() string
}
