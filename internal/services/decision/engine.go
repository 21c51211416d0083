package decision

import (
	"context"
	"fmt"
	"math"

	"CardioStage/internal/domain/models"
	domsvc "CardioStage/internal/domain/service"
)

// Probability thresholds separating the disease stages. Each band includes
// its lower bound.
const (
	MediumThreshold   = 0.4
	CriticalThreshold = 0.7
)

// ClassifyStage maps a label and positive-class probability to a stage.
// Label 0 is always No Disease regardless of probability.
func ClassifyStage(label int, probability float64) models.Stage {
	if label == 0 {
		return models.StageNoDisease
	}
	switch {
	case probability < MediumThreshold:
		return models.StageEarly
	case probability < CriticalThreshold:
		return models.StageMedium
	default:
		return models.StageCritical
	}
}

// Decide evaluates the model once on v and stages the outcome.
func Decide(ctx context.Context, v models.FeatureVector, model domsvc.Model) (models.PredictionResult, error) {
	var res models.PredictionResult
	if model == nil {
		return res, &models.ArtifactError{Artifact: "model", Err: fmt.Errorf("model not loaded")}
	}

	label, prob, err := evaluate(ctx, v, model)
	if err != nil {
		return res, err
	}
	if label != 0 && label != 1 {
		return res, fmt.Errorf("%w: label %d", models.ErrInvalidModelOutput, label)
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return res, fmt.Errorf("%w: probability %v", models.ErrInvalidModelOutput, prob)
	}

	res.Label = label
	res.Probability = prob
	res.Stage = ClassifyStage(label, prob)
	return res, nil
}

func evaluate(ctx context.Context, v models.FeatureVector, model domsvc.Model) (int, float64, error) {
	if jp, ok := model.(domsvc.JointPredictor); ok {
		label, prob, err := jp.PredictWithProbability(ctx, v)
		if err != nil {
			return 0, 0, fmt.Errorf("predict: %w", err)
		}
		return label, prob, nil
	}
	label, err := model.Predict(ctx, v)
	if err != nil {
		return 0, 0, fmt.Errorf("predict: %w", err)
	}
	prob, err := model.PredictProbability(ctx, v)
	if err != nil {
		return 0, 0, fmt.Errorf("predict probability: %w", err)
	}
	return label, prob, nil
}
