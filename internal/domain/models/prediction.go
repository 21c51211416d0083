package models

import "time"

// Stage is the clinical severity tier reported to callers.
type Stage string

const (
	StageNoDisease Stage = "No Disease"
	StageEarly     Stage = "Early Stage"
	StageMedium    Stage = "Medium Stage"
	StageCritical  Stage = "Critical Stage"
)

// Stages lists every stage a result can carry.
var Stages = []Stage{StageNoDisease, StageEarly, StageMedium, StageCritical}

// PredictionResult is the outcome of one evaluation.
type PredictionResult struct {
	Label       int     `json:"prediction"`
	Probability float64 `json:"probability"`
	Stage       Stage   `json:"classification"`
}

// Source identifies the front end that requested an evaluation.
type Source string

const (
	SourceHTTP  Source = "http"
	SourceKafka Source = "kafka"
	SourceCLI   Source = "cli"
)

// PredictionEvent is the audit record of a completed evaluation.
type PredictionEvent struct {
	ID        string           `json:"id"`
	RequestID string           `json:"request_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Source    Source           `json:"source"`
	Model     string           `json:"model"`
	Features  FeatureVector    `json:"features"`
	Result    PredictionResult `json:"result"`
}

// ScoredRecord is the outcome of a batch-scoring request. Error is set
// instead of Result when the record could not be evaluated.
type ScoredRecord struct {
	ID     string            `json:"id"`
	Result *PredictionResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}
