package metrics

import (
	"CardioStage/internal/domain/models"
	domrepo "CardioStage/internal/domain/repository"
)

var _ domrepo.Metrics = Nop{}

// Nop discards every observation. Used by the CLI and in tests.
type Nop struct{}

func (Nop) RecordPrediction(models.Source, models.Stage, float64) {}
func (Nop) RecordError(string)                                     {}
func (Nop) RecordOutOfRange(string)                                {}
func (Nop) RecordLatency(string, float64)                          {}
func (Nop) RecordAuditSent(string)                                 {}
