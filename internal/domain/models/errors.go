package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField: a required record key is absent.
	ErrMissingField = errors.New("missing field")
	// ErrOutOfRangeCategory: a categorical code is outside its legal set.
	// Only raised when strict category validation is enabled.
	ErrOutOfRangeCategory = errors.New("categorical code out of range")
	// ErrArtifactLoad: the scaler or model artifact is unavailable.
	ErrArtifactLoad = errors.New("artifact load failure")
	// ErrInvalidModelOutput: the model returned a label outside {0,1} or a
	// probability outside [0,1].
	ErrInvalidModelOutput = errors.New("invalid model output")
)

// MissingFieldError names the absent field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// CategoryRangeError names the field and offending code.
type CategoryRangeError struct {
	Field  string
	Code   float64
	Levels int
}

func (e *CategoryRangeError) Error() string {
	return fmt.Sprintf("%s: code %v outside 1..%d", e.Field, e.Code, e.Levels)
}

func (e *CategoryRangeError) Is(target error) bool { return target == ErrOutOfRangeCategory }

// ArtifactError wraps a failure to load or use an artifact.
type ArtifactError struct {
	Artifact string // "scaler" or "model"
	Path     string
	Err      error
}

func (e *ArtifactError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load %s %s: %v", e.Artifact, e.Path, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

func (e *ArtifactError) Is(target error) bool { return target == ErrArtifactLoad }
