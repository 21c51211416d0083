package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"CardioStage/internal/domain/models"
	domsvc "CardioStage/internal/domain/service"
)

const (
	TypeForest   = "forest"
	TypeLogistic = "logistic"
	TypeRemote   = "remote"
)

// Spec says where and how to load the model.
type Spec struct {
	Type      string
	Path      string
	RemoteURL string
	Timeout   time.Duration
	Retries   int
}

// LoadModel builds the model described by spec. Every failure is an
// *models.ArtifactError.
func LoadModel(spec Spec) (domsvc.Model, error) {
	fail := func(err error) (domsvc.Model, error) {
		return nil, &models.ArtifactError{Artifact: "model", Path: spec.Path, Err: err}
	}

	if spec.Type == TypeRemote {
		m, err := NewRemote(spec.RemoteURL, spec.Timeout, spec.Retries)
		if err != nil {
			return fail(err)
		}
		return m, nil
	}

	data, err := readArtifact(spec.Path, "model")
	if err != nil {
		return fail(err)
	}

	switch spec.Type {
	case TypeForest:
		m, err := parseForest(data)
		if err != nil {
			return fail(err)
		}
		return m, nil
	case TypeLogistic:
		m, err := parseLogistic(data)
		if err != nil {
			return fail(err)
		}
		return m, nil
	default:
		return fail(fmt.Errorf("unsupported model type %q", spec.Type))
	}
}

// readArtifact reads a JSON artifact and unwraps a {"<key>": {...}} envelope
// when present.
func readArtifact(path, key string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if inner, ok := env[key]; ok {
		return inner, nil
	}
	return data, nil
}
