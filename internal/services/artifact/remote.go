package artifact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CardioStage/internal/domain/models"
	domsvc "CardioStage/internal/domain/service"
	xhttp "CardioStage/pkg/http"
)

type remoteRequest struct {
	Columns  []string  `json:"columns"`
	Features []float64 `json:"features"`
}

type remoteResponse struct {
	Prediction  *int     `json:"prediction"`
	Probability *float64 `json:"probability"`
}

// Remote delegates inference to a model server over HTTP. Label and
// probability come from one POST {baseURL}/predict.
type Remote struct {
	baseURL string
	client  *xhttp.Client
}

var (
	_ domsvc.Model          = (*Remote)(nil)
	_ domsvc.JointPredictor = (*Remote)(nil)
	_ domsvc.Describer      = (*Remote)(nil)
)

// NewRemote builds a client for the model server at baseURL. attempts
// bounds retries on transport errors and 5xx responses.
func NewRemote(baseURL string, timeout time.Duration, attempts int) (*Remote, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("remote model url is empty")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithRetries(attempts, 50*time.Millisecond)),
	}, nil
}

func (r *Remote) PredictWithProbability(ctx context.Context, v models.FeatureVector) (int, float64, error) {
	var resp remoteResponse
	req := remoteRequest{Columns: models.FeatureColumns[:], Features: v.Slice()}
	if err := r.client.PostJSON(ctx, r.baseURL+"/predict", req, &resp); err != nil {
		return 0, 0, fmt.Errorf("remote predict: %w", err)
	}
	if resp.Prediction == nil || resp.Probability == nil {
		return 0, 0, fmt.Errorf("%w: remote response missing prediction or probability", models.ErrInvalidModelOutput)
	}
	return *resp.Prediction, *resp.Probability, nil
}

func (r *Remote) Predict(ctx context.Context, v models.FeatureVector) (int, error) {
	label, _, err := r.PredictWithProbability(ctx, v)
	return label, err
}

func (r *Remote) PredictProbability(ctx context.Context, v models.FeatureVector) (float64, error) {
	_, p, err := r.PredictWithProbability(ctx, v)
	return p, err
}

func (r *Remote) Describe() string { return "remote(" + r.baseURL + ")" }
