package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"CardioStage/internal/domain/models"
	domsvc "CardioStage/internal/domain/service"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// Two stumps: tree 0 splits on cp_3 (index 11), tree 1 on age (index 0).
const forestJSON = `{
  "feature_names": ["age","sex","trestbps","chol","fbs","thalach","exang","oldpeak","ca",
                    "cp_1","cp_2","cp_3","restecg_1","restecg_2","slope_1","slope_2","thal_1","thal_2","thal_3"],
  "classes": [0, 1],
  "trees": [
    {"nodes": [
      {"feature": 11, "threshold": 0.5, "left": 1, "right": 2},
      {"left": -1, "right": -1, "value": [8, 2]},
      {"left": -1, "right": -1, "value": [1, 9]}
    ]},
    {"nodes": [
      {"feature": 0, "threshold": 0.0, "left": 1, "right": 2},
      {"left": -1, "right": -1, "value": [0.7, 0.3]},
      {"left": -1, "right": -1, "value": [0.4, 0.6]}
    ]}
  ]
}`

func TestForestPrediction(t *testing.T) {
	m, err := LoadModel(Spec{Type: TypeForest, Path: writeFile(t, "forest.json", forestJSON)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	jp := m.(domsvc.JointPredictor)
	cases := []struct {
		name  string
		v     models.FeatureVector
		label int
		prob  float64
	}{
		{"both low", models.FeatureVector{Age: -1}, 0, (0.2 + 0.3) / 2},
		{"cp_3 only", models.FeatureVector{Age: -1, CP3: 1}, 1, (0.9 + 0.3) / 2},
		{"both high", models.FeatureVector{Age: 1, CP3: 1}, 1, (0.9 + 0.6) / 2},
		{"age on threshold goes left", models.FeatureVector{Age: 0}, 0, (0.2 + 0.3) / 2},
	}
	for _, tc := range cases {
		label, prob, err := jp.PredictWithProbability(context.Background(), tc.v)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if label != tc.label || math.Abs(prob-tc.prob) > 1e-12 {
			t.Fatalf("%s: got (%d, %v) want (%d, %v)", tc.name, label, prob, tc.label, tc.prob)
		}
		if l, _ := m.Predict(context.Background(), tc.v); l != label {
			t.Fatalf("%s: Predict disagrees with joint prediction", tc.name)
		}
	}
}

func TestForestWrappedArtifact(t *testing.T) {
	path := writeFile(t, "wrapped.json", `{"model": `+forestJSON+`, "version": "1"}`)
	if _, err := LoadModel(Spec{Type: TypeForest, Path: path}); err != nil {
		t.Fatalf("wrapped artifact must load: %v", err)
	}
}

func TestForestRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"no trees":      `{"trees": []}`,
		"cycle":         `{"trees": [{"nodes": [{"feature": 0, "left": 0, "right": 0}]}]}`,
		"bad feature":   `{"trees": [{"nodes": [{"feature": 19, "left": 1, "right": 2}, {"left": -1, "right": -1, "value": [1,0]}, {"left": -1, "right": -1, "value": [0,1]}]}]}`,
		"empty leaf":    `{"trees": [{"nodes": [{"left": -1, "right": -1, "value": [0, 0]}]}]}`,
		"wrong columns": `{"feature_names": ["age"], "trees": [{"nodes": [{"left": -1, "right": -1, "value": [1, 1]}]}]}`,
		"bad classes":   `{"classes": [1, 2], "trees": [{"nodes": [{"left": -1, "right": -1, "value": [1, 1]}]}]}`,
	}
	for name, body := range cases {
		_, err := LoadModel(Spec{Type: TypeForest, Path: writeFile(t, "m.json", body)})
		if !errors.Is(err, models.ErrArtifactLoad) {
			t.Fatalf("%s: expected ErrArtifactLoad, got %v", name, err)
		}
	}
}

func TestLogisticPrediction(t *testing.T) {
	coef := make([]float64, models.FeatureCount)
	coef[0] = 2 // age
	body, _ := json.Marshal(map[string]interface{}{"coefficients": coef, "intercept": -1})
	m, err := LoadModel(Spec{Type: TypeLogistic, Path: writeFile(t, "lr.json", string(body))})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	p, _ := m.PredictProbability(context.Background(), models.FeatureVector{Age: 0.5})
	if math.Abs(p-0.5) > 1e-12 {
		t.Fatalf("expected sigmoid(0)=0.5, got %v", p)
	}
	if l, _ := m.Predict(context.Background(), models.FeatureVector{Age: 0.5}); l != 0 {
		t.Fatalf("p=0.5 must be label 0")
	}
	if l, _ := m.Predict(context.Background(), models.FeatureVector{Age: 2}); l != 1 {
		t.Fatalf("p>0.5 must be label 1")
	}
}

func TestLogisticRejectsWrongWidth(t *testing.T) {
	_, err := LoadModel(Spec{Type: TypeLogistic, Path: writeFile(t, "lr.json", `{"coefficients": [1, 2], "intercept": 0}`)})
	if !errors.Is(err, models.ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}

func TestLoadModelFailures(t *testing.T) {
	cases := []Spec{
		{Type: TypeForest, Path: filepath.Join(t.TempDir(), "missing.json")},
		{Type: TypeForest},
		{Type: "svm", Path: writeFile(t, "m.json", `{}`)},
		{Type: TypeRemote},
	}
	for _, spec := range cases {
		_, err := LoadModel(spec)
		var ae *models.ArtifactError
		if !errors.As(err, &ae) || ae.Artifact != "model" {
			t.Fatalf("%+v: expected model ArtifactError, got %v", spec, err)
		}
	}
}

func TestLoadScaler(t *testing.T) {
	path := writeFile(t, "scaler.json", `{
	  "feature_names_in_": ["oldpeak", "age", "trestbps", "chol", "thalach"],
	  "mean_": [1.0, 54.0, 131.0, 246.0, 149.0],
	  "scale_": [1.2, 9.0, 17.5, 51.8, 22.9]
	}`)
	s, err := LoadScaler(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Age.Mean != 54 || s.Age.Scale != 9 || s.Oldpeak.Mean != 1 || s.Oldpeak.Scale != 1.2 {
		t.Fatalf("columns mapped by name incorrectly: %+v", s)
	}
}

func TestLoadScalerRejectsBadColumns(t *testing.T) {
	cases := map[string]string{
		"missing column": `{"feature_names_in_": ["age"], "mean_": [1], "scale_": [1]}`,
		"extra column":   `{"feature_names_in_": ["age","trestbps","chol","thalach","oldpeak","ca"], "mean_": [0,0,0,0,0,0], "scale_": [1,1,1,1,1,1]}`,
		"zero scale":     `{"feature_names_in_": ["age","trestbps","chol","thalach","oldpeak"], "mean_": [0,0,0,0,0], "scale_": [1,1,0,1,1]}`,
		"length":         `{"feature_names_in_": ["age","trestbps","chol","thalach","oldpeak"], "mean_": [0,0,0,0], "scale_": [1,1,1,1,1]}`,
		"duplicate":      `{"feature_names_in_": ["age","age","chol","thalach","oldpeak"], "mean_": [0,0,0,0,0], "scale_": [1,1,1,1,1]}`,
	}
	for name, body := range cases {
		_, err := LoadScaler(writeFile(t, "s.json", body))
		var ae *models.ArtifactError
		if !errors.As(err, &ae) || ae.Artifact != "scaler" {
			t.Fatalf("%s: expected scaler ArtifactError, got %v", name, err)
		}
	}
}

func TestRemoteModel(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Features) != models.FeatureCount || req.Columns[11] != "cp_3" {
			http.Error(w, "bad vector", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"prediction": 1, "probability": req.Features[11] * 0.75})
	}))
	defer srv.Close()

	m, err := LoadModel(Spec{Type: TypeRemote, RemoteURL: srv.URL + "/", Timeout: time.Second, Retries: 1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	label, prob, err := m.(domsvc.JointPredictor).PredictWithProbability(context.Background(), models.FeatureVector{CP3: 1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if label != 1 || prob != 0.75 || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("unexpected result (%d, %v) after %d calls", label, prob, calls)
	}
	if !strings.HasPrefix(m.(domsvc.Describer).Describe(), "remote(") {
		t.Fatalf("unexpected description")
	}
}

func TestRemoteModelRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"prediction": 0, "probability": 0.1}`))
	}))
	defer srv.Close()

	m, _ := NewRemote(srv.URL, time.Second, 2)
	p, err := m.PredictProbability(context.Background(), models.FeatureVector{})
	if err != nil || p != 0.1 {
		t.Fatalf("expected retry to succeed, got p=%v err=%v", p, err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRemoteModelIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prediction": 1}`))
	}))
	defer srv.Close()

	m, _ := NewRemote(srv.URL, time.Second, 1)
	if _, err := m.Predict(context.Background(), models.FeatureVector{}); !errors.Is(err, models.ErrInvalidModelOutput) {
		t.Fatalf("expected ErrInvalidModelOutput, got %v", err)
	}
}
