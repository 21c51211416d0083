package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const scalerJSON = `{"feature_names_in_":["age","trestbps","chol","thalach","oldpeak"],
"mean_":[0,0,0,0,0],"scale_":[1,1,1,1,1]}`

// Only cp_3 carries weight: p = sigmoid(ln 3) = 0.75 when cp is 3.
const logisticJSON = `{"feature_names":["age","sex","trestbps","chol","fbs","thalach","exang","oldpeak","ca",
"cp_1","cp_2","cp_3","restecg_1","restecg_2","slope_1","slope_2","thal_1","thal_2","thal_3"],
"coefficients":[0,0,0,0,0,0,0,0,0,0,0,1.0986122886681098,0,0,0,0,0,0,0],
"intercept":0}`

const record = `{"age":63,"sex":1,"cp":3,"trestbps":145,"chol":233,"fbs":1,"restecg":0,
"thalach":150,"exang":0,"oldpeak":2.3,"slope":0,"ca":0,"thal":1}`

func artifacts(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	scaler := filepath.Join(dir, "scaler.json")
	model := filepath.Join(dir, "model.json")
	if err := os.WriteFile(scaler, []byte(scalerJSON), 0o600); err != nil {
		t.Fatalf("write scaler: %v", err)
	}
	if err := os.WriteFile(model, []byte(logisticJSON), 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return scaler, model
}

func runCLI(t *testing.T, args ...string) (int, map[string]interface{}) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	var out map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("stdout is not JSON %q: %v", stdout.String(), err)
	}
	return code, out
}

func TestRunSuccess(t *testing.T) {
	scaler, model := artifacts(t)
	code, out := runCLI(t, record, "-scaler", scaler, "-model", model, "-type", "logistic")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %v", code, out)
	}
	p, _ := out["probability"].(float64)
	if out["status"] != "success" || out["prediction"] != float64(1) ||
		out["classification"] != "Critical Stage" || math.Abs(p-0.75) > 1e-9 {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestRunRecordAfterFlags(t *testing.T) {
	scaler, model := artifacts(t)
	code, out := runCLI(t, "-scaler", scaler, "-model", model, "-type", "logistic", record)
	if code != 0 || out["status"] != "success" {
		t.Fatalf("expected success, got %d: %v", code, out)
	}
}

func TestRunErrors(t *testing.T) {
	scaler, model := artifacts(t)
	cases := []struct {
		name    string
		args    []string
		message string
	}{
		{"no record", []string{"-scaler", scaler, "-model", model}, "usage"},
		{"malformed record", []string{`{"age":`, "-scaler", scaler}, "invalid record"},
		{"missing thal", []string{strings.Replace(record, `,"thal":1`, "", 1), "-scaler", scaler, "-model", model, "-type", "logistic"}, "thal"},
		{"null thal", []string{strings.Replace(record, `"thal":1`, `"thal":null`, 1), "-scaler", scaler, "-model", model, "-type", "logistic"}, "missing field: thal"},
		{"null age", []string{strings.Replace(record, `"age":63`, `"age":null`, 1), "-scaler", scaler, "-model", model, "-type", "logistic"}, "missing field: age"},
		{"missing scaler", []string{record, "-scaler", filepath.Join(t.TempDir(), "nope.json"), "-model", model}, "scaler"},
		{"strict categories", []string{record, "-scaler", scaler, "-model", model, "-type", "logistic", "-strict"}, "restecg"},
	}
	for _, tc := range cases {
		code, out := runCLI(t, tc.args...)
		if code != 1 {
			t.Fatalf("%s: expected exit 1, got %d", tc.name, code)
		}
		msg, _ := out["message"].(string)
		if out["status"] != "error" || !strings.Contains(msg, tc.message) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.message, out)
		}
	}
}
