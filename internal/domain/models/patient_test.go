package models

import (
	"encoding/json"
	"errors"
	"testing"
)

const fullRecord = `{"age":63,"sex":1,"cp":3,"trestbps":145,"chol":233,"fbs":1,"restecg":0,
"thalach":150,"exang":0,"oldpeak":2.3,"slope":0,"ca":0,"thal":1}`

func TestDecodeRecord(t *testing.T) {
	rec, err := DecodeRecord([]byte(fullRecord))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec[FieldAge] != 63 || rec[FieldOldpeak] != 2.3 || len(rec) != len(RequiredFields) {
		t.Fatalf("unexpected record %v", rec)
	}

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"null age", `{"age":null,"sex":1,"cp":3,"trestbps":145,"chol":233,"fbs":1,"restecg":0,"thalach":150,"exang":0,"oldpeak":2.3,"slope":0,"ca":0,"thal":1}`, FieldAge},
		{"null thal", `{"age":63,"sex":1,"cp":3,"trestbps":145,"chol":233,"fbs":1,"restecg":0,"thalach":150,"exang":0,"oldpeak":2.3,"slope":0,"ca":0,"thal":null}`, FieldThal},
		{"absent thal", `{"age":63,"sex":1,"cp":3,"trestbps":145,"chol":233,"fbs":1,"restecg":0,"thalach":150,"exang":0,"oldpeak":2.3,"slope":0,"ca":0}`, FieldThal},
	}
	for _, tc := range cases {
		_, err := DecodeRecord([]byte(tc.body))
		var missing *MissingFieldError
		if !errors.As(err, &missing) || missing.Field != tc.field {
			t.Fatalf("%s: expected missing %s, got %v", tc.name, tc.field, err)
		}
	}

	if _, err := DecodeRecord([]byte(`{"age":"old"}`)); err == nil || errors.Is(err, ErrMissingField) {
		t.Fatalf("non-numeric value must be a decode error, got %v", err)
	}
}

func TestRawRecordDropsNullsWhenEmbedded(t *testing.T) {
	var req ScoreRequest
	if err := json.Unmarshal([]byte(`{"id":"r1","record":{"age":null,"sex":1}}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := req.Record[FieldAge]; ok {
		t.Fatalf("null age must be absent, got %v", req.Record)
	}
	if req.Record[FieldSex] != 1 {
		t.Fatalf("unexpected record %v", req.Record)
	}

	if err := json.Unmarshal([]byte(`{"id":"r2","record":null}`), &req); err != nil {
		t.Fatalf("unmarshal null record: %v", err)
	}
	if req.Record != nil {
		t.Fatalf("null record must decode to nil, got %v", req.Record)
	}
}
