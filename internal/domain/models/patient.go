package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Field names of a raw patient record.
const (
	FieldAge      = "age"
	FieldSex      = "sex"
	FieldCP       = "cp"
	FieldTrestbps = "trestbps"
	FieldChol     = "chol"
	FieldFbs      = "fbs"
	FieldRestecg  = "restecg"
	FieldThalach  = "thalach"
	FieldExang    = "exang"
	FieldOldpeak  = "oldpeak"
	FieldSlope    = "slope"
	FieldCA       = "ca"
	FieldThal     = "thal"
)

// RequiredFields lists every key a RawRecord must carry, in the order they
// are checked.
var RequiredFields = []string{
	FieldAge, FieldSex, FieldTrestbps, FieldChol, FieldFbs, FieldThalach,
	FieldExang, FieldOldpeak, FieldCA, FieldCP, FieldRestecg, FieldSlope, FieldThal,
}

// Categorical describes a small-integer field expanded into one-hot indicators.
// Legal codes are 1..Levels; code 0 (or anything else) is the baseline.
type Categorical struct {
	Field  string
	Levels int
}

// Categoricals is the fixed one-hot layout used at training time.
var Categoricals = []Categorical{
	{Field: FieldCP, Levels: 3},
	{Field: FieldRestecg, Levels: 2},
	{Field: FieldSlope, Levels: 2},
	{Field: FieldThal, Levels: 3},
}

// RawRecord is a loosely typed patient record keyed by field name.
type RawRecord map[string]float64

// Validate reports the first required field that is absent.
func (r RawRecord) Validate() error {
	for _, f := range RequiredFields {
		if _, ok := r[f]; !ok {
			return &MissingFieldError{Field: f}
		}
	}
	return nil
}

// UnmarshalJSON drops keys whose value is null, so a null required field is
// reported as missing instead of being read as 0.
func (r *RawRecord) UnmarshalJSON(b []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*r = nil
		return nil
	}
	rec := make(RawRecord, len(raw))
	for k, v := range raw {
		if v != nil {
			rec[k] = *v
		}
	}
	*r = rec
	return nil
}

// DecodeRecord parses a JSON patient record and checks that every required
// field is present and not null.
func DecodeRecord(b []byte) (RawRecord, error) {
	var rec RawRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// CanonicalKey renders the required fields in a fixed order, independent of
// map iteration order. Extra keys are ignored.
func (r RawRecord) CanonicalKey() string {
	var b strings.Builder
	for i, f := range RequiredFields {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(f)
		b.WriteByte('=')
		if v, ok := r[f]; ok {
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return b.String()
}
