package models

import (
	"fmt"
	"math"
)

// ContinuousColumns are standardized before reaching the model.
var ContinuousColumns = [5]string{FieldAge, FieldTrestbps, FieldChol, FieldThalach, FieldOldpeak}

// ColumnScale holds the fitted standardization parameters of one column.
type ColumnScale struct {
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// Apply standardizes x.
func (c ColumnScale) Apply(x float64) float64 {
	return (x - c.Mean) / c.Scale
}

// ScalerParams is the fitted scaler for the five continuous columns.
// It is immutable once built.
type ScalerParams struct {
	Age      ColumnScale
	Trestbps ColumnScale
	Chol     ColumnScale
	Thalach  ColumnScale
	Oldpeak  ColumnScale
}

// NewScalerParams builds ScalerParams from per-column stats. The column set
// must be exactly ContinuousColumns and every scale must be finite and non-zero.
func NewScalerParams(cols map[string]ColumnScale) (ScalerParams, error) {
	var p ScalerParams
	if len(cols) != len(ContinuousColumns) {
		return p, fmt.Errorf("scaler: expected %d columns, got %d", len(ContinuousColumns), len(cols))
	}
	for _, name := range ContinuousColumns {
		cs, ok := cols[name]
		if !ok {
			return p, fmt.Errorf("scaler: column %q missing", name)
		}
		if math.IsNaN(cs.Mean) || math.IsInf(cs.Mean, 0) {
			return p, fmt.Errorf("scaler: column %q has non-finite mean", name)
		}
		if cs.Scale == 0 || math.IsNaN(cs.Scale) || math.IsInf(cs.Scale, 0) {
			return p, fmt.Errorf("scaler: column %q has invalid scale %v", name, cs.Scale)
		}
	}
	p.Age = cols[FieldAge]
	p.Trestbps = cols[FieldTrestbps]
	p.Chol = cols[FieldChol]
	p.Thalach = cols[FieldThalach]
	p.Oldpeak = cols[FieldOldpeak]
	return p, nil
}

// IdentityScaler leaves continuous values untouched (mean 0, scale 1).
func IdentityScaler() ScalerParams {
	id := ColumnScale{Mean: 0, Scale: 1}
	return ScalerParams{Age: id, Trestbps: id, Chol: id, Thalach: id, Oldpeak: id}
}
