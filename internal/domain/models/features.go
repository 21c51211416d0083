package models

import "fmt"

// FeatureCount is the width of the model input.
const FeatureCount = 19

// FeatureColumns is the model's positional input contract.
var FeatureColumns = [FeatureCount]string{
	"age", "sex", "trestbps", "chol", "fbs", "thalach", "exang", "oldpeak", "ca",
	"cp_1", "cp_2", "cp_3",
	"restecg_1", "restecg_2",
	"slope_1", "slope_2",
	"thal_1", "thal_2", "thal_3",
}

// FeatureVector has one named slot per model input. Field order matches
// FeatureColumns and Values must be kept in sync with both.
type FeatureVector struct {
	Age      float64 `json:"age"`
	Sex      float64 `json:"sex"`
	Trestbps float64 `json:"trestbps"`
	Chol     float64 `json:"chol"`
	Fbs      float64 `json:"fbs"`
	Thalach  float64 `json:"thalach"`
	Exang    float64 `json:"exang"`
	Oldpeak  float64 `json:"oldpeak"`
	CA       float64 `json:"ca"`
	CP1      float64 `json:"cp_1"`
	CP2      float64 `json:"cp_2"`
	CP3      float64 `json:"cp_3"`
	Restecg1 float64 `json:"restecg_1"`
	Restecg2 float64 `json:"restecg_2"`
	Slope1   float64 `json:"slope_1"`
	Slope2   float64 `json:"slope_2"`
	Thal1    float64 `json:"thal_1"`
	Thal2    float64 `json:"thal_2"`
	Thal3    float64 `json:"thal_3"`
}

// Values returns the vector in model column order.
func (v FeatureVector) Values() [FeatureCount]float64 {
	return [FeatureCount]float64{
		v.Age, v.Sex, v.Trestbps, v.Chol, v.Fbs, v.Thalach, v.Exang, v.Oldpeak, v.CA,
		v.CP1, v.CP2, v.CP3,
		v.Restecg1, v.Restecg2,
		v.Slope1, v.Slope2,
		v.Thal1, v.Thal2, v.Thal3,
	}
}

// Slice is Values as a freshly allocated slice.
func (v FeatureVector) Slice() []float64 {
	vals := v.Values()
	out := make([]float64, FeatureCount)
	copy(out, vals[:])
	return out
}

// Named maps column name to value.
func (v FeatureVector) Named() map[string]float64 {
	vals := v.Values()
	out := make(map[string]float64, FeatureCount)
	for i, c := range FeatureColumns {
		out[c] = vals[i]
	}
	return out
}

// VectorFromValues is the inverse of Slice.
func VectorFromValues(vals []float64) (FeatureVector, error) {
	var v FeatureVector
	if len(vals) != FeatureCount {
		return v, fmt.Errorf("feature vector has %d values, want %d", len(vals), FeatureCount)
	}
	v.Age, v.Sex, v.Trestbps, v.Chol, v.Fbs = vals[0], vals[1], vals[2], vals[3], vals[4]
	v.Thalach, v.Exang, v.Oldpeak, v.CA = vals[5], vals[6], vals[7], vals[8]
	v.CP1, v.CP2, v.CP3 = vals[9], vals[10], vals[11]
	v.Restecg1, v.Restecg2 = vals[12], vals[13]
	v.Slope1, v.Slope2 = vals[14], vals[15]
	v.Thal1, v.Thal2, v.Thal3 = vals[16], vals[17], vals[18]
	return v, nil
}
