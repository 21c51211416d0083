package features

import (
	"math"

	"CardioStage/internal/domain/models"
)

// Options controls encoding policy.
type Options struct {
	// StrictCategories rejects out-of-range categorical codes with
	// models.ErrOutOfRangeCategory instead of encoding them as baseline.
	StrictCategories bool
}

// Encode turns a raw record into the model's feature vector:
// continuous columns are standardized with the fitted scaler, binary and
// count columns pass through, and categorical codes expand into fixed
// one-hot blocks. It is pure; a missing field yields no partial vector.
func Encode(record models.RawRecord, scaler models.ScalerParams, opts Options) (models.FeatureVector, error) {
	var v models.FeatureVector
	if err := record.Validate(); err != nil {
		return v, err
	}
	if opts.StrictCategories {
		if bad := OutOfRange(record); len(bad) > 0 {
			return v, bad[0]
		}
	}

	v.Age = scaler.Age.Apply(record[models.FieldAge])
	v.Sex = record[models.FieldSex]
	v.Trestbps = scaler.Trestbps.Apply(record[models.FieldTrestbps])
	v.Chol = scaler.Chol.Apply(record[models.FieldChol])
	v.Fbs = record[models.FieldFbs]
	v.Thalach = scaler.Thalach.Apply(record[models.FieldThalach])
	v.Exang = record[models.FieldExang]
	v.Oldpeak = scaler.Oldpeak.Apply(record[models.FieldOldpeak])
	v.CA = record[models.FieldCA]

	cp := oneHot(record[models.FieldCP], 3)
	v.CP1, v.CP2, v.CP3 = cp[0], cp[1], cp[2]
	restecg := oneHot(record[models.FieldRestecg], 2)
	v.Restecg1, v.Restecg2 = restecg[0], restecg[1]
	slope := oneHot(record[models.FieldSlope], 2)
	v.Slope1, v.Slope2 = slope[0], slope[1]
	thal := oneHot(record[models.FieldThal], 3)
	v.Thal1, v.Thal2, v.Thal3 = thal[0], thal[1], thal[2]

	return v, nil
}

// OutOfRange lists categorical fields whose code is not one of 1..Levels.
// Absent fields are skipped.
func OutOfRange(record models.RawRecord) []*models.CategoryRangeError {
	var out []*models.CategoryRangeError
	for _, c := range models.Categoricals {
		code, ok := record[c.Field]
		if !ok {
			continue
		}
		if _, legal := level(code, c.Levels); !legal {
			out = append(out, &models.CategoryRangeError{Field: c.Field, Code: code, Levels: c.Levels})
		}
	}
	return out
}

// oneHot sets indicator i-1 when code == i. Width is fixed at 3 so every
// field shares one return type; only the first levels slots are meaningful.
func oneHot(code float64, levels int) [3]float64 {
	var ind [3]float64
	if i, ok := level(code, levels); ok {
		ind[i-1] = 1
	}
	return ind
}

func level(code float64, levels int) (int, bool) {
	if code != math.Trunc(code) || code < 1 || code > float64(levels) {
		return 0, false
	}
	return int(code), true
}
