package artifact

import (
	"encoding/json"
	"fmt"

	"CardioStage/internal/domain/models"
)

// scalerDoc mirrors the attributes of a fitted standard scaler.
type scalerDoc struct {
	FeatureNames []string  `json:"feature_names_in_"`
	Mean         []float64 `json:"mean_"`
	Scale        []float64 `json:"scale_"`
}

// LoadScaler reads fitted scaler parameters. The column set must be exactly
// the five continuous columns, in any order.
func LoadScaler(path string) (models.ScalerParams, error) {
	fail := func(err error) (models.ScalerParams, error) {
		return models.ScalerParams{}, &models.ArtifactError{Artifact: "scaler", Path: path, Err: err}
	}

	data, err := readArtifact(path, "scaler")
	if err != nil {
		return fail(err)
	}
	var doc scalerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fail(fmt.Errorf("decode scaler: %w", err))
	}
	if len(doc.Mean) != len(doc.FeatureNames) || len(doc.Scale) != len(doc.FeatureNames) {
		return fail(fmt.Errorf("scaler has %d names, %d means, %d scales",
			len(doc.FeatureNames), len(doc.Mean), len(doc.Scale)))
	}

	cols := make(map[string]models.ColumnScale, len(doc.FeatureNames))
	for i, name := range doc.FeatureNames {
		if _, dup := cols[name]; dup {
			return fail(fmt.Errorf("duplicate scaler column %q", name))
		}
		cols[name] = models.ColumnScale{Mean: doc.Mean[i], Scale: doc.Scale[i]}
	}
	params, err := models.NewScalerParams(cols)
	if err != nil {
		return fail(err)
	}
	return params, nil
}
