package api

import (
	"net/http"

	"CardioStage/internal/domain/models"

	"github.com/labstack/echo/v4"
)

type fieldDoc struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Example     float64 `json:"example"`
}

type sampleDoc struct {
	Description string             `json:"description"`
	Request     map[string]float64 `json:"request"`
}

type endpointDoc struct {
	Method      string                 `json:"method"`
	Description string                 `json:"description"`
	RequestBody map[string]fieldDoc    `json:"requestBody,omitempty"`
	Response    map[string]interface{} `json:"response,omitempty"`
}

type apiDoc struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Version        string                 `json:"version"`
	Endpoints      map[string]endpointDoc `json:"endpoints"`
	SampleRequests []sampleDoc            `json:"sampleRequests"`
}

var requestFields = map[string]fieldDoc{
	models.FieldAge:      {"number", "Patient's age in years", 52},
	models.FieldSex:      {"number", "0: female, 1: male", 1},
	models.FieldCP:       {"number", "Chest pain type; codes 1-3 are encoded, anything else is the baseline", 0},
	models.FieldTrestbps: {"number", "Resting blood pressure in mm Hg", 125},
	models.FieldChol:     {"number", "Serum cholesterol in mg/dl", 212},
	models.FieldFbs:      {"number", "Fasting blood sugar > 120 mg/dl (0: false, 1: true)", 0},
	models.FieldRestecg:  {"number", "Resting ECG result; codes 1-2 are encoded, anything else is the baseline", 1},
	models.FieldThalach:  {"number", "Maximum heart rate achieved", 168},
	models.FieldExang:    {"number", "Exercise induced angina (0: no, 1: yes)", 0},
	models.FieldOldpeak:  {"number", "ST depression induced by exercise relative to rest", 1.0},
	models.FieldSlope:    {"number", "Slope of the peak exercise ST segment; codes 1-2 are encoded", 2},
	models.FieldCA:       {"number", "Number of major vessels colored by fluoroscopy (0-3)", 2},
	models.FieldThal:     {"number", "Thalassemia; codes 1-3 are encoded", 3},
}

func buildDocs() apiDoc {
	stages := make([]string, len(models.Stages))
	for i, s := range models.Stages {
		stages[i] = string(s)
	}
	example := make(map[string]float64, len(requestFields))
	for name, f := range requestFields {
		example[name] = f.Example
	}

	return apiDoc{
		Title:       "Heart Disease Prediction API",
		Description: "Predicts heart disease risk and stage from clinical parameters",
		Version:     "1.0.0",
		Endpoints: map[string]endpointDoc{
			"/api/predict": {
				Method:      http.MethodPost,
				Description: "Predict heart disease risk; every field is required",
				RequestBody: requestFields,
				Response: map[string]interface{}{
					"status":         "success | error",
					"prediction":     "0: no disease, 1: disease",
					"probability":    "probability of disease in [0, 1]",
					"classification": stages,
					"message":        "error description, present when status is error",
				},
			},
			"/api/health": {Method: http.MethodGet, Description: "Model and artifact status"},
			"/api/docs":   {Method: http.MethodGet, Description: "This document"},
		},
		SampleRequests: []sampleDoc{
			{Description: "Typical record", Request: example},
			{Description: "Critical stage candidate", Request: map[string]float64{
				"age": 61, "sex": 1, "cp": 2, "trestbps": 148, "chol": 203, "fbs": 1, "restecg": 1,
				"thalach": 161, "exang": 0, "oldpeak": 2.1, "slope": 2, "ca": 1, "thal": 3,
			}},
		},
	}
}

// Docs describes the API.
func (h *PredictHandler) Docs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.docs)
}
