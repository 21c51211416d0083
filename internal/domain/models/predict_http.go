package models

// Requests for the prediction HTTP endpoint. Pointers distinguish an absent
// field from a legitimate zero.

type PredictRequest struct {
	Age      *float64 `json:"age" validate:"required"`
	Sex      *float64 `json:"sex" validate:"required"`
	CP       *float64 `json:"cp" validate:"required"`
	Trestbps *float64 `json:"trestbps" validate:"required"`
	Chol     *float64 `json:"chol" validate:"required"`
	Fbs      *float64 `json:"fbs" validate:"required"`
	Restecg  *float64 `json:"restecg" validate:"required"`
	Thalach  *float64 `json:"thalach" validate:"required"`
	Exang    *float64 `json:"exang" validate:"required"`
	Oldpeak  *float64 `json:"oldpeak" validate:"required"`
	Slope    *float64 `json:"slope" validate:"required"`
	CA       *float64 `json:"ca" validate:"required"`
	Thal     *float64 `json:"thal" validate:"required"`
}

// Record converts the request into a RawRecord, leaving absent fields out.
func (r *PredictRequest) Record() RawRecord {
	rec := make(RawRecord, len(RequiredFields))
	set := func(name string, v *float64) {
		if v != nil {
			rec[name] = *v
		}
	}
	set(FieldAge, r.Age)
	set(FieldSex, r.Sex)
	set(FieldCP, r.CP)
	set(FieldTrestbps, r.Trestbps)
	set(FieldChol, r.Chol)
	set(FieldFbs, r.Fbs)
	set(FieldRestecg, r.Restecg)
	set(FieldThalach, r.Thalach)
	set(FieldExang, r.Exang)
	set(FieldOldpeak, r.Oldpeak)
	set(FieldSlope, r.Slope)
	set(FieldCA, r.CA)
	set(FieldThal, r.Thal)
	return rec
}

// ScoreRequest is the batch-scoring message schema: {id, record}.
type ScoreRequest struct {
	ID     string    `json:"id" validate:"required"`
	Record RawRecord `json:"record" validate:"required"`
}

// PredictResponse is the success envelope of the predict endpoint and CLI.
type PredictResponse struct {
	Status string `json:"status"`
	PredictionResult
}

// NewPredictResponse wraps res in the success envelope.
func NewPredictResponse(res PredictionResult) PredictResponse {
	return PredictResponse{Status: "success", PredictionResult: res}
}
