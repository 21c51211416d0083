package http

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Status  string            `json:"status" example:"error"`
	Message string            `json:"message" example:"thal is required"`
	Code    string            `json:"code,omitempty" example:"ERR_MISSING_FIELD"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"thal"`
	Message string                 `json:"message,omitempty" example:"thal is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// HealthResponse is returned by health endpoints.
type HealthResponse struct {
	Status  string            `json:"status" example:"ok"`
	Details map[string]string `json:"details,omitempty"`
}
