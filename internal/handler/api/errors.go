package api

import (
	"context"
	"errors"
	"net/http"

	"CardioStage/internal/domain/models"
	xhttp "CardioStage/pkg/http"
)

// FromDomainError maps an evaluation error to the HTTP error it is reported as.
func FromDomainError(err error) *xhttp.AppError {
	var (
		mf *models.MissingFieldError
		ce *models.CategoryRangeError
	)
	switch {
	case errors.As(err, &mf):
		return xhttp.NewAppError("ERR_MISSING_FIELD", mf.Field, mf.Error(), http.StatusBadRequest).WithError(err)
	case errors.As(err, &ce):
		return xhttp.NewAppError("ERR_OUT_OF_RANGE", ce.Field, ce.Error(), http.StatusBadRequest).
			WithParam("min", 1).
			WithParam("max", ce.Levels).
			WithError(err)
	case errors.Is(err, models.ErrArtifactLoad):
		return xhttp.NewAppError("ERR_MODEL_UNAVAILABLE", "", "model is not available", http.StatusServiceUnavailable).WithError(err)
	case errors.Is(err, models.ErrInvalidModelOutput):
		return xhttp.NewAppError("ERR_MODEL_OUTPUT", "", "model returned an invalid result", http.StatusInternalServerError).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "prediction timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("Failed to process prediction").WithError(err)
	}
}
